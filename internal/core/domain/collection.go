package domain

import "time"

// PathSeparator joins ancestor collection names into a path string.
const PathSeparator = "/"

// Collection is a named node in the collection tree.
// Collections scope documents and retrieval: a query against a collection
// searches it and, when requested, all of its descendants.
type Collection struct {
	// ID is the unique identifier for the collection.
	ID string

	// Name is the human-readable name.
	Name string

	// ParentID links to the parent collection. Nil for roots.
	ParentID *string

	// Path is the PathSeparator-joined concatenation of ancestor names,
	// ending with this collection's own name. Maintained on rename/move.
	Path string

	// DocumentCount is the number of documents directly in this collection.
	DocumentCount int

	// ChildCount is the number of direct child collections.
	ChildCount int

	// CreatedAt is when the collection was created.
	CreatedAt time.Time

	// UpdatedAt is when the collection was last renamed or moved.
	UpdatedAt time.Time
}

// IsRoot reports whether the collection has no parent.
func (c *Collection) IsRoot() bool {
	return c.ParentID == nil
}
