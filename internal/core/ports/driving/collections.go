package driving

import (
	"context"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// DeleteMode controls what happens to a deleted collection's contents.
type DeleteMode int

const (
	// DeleteCascade removes children and documents recursively.
	DeleteCascade DeleteMode = iota

	// DeleteReparent moves children and documents to the deleted
	// collection's parent.
	DeleteReparent
)

// CollectionService manages the collection tree.
type CollectionService interface {
	// Create adds a collection under the given parent (nil for root).
	Create(ctx context.Context, name string, parentID *string) (*domain.Collection, error)

	// Rename changes a collection's name, recomputing subtree paths.
	Rename(ctx context.Context, id, name string) error

	// Move reparents a collection. Returns domain.ErrCycle when the
	// move would make the collection its own descendant.
	Move(ctx context.Context, id string, newParentID *string) error

	// Delete removes a collection per the delete mode.
	Delete(ctx context.Context, id string, mode DeleteMode) error

	// Get retrieves a collection by ID.
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// List returns all collections ordered by path.
	List(ctx context.Context) ([]domain.Collection, error)

	// ExpandScope returns the given collection ids plus all their
	// descendants, deduplicated.
	ExpandScope(ctx context.Context, ids []string) ([]string, error)
}
