package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
	"github.com/aquillm/aquillm/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// CollectionService manages the collection tree. Acyclicity is enforced
// on every move by walking the ancestor chain before committing.
type CollectionService struct {
	colStore    driven.CollectionStore
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
}

// NewCollectionService creates a new collection service. The vector
// index is used to purge chunks of documents removed by cascade deletes.
func NewCollectionService(
	colStore driven.CollectionStore,
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
) *CollectionService {
	return &CollectionService{
		colStore:    colStore,
		docStore:    docStore,
		vectorIndex: vectorIndex,
	}
}

// Create adds a collection under the given parent (nil for root).
func (s *CollectionService) Create(ctx context.Context, name string, parentID *string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, domain.PathSeparator) {
		return nil, fmt.Errorf("%w: collection name %q", domain.ErrInvalidInput, name)
	}

	path := name
	if parentID != nil {
		parent, err := s.colStore.Get(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("get parent: %w", err)
		}
		path = parent.Path + domain.PathSeparator + name
	}

	now := time.Now().UTC()
	col := &domain.Collection{
		ID:        uuid.New().String(),
		Name:      name,
		ParentID:  parentID,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.colStore.Save(ctx, col); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	logger.Debug("Created collection %s at %s", col.ID, col.Path)
	return col, nil
}

// Rename changes a collection's name and recomputes subtree paths.
func (s *CollectionService) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, domain.PathSeparator) {
		return fmt.Errorf("%w: collection name %q", domain.ErrInvalidInput, name)
	}

	col, err := s.colStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}

	col.Name = name
	col.UpdatedAt = time.Now().UTC()
	return s.rewritePaths(ctx, col)
}

// Move reparents a collection, rejecting moves that would create a
// cycle.
func (s *CollectionService) Move(ctx context.Context, id string, newParentID *string) error {
	col, err := s.colStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}

	if newParentID != nil {
		if *newParentID == id {
			return domain.ErrCycle
		}
		// Walk the ancestor chain of the new parent. Finding the moved
		// collection there means it would become its own descendant.
		ancestor := newParentID
		for ancestor != nil {
			if *ancestor == id {
				return domain.ErrCycle
			}
			parent, err := s.colStore.Get(ctx, *ancestor)
			if err != nil {
				return fmt.Errorf("walk ancestors: %w", err)
			}
			ancestor = parent.ParentID
		}
	}

	col.ParentID = newParentID
	col.UpdatedAt = time.Now().UTC()
	return s.rewritePaths(ctx, col)
}

// Delete removes a collection, cascading or reparenting its contents.
func (s *CollectionService) Delete(ctx context.Context, id string, mode driving.DeleteMode) error {
	col, err := s.colStore.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}

	switch mode {
	case driving.DeleteCascade:
		if err := s.deleteSubtree(ctx, col); err != nil {
			return err
		}
	case driving.DeleteReparent:
		if err := s.reparentContents(ctx, col); err != nil {
			return err
		}
		if err := s.colStore.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown delete mode", domain.ErrInvalidInput)
	}
	return nil
}

// Get retrieves a collection with its counts filled in.
func (s *CollectionService) Get(ctx context.Context, id string) (*domain.Collection, error) {
	col, err := s.colStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fillCounts(ctx, col); err != nil {
		return nil, err
	}
	return col, nil
}

// List returns all collections ordered by path, counts filled in.
func (s *CollectionService) List(ctx context.Context) ([]domain.Collection, error) {
	cols, err := s.colStore.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Path < cols[j].Path })
	for i := range cols {
		if err := s.fillCounts(ctx, &cols[i]); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

// ExpandScope returns the given ids plus all their descendants.
func (s *CollectionService) ExpandScope(ctx context.Context, ids []string) ([]string, error) {
	seen := make(map[string]bool)
	queue := append([]string(nil), ids...)
	var out []string

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)

		children, err := s.colStore.Children(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("children of %s: %w", id, err)
		}
		for _, child := range children {
			queue = append(queue, child.ID)
		}
	}
	return out, nil
}

// rewritePaths saves col and recomputes Path for its whole subtree.
func (s *CollectionService) rewritePaths(ctx context.Context, col *domain.Collection) error {
	path := col.Name
	if col.ParentID != nil {
		parent, err := s.colStore.Get(ctx, *col.ParentID)
		if err != nil {
			return fmt.Errorf("get parent: %w", err)
		}
		path = parent.Path + domain.PathSeparator + col.Name
	}
	col.Path = path

	if err := s.colStore.Save(ctx, col); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}

	children, err := s.colStore.Children(ctx, col.ID)
	if err != nil {
		return fmt.Errorf("children of %s: %w", col.ID, err)
	}
	for i := range children {
		if err := s.rewritePaths(ctx, &children[i]); err != nil {
			return err
		}
	}
	return nil
}

// deleteSubtree removes a collection, its descendants, and all their
// documents and chunks.
func (s *CollectionService) deleteSubtree(ctx context.Context, col *domain.Collection) error {
	children, err := s.colStore.Children(ctx, col.ID)
	if err != nil {
		return fmt.Errorf("children of %s: %w", col.ID, err)
	}
	for i := range children {
		if err := s.deleteSubtree(ctx, &children[i]); err != nil {
			return err
		}
	}

	docs, err := s.docStore.ListDocuments(ctx, col.ID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	for _, doc := range docs {
		if s.vectorIndex != nil {
			if err := s.vectorIndex.DeleteDocument(ctx, doc.ID); err != nil {
				logger.Warn("delete vectors for %s: %v", doc.ID, err)
			}
		}
		if err := s.docStore.DeleteDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
	}

	if err := s.colStore.Delete(ctx, col.ID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// reparentContents moves children and documents to the collection's parent.
func (s *CollectionService) reparentContents(ctx context.Context, col *domain.Collection) error {
	if col.ParentID == nil {
		return fmt.Errorf("%w: cannot reparent contents of a root collection", domain.ErrInvalidInput)
	}

	children, err := s.colStore.Children(ctx, col.ID)
	if err != nil {
		return fmt.Errorf("children of %s: %w", col.ID, err)
	}
	for i := range children {
		children[i].ParentID = col.ParentID
		if err := s.rewritePaths(ctx, &children[i]); err != nil {
			return err
		}
	}

	docs, err := s.docStore.ListDocuments(ctx, col.ID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	for i := range docs {
		docs[i].CollectionID = *col.ParentID
		if err := s.docStore.SaveDocument(ctx, &docs[i]); err != nil {
			return fmt.Errorf("reparent document %s: %w", docs[i].ID, err)
		}
		if err := s.reindexDocument(ctx, &docs[i]); err != nil {
			return err
		}
	}
	return nil
}

// reindexDocument refreshes a moved document's index entries so they
// carry the new collection id; without this its chunks would stop
// matching any searchable scope until the next re-ingestion.
func (s *CollectionService) reindexDocument(ctx context.Context, doc *domain.Document) error {
	if s.vectorIndex == nil || doc.State != domain.StateReady {
		return nil
	}
	chunks, err := s.docStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("chunks of %s: %w", doc.ID, err)
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := s.vectorIndex.UpsertDocument(ctx, doc.ID, doc.CollectionID, doc.CreatedAt, chunks); err != nil {
		return fmt.Errorf("reindex document %s: %w", doc.ID, err)
	}
	return nil
}

// fillCounts computes direct document and child counts.
func (s *CollectionService) fillCounts(ctx context.Context, col *domain.Collection) error {
	docs, err := s.docStore.ListDocuments(ctx, col.ID)
	if err != nil {
		return err
	}
	children, err := s.colStore.Children(ctx, col.ID)
	if err != nil {
		return err
	}
	col.DocumentCount = len(docs)
	col.ChildCount = len(children)
	return nil
}
