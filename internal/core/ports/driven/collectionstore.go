package driven

import (
	"context"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// CollectionStore persists the collection tree.
type CollectionStore interface {
	// Save stores or updates a collection.
	Save(ctx context.Context, col *domain.Collection) error

	// Get retrieves a collection by ID.
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// List returns all collections.
	List(ctx context.Context) ([]domain.Collection, error)

	// Children returns the direct children of a collection.
	Children(ctx context.Context, parentID string) ([]domain.Collection, error)

	// Delete removes a collection. Callers are responsible for
	// reparenting or cascading children and documents first.
	Delete(ctx context.Context, id string) error
}
