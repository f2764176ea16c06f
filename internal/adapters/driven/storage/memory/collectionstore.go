package memory

import (
	"context"
	"sync"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Ensure CollectionStore implements the interface.
var _ driven.CollectionStore = (*CollectionStore)(nil)

// CollectionStore is an in-memory implementation of driven.CollectionStore.
type CollectionStore struct {
	mu          sync.RWMutex
	collections map[string]domain.Collection
}

// NewCollectionStore creates a new in-memory collection store.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{collections: make(map[string]domain.Collection)}
}

// Save stores or updates a collection.
func (s *CollectionStore) Save(_ context.Context, col *domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[col.ID] = *col
	return nil
}

// Get retrieves a collection by ID.
func (s *CollectionStore) Get(_ context.Context, id string) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &col, nil
}

// List returns all collections.
func (s *CollectionStore) List(_ context.Context) ([]domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Collection, 0, len(s.collections))
	for id := range s.collections {
		result = append(result, s.collections[id])
	}
	return result, nil
}

// Children returns direct children of a collection.
func (s *CollectionStore) Children(_ context.Context, id string) ([]domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Collection
	for cid := range s.collections {
		col := s.collections[cid]
		if col.ParentID != nil && *col.ParentID == id {
			result = append(result, col)
		}
	}
	return result, nil
}

// Delete removes a collection.
func (s *CollectionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.collections, id)
	return nil
}
