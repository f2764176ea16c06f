package formats

import (
	"context"
	"fmt"
	"sort"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.AdapterRegistry = (*Registry)(nil)

// Registry dispatches parsing to the adapter registered for a source
// kind. Registering a second adapter for the same kind replaces the
// first.
type Registry struct {
	adapters map[domain.SourceKind]driven.FormatAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[domain.SourceKind]driven.FormatAdapter),
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter driven.FormatAdapter) {
	r.adapters[adapter.Kind()] = adapter
}

// Parse dispatches to the adapter for src.Kind.
func (r *Registry) Parse(ctx context.Context, src *domain.RawSource, opts driven.ParseOptions) (*domain.NormalizedDocument, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}
	adapter, ok := r.adapters[src.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, src.Kind)
	}
	return adapter.Parse(ctx, src, opts)
}

// SupportedKinds returns all kinds that can be parsed, sorted for
// stable display.
func (r *Registry) SupportedKinds() []domain.SourceKind {
	kinds := make([]domain.SourceKind, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
