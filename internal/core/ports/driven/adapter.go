package driven

import (
	"context"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// ParseOptions configures format adapter behaviour.
type ParseOptions struct {
	// ConvertLaTeX asks the notes adapter to emit LaTeX for
	// mathematical content instead of plain text.
	ConvertLaTeX bool
}

// FormatAdapter parses one source kind into normalised text segments.
// Adapters are idempotent and side-effect-free beyond reading (and, for
// network kinds, fetching) their input. They never chunk or embed.
type FormatAdapter interface {
	// Kind returns the source kind this adapter handles.
	Kind() domain.SourceKind

	// Parse transforms a raw source into a normalised document.
	// Network adapters fetch with a bounded timeout and wrap failures
	// in domain.ErrFetchTransient or domain.ErrFetchFailed so the
	// orchestrator can decide whether to retry.
	Parse(ctx context.Context, src *domain.RawSource, opts ParseOptions) (*domain.NormalizedDocument, error)
}

// AdapterRegistry selects the appropriate adapter for a source kind.
type AdapterRegistry interface {
	// Parse dispatches to the adapter registered for src.Kind.
	// Returns domain.ErrUnsupportedFormat when none is registered.
	Parse(ctx context.Context, src *domain.RawSource, opts ParseOptions) (*domain.NormalizedDocument, error)

	// Register adds an adapter to the registry.
	Register(adapter FormatAdapter)

	// SupportedKinds returns all kinds that can be parsed.
	SupportedKinds() []domain.SourceKind
}
