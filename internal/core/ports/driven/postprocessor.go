package driven

import (
	"context"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// PostProcessor processes normalised text to produce chunks.
// PostProcessors are chained in a pipeline; the first (the chunker)
// receives nil chunks and creates them, later stages may modify them.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes the normalised document and the chunks so far and
	// returns the resulting chunks.
	Process(ctx context.Context, documentID string, doc *domain.NormalizedDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// The result is deterministic for a fixed input and configuration.
	Process(ctx context.Context, documentID string, doc *domain.NormalizedDocument) ([]domain.Chunk, error)
}
