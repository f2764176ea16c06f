package driven

import (
	"context"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// VectorIndex provides similarity search over chunk embeddings.
//
// The index holds one entry set per document, replaced atomically on
// upsert: a concurrent search sees either the previous complete chunk
// set or the new one, never a mix. Only documents that reached the
// ready state are upserted, so mid-pipeline documents are invisible
// to search.
type VectorIndex interface {
	// UpsertDocument replaces all vectors for a document. The
	// collection id and creation time are kept per entry for scope
	// filtering and tie-breaking.
	UpsertDocument(ctx context.Context, documentID, collectionID string, createdAt time.Time, chunks []domain.Chunk) error

	// DeleteDocument atomically removes all vectors for a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Search finds the topK nearest chunks to the query vector within
	// the supplied collection id set. Ranking is by descending cosine
	// score, ties broken by newer document then ascending position.
	Search(ctx context.Context, query []float32, collectionIDs []string, topK int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the chunk's owning document.
	DocumentID string

	// Score is the cosine similarity score.
	Score float64
}
