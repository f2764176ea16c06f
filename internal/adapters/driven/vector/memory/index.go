// Package memory provides an in-memory vector index over chunk
// embeddings using cosine similarity.
//
// Vectors are normalised on insert so search reduces to a dot product.
// Each document's entry set is swapped atomically under the write lock:
// a concurrent search sees the previous complete set or the new one,
// never a mix.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	chunkID  string
	position int
	vector   []float32
}

type docEntries struct {
	collectionID string
	createdAt    time.Time
	entries      []entry
}

// Index is an in-memory cosine similarity index.
type Index struct {
	mu   sync.RWMutex
	docs map[string]*docEntries // documentID → entries
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{docs: make(map[string]*docEntries)}
}

// UpsertDocument replaces all vectors for a document in one swap.
func (idx *Index) UpsertDocument(_ context.Context, documentID, collectionID string, createdAt time.Time, chunks []domain.Chunk) error {
	doc := &docEntries{
		collectionID: collectionID,
		createdAt:    createdAt,
		entries:      make([]entry, 0, len(chunks)),
	}
	for i := range chunks {
		vec := normalize(chunks[i].Embedding)
		if vec == nil {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, chunks[i].ID)
		}
		doc.entries = append(doc.entries, entry{
			chunkID:  chunks[i].ID,
			position: chunks[i].Position,
			vector:   vec,
		})
	}

	idx.mu.Lock()
	idx.docs[documentID] = doc
	idx.mu.Unlock()
	return nil
}

// DeleteDocument removes all vectors for a document.
func (idx *Index) DeleteDocument(_ context.Context, documentID string) error {
	idx.mu.Lock()
	delete(idx.docs, documentID)
	idx.mu.Unlock()
	return nil
}

// Search returns the topK nearest chunks within the collection scope,
// ranked by descending score, ties broken by newer document then
// ascending chunk position.
func (idx *Index) Search(_ context.Context, query []float32, collectionIDs []string, topK int) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}
	q := normalize(query)
	if q == nil {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	scope := make(map[string]bool, len(collectionIDs))
	for _, id := range collectionIDs {
		scope[id] = true
	}

	type scored struct {
		hit       driven.VectorHit
		createdAt time.Time
		position  int
	}

	idx.mu.RLock()
	var results []scored
	for docID, doc := range idx.docs {
		if len(scope) > 0 && !scope[doc.collectionID] {
			continue
		}
		for i := range doc.entries {
			e := &doc.entries[i]
			if len(e.vector) != len(q) {
				continue
			}
			results = append(results, scored{
				hit: driven.VectorHit{
					ChunkID:    e.chunkID,
					DocumentID: docID,
					Score:      dot(q, e.vector),
				},
				createdAt: doc.createdAt,
				position:  e.position,
			})
		}
	}
	idx.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].hit.Score != results[j].hit.Score {
			return results[i].hit.Score > results[j].hit.Score
		}
		if !results[i].createdAt.Equal(results[j].createdAt) {
			return results[i].createdAt.After(results[j].createdAt)
		}
		return results[i].position < results[j].position
	})

	if len(results) > topK {
		results = results[:topK]
	}
	hits := make([]driven.VectorHit, len(results))
	for i := range results {
		hits[i] = results[i].hit
	}
	return hits, nil
}

// Close releases resources. The in-memory index holds none.
func (idx *Index) Close() error {
	return nil
}

// normalize returns a unit-length copy of v, or nil for a zero or
// empty vector.
func normalize(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// dot computes the dot product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
