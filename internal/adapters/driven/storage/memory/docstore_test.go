package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquillm/aquillm/internal/core/domain"
)

func testDocument(id, collectionID string, createdAt time.Time) *domain.Document {
	return &domain.Document{
		ID:           id,
		CollectionID: collectionID,
		Kind:         domain.KindPDF,
		Title:        "title " + id,
		State:        domain.StateQueued,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestDocumentStore_SaveDocument_Success(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := testDocument("doc-1", "col-1", time.Now().UTC())
	require.NoError(t, store.SaveDocument(ctx, doc))

	// Verify it was saved
	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, domain.StateQueued, got.State)
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store := NewDocumentStore()

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments_ByCollectionSortedByCreation(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.SaveDocument(ctx, testDocument("newer", "col-1", base.Add(time.Minute))))
	require.NoError(t, store.SaveDocument(ctx, testDocument("older", "col-1", base)))
	require.NoError(t, store.SaveDocument(ctx, testDocument("elsewhere", "col-2", base)))

	docs, err := store.ListDocuments(ctx, "col-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "older", docs[0].ID)
	assert.Equal(t, "newer", docs[1].ID)
}

func TestDocumentStore_SetState_UpdatesStateAndError(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1", "col-1", time.Now().UTC())))
	require.NoError(t, store.SetState(ctx, "doc-1", domain.StateFailed, "parse: boom"))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, got.State)
	assert.Equal(t, "parse: boom", got.IngestError)

	assert.ErrorIs(t, store.SetState(ctx, "missing", domain.StateReady, ""), domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_GetChunksOrderedByPosition(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c2", DocumentID: "doc-1", Position: 1, Content: "second"},
		{ID: "c1", DocumentID: "doc-1", Position: 0, Content: "first"},
	}))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, "c2", chunks[1].ID)
}

func TestDocumentStore_GetChunk_ByID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Position: 0, Content: "text"},
	}))

	chunk, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "text", chunk.Content)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteChunks_RemovesAll(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Position: 0},
	}))
	require.NoError(t, store.DeleteChunks(ctx, "doc-1"))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_DeleteDocument_RemovesChunksToo(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, testDocument("doc-1", "col-1", time.Now().UTC())))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Position: 0},
	}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
