package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquillm/aquillm/internal/adapters/driven/storage/memory"
	vectormemory "github.com/aquillm/aquillm/internal/adapters/driven/vector/memory"
	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
	"github.com/aquillm/aquillm/internal/postprocessors"
	"github.com/aquillm/aquillm/internal/postprocessors/chunker"
)

// fakeEmbedder returns small deterministic vectors. A hook, when set,
// runs before any vectors are produced so tests can block or fail the
// call.
type fakeEmbedder struct {
	mu    sync.Mutex
	fail  error
	hook  func(ctx context.Context) error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	fail, hook := f.fail, f.hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if fail != nil {
		return nil, fail
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1, 0.5}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int            { return 3 }
func (f *fakeEmbedder) ModelName() string          { return "fake" }
func (f *fakeEmbedder) Ping(context.Context) error { return nil }
func (f *fakeEmbedder) Close() error               { return nil }

// scriptedAdapter serves one source kind with a programmable parse.
type scriptedAdapter struct {
	kind  domain.SourceKind
	parse func(ctx context.Context, src *domain.RawSource) (*domain.NormalizedDocument, error)
}

func (a *scriptedAdapter) Kind() domain.SourceKind { return a.kind }

func (a *scriptedAdapter) Parse(ctx context.Context, src *domain.RawSource, _ driven.ParseOptions) (*domain.NormalizedDocument, error) {
	return a.parse(ctx, src)
}

// stubRegistry dispatches to scripted adapters without the real format
// packages.
type stubRegistry struct {
	adapters map[domain.SourceKind]driven.FormatAdapter
}

func newStubRegistry(adapters ...driven.FormatAdapter) *stubRegistry {
	r := &stubRegistry{adapters: make(map[domain.SourceKind]driven.FormatAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *stubRegistry) Register(a driven.FormatAdapter) { r.adapters[a.Kind()] = a }

func (r *stubRegistry) Parse(ctx context.Context, src *domain.RawSource, opts driven.ParseOptions) (*domain.NormalizedDocument, error) {
	a, ok := r.adapters[src.Kind]
	if !ok {
		return nil, domain.ErrUnsupportedFormat
	}
	return a.Parse(ctx, src, opts)
}

func (r *stubRegistry) SupportedKinds() []domain.SourceKind { return nil }

type ingestFixture struct {
	orch     *IngestOrchestrator
	docs     *memory.DocumentStore
	blobs    *memory.BlobStore
	vector   *vectormemory.Index
	embedder *fakeEmbedder
	bus      *EventBus
	colID    string
}

func newIngestFixture(t *testing.T, adapters ...driven.FormatAdapter) *ingestFixture {
	t.Helper()
	ctx := context.Background()

	cols := memory.NewCollectionStore()
	col := &domain.Collection{ID: "col-1", Name: "papers", Path: "papers", CreatedAt: time.Now().UTC()}
	require.NoError(t, cols.Save(ctx, col))

	f := &ingestFixture{
		docs:     memory.NewDocumentStore(),
		blobs:    memory.NewBlobStore(),
		vector:   vectormemory.NewIndex(),
		embedder: &fakeEmbedder{},
		bus:      NewEventBus(memory.NewEventLog()),
		colID:    col.ID,
	}

	pipeline := postprocessors.NewPipeline(chunker.New(
		chunker.WithMaxTokens(20),
		chunker.WithOverlapTokens(0),
	))

	f.orch = NewIngestOrchestrator(
		cols, f.docs, f.blobs, newStubRegistry(adapters...), pipeline,
		f.embedder, f.vector, f.bus,
		IngestConfig{Workers: 2, MaxRetries: 2, RetryBackoff: time.Millisecond, QueueSize: 16},
	)
	f.orch.Start(ctx)
	t.Cleanup(f.orch.Stop)
	t.Cleanup(f.bus.Close)
	return f
}

func textAdapter(kind domain.SourceKind, text string) *scriptedAdapter {
	return &scriptedAdapter{
		kind: kind,
		parse: func(context.Context, *domain.RawSource) (*domain.NormalizedDocument, error) {
			return &domain.NormalizedDocument{
				Title:    "Parsed Title",
				Segments: []domain.Segment{{Text: text, Locator: domain.Locator{Page: 1}}},
			}, nil
		},
	}
}

func TestIngestOrchestrator_Ingest_HappyPath(t *testing.T) {
	f := newIngestFixture(t, textAdapter(domain.KindWebpage, "some article text about retrieval"))
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com/article",
	})
	require.NoError(t, err)

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, status.State)
	require.Equal(t, 1, status.ChunkCount)

	// Title was backfilled from the parsed document.
	saved, err := f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Parsed Title", saved.Title)

	// Chunks carry embeddings and are searchable.
	chunks, err := f.docs.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].Embedding, 3)

	hits, err := f.vector.Search(ctx, []float32{1, 1, 1}, []string{f.colID}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, doc.ID, hits[0].DocumentID)
}

func TestIngestOrchestrator_Ingest_PublishesStageEvents(t *testing.T) {
	f := newIngestFixture(t, textAdapter(domain.KindWebpage, "short text"))
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com",
	})
	require.NoError(t, err)
	_, err = f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)

	events, err := f.bus.Replay(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	var messages []string
	for _, ev := range events {
		if ev.SourceID == doc.ID {
			messages = append(messages, ev.Message)
		}
	}
	assert.Equal(t, []string{
		"queued for ingestion",
		"parsing",
		"chunking",
		"embedding",
		"indexing",
		"ready",
		"ready: 1 chunks",
	}, messages)
}

func TestIngestOrchestrator_Ingest_BlobBackedKindReadsBlob(t *testing.T) {
	var gotData []byte
	adapter := &scriptedAdapter{
		kind: domain.KindVTT,
		parse: func(_ context.Context, src *domain.RawSource) (*domain.NormalizedDocument, error) {
			gotData = src.Data
			return &domain.NormalizedDocument{
				Segments: []domain.Segment{{Text: "caption text", Atomic: true}},
			}, nil
		},
	}
	f := newIngestFixture(t, adapter)
	ctx := context.Background()

	ref, err := f.blobs.Put(ctx, []byte("WEBVTT payload"))
	require.NoError(t, err)

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindVTT,
		SourceRef:    ref,
	})
	require.NoError(t, err)

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, status.State)
	assert.Equal(t, []byte("WEBVTT payload"), gotData)
}

func TestIngestOrchestrator_Ingest_InvalidKind(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.orch.Ingest(context.Background(), driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         "docx",
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestIngestOrchestrator_Ingest_UnknownCollection(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.orch.Ingest(context.Background(), driving.IngestRequest{
		CollectionID: "missing",
		Kind:         domain.KindWebpage,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestOrchestrator_Ingest_EmptyDocument(t *testing.T) {
	adapter := &scriptedAdapter{
		kind: domain.KindWebpage,
		parse: func(context.Context, *domain.RawSource) (*domain.NormalizedDocument, error) {
			return &domain.NormalizedDocument{}, nil
		},
	}
	f := newIngestFixture(t, adapter)
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com/blank",
	})
	require.NoError(t, err)

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateEmpty, status.State)
	assert.Zero(t, status.ChunkCount)
	assert.Empty(t, status.Error)
}

func TestIngestOrchestrator_Ingest_ParseFailure(t *testing.T) {
	adapter := &scriptedAdapter{
		kind: domain.KindWebpage,
		parse: func(context.Context, *domain.RawSource) (*domain.NormalizedDocument, error) {
			return nil, fmt.Errorf("%w: mangled markup", domain.ErrCorruptInput)
		},
	}
	f := newIngestFixture(t, adapter)
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com/bad",
	})
	require.NoError(t, err)

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, status.State)
	assert.Contains(t, status.Error, "mangled markup")

	// Permanent failures are not retried.
	events, err := f.bus.Replay(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	var errorEvents int
	for _, ev := range events {
		if ev.SourceID == doc.ID && ev.Severity == domain.SeverityError {
			errorEvents++
		}
	}
	assert.Equal(t, 1, errorEvents)
}

func TestIngestOrchestrator_Ingest_TransientFailureRetried(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	adapter := &scriptedAdapter{
		kind: domain.KindWebpage,
		parse: func(context.Context, *domain.RawSource) (*domain.NormalizedDocument, error) {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts <= 2 {
				return nil, fmt.Errorf("%w: connection reset", domain.ErrFetchTransient)
			}
			return &domain.NormalizedDocument{
				Segments: []domain.Segment{{Text: "finally fetched"}},
			}, nil
		},
	}
	f := newIngestFixture(t, adapter)
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com/flaky",
	})
	require.NoError(t, err)

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, status.State)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestIngestOrchestrator_Ingest_TransientFailureExhaustsRetries(t *testing.T) {
	adapter := &scriptedAdapter{
		kind: domain.KindWebpage,
		parse: func(context.Context, *domain.RawSource) (*domain.NormalizedDocument, error) {
			return nil, fmt.Errorf("%w: still down", domain.ErrFetchTransient)
		},
	}
	f := newIngestFixture(t, adapter)
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com/down",
	})
	require.NoError(t, err)

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, status.State)
	assert.Contains(t, status.Error, "still down")
}

func TestIngestOrchestrator_Ingest_EmbeddingFailure(t *testing.T) {
	f := newIngestFixture(t, textAdapter(domain.KindWebpage, "text to embed"))
	f.embedder.fail = errors.New("model unavailable")
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com",
	})
	require.NoError(t, err)

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, status.State)
	assert.Contains(t, status.Error, "embedding failed")

	// Nothing was persisted or indexed.
	assert.Zero(t, status.ChunkCount)
	hits, err := f.vector.Search(ctx, []float32{1, 1, 1}, []string{f.colID}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIngestOrchestrator_Reingest_ReplacesChunks(t *testing.T) {
	f := newIngestFixture(t, textAdapter(domain.KindWebpage, "the same article either run"))
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com",
	})
	require.NoError(t, err)
	_, err = f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, f.orch.Reingest(ctx, doc.ID))
	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StateReady, status.State)
	assert.Equal(t, 1, status.ChunkCount)

	hits, err := f.vector.Search(ctx, []float32{1, 1, 1}, []string{f.colID}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIngestOrchestrator_Reingest_RejectedWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce sync.Once
	adapter := &scriptedAdapter{
		kind: domain.KindWebpage,
		parse: func(ctx context.Context, _ *domain.RawSource) (*domain.NormalizedDocument, error) {
			// The re-ingest at the end runs this adapter a second time.
			startOnce.Do(func() { close(started) })
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &domain.NormalizedDocument{Segments: []domain.Segment{{Text: "slow"}}}, nil
		},
	}
	f := newIngestFixture(t, adapter)
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com/slow",
	})
	require.NoError(t, err)

	<-started
	assert.ErrorIs(t, f.orch.Reingest(ctx, doc.ID), domain.ErrIngestInProgress)

	close(release)
	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, status.State)

	// Once the pipeline finished, re-ingestion is allowed again.
	require.NoError(t, f.orch.Reingest(ctx, doc.ID))
	_, err = f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
}

func TestIngestOrchestrator_Reingest_HidesDocumentWhileQueued(t *testing.T) {
	running := make(chan struct{}, 2)
	release := make(chan struct{})
	slow := &scriptedAdapter{
		kind: domain.KindArXiv,
		parse: func(ctx context.Context, _ *domain.RawSource) (*domain.NormalizedDocument, error) {
			running <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &domain.NormalizedDocument{Segments: []domain.Segment{{Text: "slow"}}}, nil
		},
	}
	f := newIngestFixture(t, textAdapter(domain.KindWebpage, "the same article either run"), slow)
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com",
	})
	require.NoError(t, err)
	_, err = f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)

	// Occupy both workers so the re-ingest job stays queued.
	for _, ref := range []string{"1706.03762", "1810.04805"} {
		_, err := f.orch.Ingest(ctx, driving.IngestRequest{
			CollectionID: f.colID,
			Kind:         domain.KindArXiv,
			SourceRef:    ref,
		})
		require.NoError(t, err)
	}
	<-running
	<-running

	require.NoError(t, f.orch.Reingest(ctx, doc.ID))

	// While the document waits for a worker it is queued, not ready,
	// and must be invisible to search.
	saved, err := f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateQueued, saved.State)

	hits, err := f.vector.Search(ctx, []float32{1, 1, 1}, []string{f.colID}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	close(release)
	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, status.State)

	hits, err = f.vector.Search(ctx, []float32{1, 1, 1}, []string{f.colID}, 10)
	require.NoError(t, err)
	var docHits int
	for _, hit := range hits {
		if hit.DocumentID == doc.ID {
			docHits++
		}
	}
	assert.Equal(t, 1, docHits)
}

func TestIngestOrchestrator_Cancel_StopsPipeline(t *testing.T) {
	started := make(chan struct{})
	adapter := &scriptedAdapter{
		kind: domain.KindWebpage,
		parse: func(ctx context.Context, _ *domain.RawSource) (*domain.NormalizedDocument, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	f := newIngestFixture(t, adapter)
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com/hang",
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, f.orch.Cancel(ctx, doc.ID))

	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, status.State)
	assert.Equal(t, domain.ErrCancelled.Error(), status.Error)
}

func TestIngestOrchestrator_Cancel_MidEmbedding(t *testing.T) {
	f := newIngestFixture(t, textAdapter(domain.KindWebpage, "text to embed"))
	embedding := make(chan struct{})
	f.embedder.hook = func(ctx context.Context) error {
		close(embedding)
		<-ctx.Done()
		return ctx.Err()
	}
	ctx := context.Background()

	doc, err := f.orch.Ingest(ctx, driving.IngestRequest{
		CollectionID: f.colID,
		Kind:         domain.KindWebpage,
		SourceRef:    "https://example.com",
	})
	require.NoError(t, err)

	<-embedding
	require.NoError(t, f.orch.Cancel(ctx, doc.ID))

	// The recorded reason is the cancellation, not an embedding failure.
	status, err := f.orch.Wait(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, status.State)
	assert.Equal(t, domain.ErrCancelled.Error(), status.Error)

	// No chunks survive the cancelled run.
	assert.Zero(t, status.ChunkCount)
	hits, err := f.vector.Search(ctx, []float32{1, 1, 1}, []string{f.colID}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIngestOrchestrator_Cancel_NotRunning(t *testing.T) {
	f := newIngestFixture(t)

	err := f.orch.Cancel(context.Background(), "idle-doc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestOrchestrator_Status_UnknownDocument(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.orch.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
