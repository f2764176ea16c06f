package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
	"github.com/aquillm/aquillm/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestOrchestrator = (*IngestOrchestrator)(nil)

// IngestConfig tunes the ingestion orchestrator.
type IngestConfig struct {
	// Workers is the pipeline worker pool size.
	Workers int

	// MaxRetries bounds retries of transient failures per stage.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration

	// QueueSize bounds the pending document queue.
	QueueSize int
}

// DefaultIngestConfig returns sensible defaults.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Workers:      4,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		QueueSize:    256,
	}
}

// IngestOrchestrator drives each document through the processing state
// machine: queued → parsing → chunking → embedding → indexing → ready,
// with empty and failed as terminal alternates.
//
// Documents ingest concurrently on a worker pool; stages within one
// document run strictly sequentially. At most one pipeline is in flight
// per document. Chunks are only persisted during the indexing stage, so
// cancellation or a crash before then leaves no partial chunk set.
type IngestOrchestrator struct {
	colStore  driven.CollectionStore
	docStore  driven.DocumentStore
	blobStore driven.BlobStore
	registry  driven.AdapterRegistry
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	vector    driven.VectorIndex
	bus       driving.EventBus
	cfg       IngestConfig

	queue chan string

	mu      sync.Mutex
	active  map[string]*pipelineRun // documentID → in-flight run
	started bool
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// pipelineRun tracks one in-flight pipeline.
type pipelineRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   driven.ParseOptions
}

// NewIngestOrchestrator creates the orchestrator. Start must be called
// before documents are processed.
func NewIngestOrchestrator(
	colStore driven.CollectionStore,
	docStore driven.DocumentStore,
	blobStore driven.BlobStore,
	registry driven.AdapterRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	vector driven.VectorIndex,
	bus driving.EventBus,
	cfg IngestConfig,
) *IngestOrchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultIngestConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultIngestConfig().QueueSize
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultIngestConfig().RetryBackoff
	}
	return &IngestOrchestrator{
		colStore:  colStore,
		docStore:  docStore,
		blobStore: blobStore,
		registry:  registry,
		pipeline:  pipeline,
		embedder:  embedder,
		vector:    vector,
		bus:       bus,
		cfg:       cfg,
		queue:     make(chan string, cfg.QueueSize),
		active:    make(map[string]*pipelineRun),
	}
}

// Start launches the worker pool. Workers run until Stop is called.
func (o *IngestOrchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.started = true
	o.baseCtx, o.stop = context.WithCancel(ctx)

	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
}

// Stop shuts the pool down and waits for in-flight pipelines to finish
// their current stage.
func (o *IngestOrchestrator) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	o.stop()
	o.mu.Unlock()
	o.wg.Wait()
}

// Ingest registers a document and queues its pipeline.
func (o *IngestOrchestrator) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.Document, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: source kind %q", domain.ErrUnsupportedFormat, req.Kind)
	}
	if _, err := o.colStore.Get(ctx, req.CollectionID); err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:           uuid.New().String(),
		CollectionID: req.CollectionID,
		Kind:         req.Kind,
		Title:        req.Title,
		SourceRef:    req.SourceRef,
		State:        domain.StateQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	o.publish(doc.ID, domain.SeverityInfo, "queued for ingestion")
	if err := o.enqueue(ctx, doc.ID, driven.ParseOptions{ConvertLaTeX: req.ConvertLaTeX}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reingest re-runs the pipeline for an existing document.
func (o *IngestOrchestrator) Reingest(ctx context.Context, documentID string) error {
	doc, err := o.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	o.mu.Lock()
	_, running := o.active[documentID]
	o.mu.Unlock()
	if running {
		return domain.ErrIngestInProgress
	}

	// Old vectors come out before the re-queue, so search cannot
	// surface chunks of a document that is no longer ready while the
	// job waits for a worker.
	if err := o.vector.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("clear vectors: %w", err)
	}
	if err := o.docStore.SetState(ctx, doc.ID, domain.StateQueued, ""); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	o.publish(doc.ID, domain.SeverityInfo, "queued for re-ingestion")
	return o.enqueue(ctx, doc.ID, driven.ParseOptions{})
}

// Cancel stops an in-flight ingestion at the next stage boundary.
func (o *IngestOrchestrator) Cancel(_ context.Context, documentID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.active[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	run.cancel()
	return nil
}

// Status reports the pipeline position of a document.
func (o *IngestOrchestrator) Status(ctx context.Context, documentID string) (*driving.IngestStatus, error) {
	doc, err := o.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	chunks, err := o.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &driving.IngestStatus{
		DocumentID: doc.ID,
		State:      doc.State,
		ChunkCount: len(chunks),
		Error:      doc.IngestError,
	}, nil
}

// Wait blocks until the document reaches a terminal state.
func (o *IngestOrchestrator) Wait(ctx context.Context, documentID string) (*driving.IngestStatus, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		status, err := o.Status(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if status.State.Terminal() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

// enqueue registers the run and places the document on the queue.
// The at-most-one-in-flight guarantee lives here: a document already
// registered is rejected.
func (o *IngestOrchestrator) enqueue(ctx context.Context, documentID string, opts driven.ParseOptions) error {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return fmt.Errorf("ingest orchestrator not started")
	}
	if _, ok := o.active[documentID]; ok {
		o.mu.Unlock()
		return domain.ErrIngestInProgress
	}
	runCtx, cancel := context.WithCancel(o.baseCtx)
	o.active[documentID] = &pipelineRun{ctx: runCtx, cancel: cancel, opts: opts}
	o.mu.Unlock()

	select {
	case o.queue <- documentID:
		return nil
	case <-ctx.Done():
		o.clearRun(documentID)
		return ctx.Err()
	}
}

// worker pulls documents off the queue and runs their pipelines.
func (o *IngestOrchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case <-o.baseCtx.Done():
			return
		case documentID := <-o.queue:
			o.runPipeline(documentID)
		}
	}
}

// runPipeline executes all stages for one document.
//
//nolint:gocyclo // Pipeline orchestration with necessary sequential stages
func (o *IngestOrchestrator) runPipeline(documentID string) {
	o.mu.Lock()
	run, ok := o.active[documentID]
	o.mu.Unlock()
	if !ok {
		return
	}
	defer o.clearRun(documentID)

	// The run context is cancelled either by Cancel or by Stop.
	ctx := run.ctx
	defer run.cancel()

	doc, err := o.docStore.GetDocument(ctx, documentID)
	if err != nil {
		logger.Warn("pipeline: get document %s: %v", documentID, err)
		return
	}

	logger.Section("Ingest " + documentID)

	// Discard chunks from any previous run before the pipeline starts,
	// so no partial or duplicate chunks can survive a retry. The
	// document is not ready from here on, making it invisible to search.
	if err := o.vector.DeleteDocument(ctx, documentID); err != nil {
		o.fail(doc, fmt.Errorf("clear vectors: %w", err))
		return
	}
	if err := o.docStore.DeleteChunks(ctx, documentID); err != nil {
		o.fail(doc, fmt.Errorf("clear chunks: %w", err))
		return
	}

	// Stage: parsing.
	if !o.transition(ctx, doc, domain.StateParsing) {
		return
	}
	normalized, err := o.parse(ctx, doc, run.opts)
	if err != nil {
		o.fail(doc, err)
		return
	}
	if len(normalized.Segments) == 0 {
		o.finishEmpty(doc)
		return
	}
	if doc.Title == "" && normalized.Title != "" {
		doc.Title = normalized.Title
		if err := o.docStore.SaveDocument(ctx, doc); err != nil {
			o.fail(doc, fmt.Errorf("save title: %w", err))
			return
		}
	}

	// Stage: chunking.
	if !o.transition(ctx, doc, domain.StateChunking) {
		return
	}
	chunks, err := o.pipeline.Process(ctx, doc.ID, normalized)
	if err != nil {
		o.fail(doc, fmt.Errorf("chunk: %w", err))
		return
	}
	if len(chunks) == 0 {
		o.finishEmpty(doc)
		return
	}

	// Stage: embedding.
	if !o.transition(ctx, doc, domain.StateEmbedding) {
		return
	}
	if err := o.embed(ctx, chunks); err != nil {
		o.fail(doc, err)
		return
	}

	// Stage: indexing. Chunk writes and the index swap commit together;
	// nothing before this point has persisted any chunk.
	if !o.transition(ctx, doc, domain.StateIndexing) {
		return
	}
	if err := o.docStore.SaveChunks(ctx, chunks); err != nil {
		o.fail(doc, fmt.Errorf("save chunks: %w", err))
		return
	}
	if err := o.vector.UpsertDocument(ctx, doc.ID, doc.CollectionID, doc.CreatedAt, chunks); err != nil {
		// Keep store and index consistent: a failed swap removes the
		// half-written chunk rows too.
		if delErr := o.docStore.DeleteChunks(ctx, doc.ID); delErr != nil {
			logger.Warn("rollback chunks for %s: %v", doc.ID, delErr)
		}
		o.fail(doc, fmt.Errorf("index vectors: %w", err))
		return
	}

	if !o.transition(ctx, doc, domain.StateReady) {
		return
	}
	o.publish(doc.ID, domain.SeveritySuccess, fmt.Sprintf("ready: %d chunks", len(chunks)))
	logger.Info("Document %s ready with %d chunks", doc.ID, len(chunks))
}

// parse loads the raw source and runs the format adapter with retry on
// transient fetch failures.
func (o *IngestOrchestrator) parse(ctx context.Context, doc *domain.Document, opts driven.ParseOptions) (*domain.NormalizedDocument, error) {
	src := &domain.RawSource{Kind: doc.Kind, URI: doc.SourceRef}

	// Blob-backed kinds read their bytes up front; network kinds
	// (arxiv, webpage) fetch inside the adapter.
	switch doc.Kind {
	case domain.KindPDF, domain.KindVTT, domain.KindNotes:
		data, err := o.blobStore.Get(ctx, doc.SourceRef)
		if err != nil {
			return nil, fmt.Errorf("get blob: %w", err)
		}
		src.Data = data
	}

	var normalized *domain.NormalizedDocument
	err := o.retryTransient(ctx, func() error {
		var parseErr error
		normalized, parseErr = o.registry.Parse(ctx, src, opts)
		return parseErr
	})
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return normalized, nil
}

// embed fills chunk embeddings in batches, retrying transient failures.
func (o *IngestOrchestrator) embed(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	var vectors [][]float32
	err := o.retryTransient(ctx, func() error {
		var embedErr error
		vectors, embedErr = o.embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		// A cancellation that lands mid-embedding must be recorded as
		// cancelled, not as an embedding failure.
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	dims := o.embedder.Dimensions()
	for i := range chunks {
		if len(vectors[i]) != dims {
			return fmt.Errorf("%w: vector dimension %d, model %d", domain.ErrEmbeddingFailed, len(vectors[i]), dims)
		}
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

// retryTransient runs fn, retrying transient failures with doubling
// backoff up to the configured bound. Cancellation wins over retries.
func (o *IngestOrchestrator) retryTransient(ctx context.Context, fn func() error) error {
	backoff := o.cfg.RetryBackoff
	var err error

	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !domain.Transient(err) || attempt >= o.cfg.MaxRetries {
			return err
		}

		logger.Debug("transient failure (attempt %d/%d), retrying in %s: %v",
			attempt+1, o.cfg.MaxRetries, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// transition moves the document to the next stage, publishing a status
// event. Returns false when the transition could not happen (cancelled
// or store failure), in which case the pipeline must stop.
func (o *IngestOrchestrator) transition(ctx context.Context, doc *domain.Document, next domain.ProcessingState) bool {
	// Cancellation takes effect at stage boundaries.
	if ctx.Err() != nil {
		o.fail(doc, domain.ErrCancelled)
		return false
	}
	if !doc.State.CanTransition(next) {
		o.fail(doc, fmt.Errorf("illegal transition %s → %s", doc.State, next))
		return false
	}
	// Persist outside the (possibly cancelled) run context so terminal
	// bookkeeping always lands.
	if err := o.docStore.SetState(context.Background(), doc.ID, next, ""); err != nil {
		logger.Warn("set state %s for %s: %v", next, doc.ID, err)
		o.fail(doc, fmt.Errorf("persist state: %w", err))
		return false
	}
	doc.State = next
	o.publish(doc.ID, domain.SeverityInfo, string(next))
	return true
}

// fail moves the document to the failed terminal state with a reason.
func (o *IngestOrchestrator) fail(doc *domain.Document, cause error) {
	reason := cause.Error()
	if errors.Is(cause, context.Canceled) {
		cause = domain.ErrCancelled
		reason = domain.ErrCancelled.Error()
	}
	if err := o.docStore.SetState(context.Background(), doc.ID, domain.StateFailed, reason); err != nil {
		logger.Warn("mark %s failed: %v", doc.ID, err)
	}
	doc.State = domain.StateFailed
	doc.IngestError = reason
	o.publish(doc.ID, domain.SeverityError, reason)
	logger.Warn("Document %s failed: %s", doc.ID, reason)
}

// finishEmpty moves the document to the empty terminal state: the
// source parsed fine but produced no extractable text.
func (o *IngestOrchestrator) finishEmpty(doc *domain.Document) {
	if err := o.docStore.SetState(context.Background(), doc.ID, domain.StateEmpty, ""); err != nil {
		logger.Warn("mark %s empty: %v", doc.ID, err)
	}
	doc.State = domain.StateEmpty
	o.publish(doc.ID, domain.SeveritySuccess, "no extractable text")
}

// publish emits a status event for the document.
func (o *IngestOrchestrator) publish(documentID string, severity domain.Severity, message string) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(domain.StatusEvent{
		SourceID: documentID,
		Severity: severity,
		Message:  message,
	})
}

// clearRun removes the in-flight record for a document.
func (o *IngestOrchestrator) clearRun(documentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, documentID)
}
