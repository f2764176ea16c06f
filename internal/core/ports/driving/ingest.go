package driving

import (
	"context"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// IngestRequest registers a new document for ingestion.
type IngestRequest struct {
	// CollectionID is the owning collection.
	CollectionID string

	// Kind is the source format.
	Kind domain.SourceKind

	// Title is an optional display title; adapters may override it
	// with an extracted one.
	Title string

	// SourceRef is a blob store reference or, for arxiv/webpage, a URL.
	SourceRef string

	// ConvertLaTeX asks the notes adapter for LaTeX output.
	ConvertLaTeX bool
}

// IngestStatus describes the pipeline position of one document.
type IngestStatus struct {
	// DocumentID identifies the document.
	DocumentID string

	// State is the current processing state.
	State domain.ProcessingState

	// ChunkCount is the number of chunks produced so far.
	ChunkCount int

	// Error is the failure reason for failed documents.
	Error string
}

// IngestOrchestrator drives documents through the processing pipeline.
type IngestOrchestrator interface {
	// Ingest registers a document and queues its pipeline.
	// Returns the created document.
	Ingest(ctx context.Context, req IngestRequest) (*domain.Document, error)

	// Reingest re-runs the pipeline for an existing document from
	// queued, discarding chunks from the previous run. Returns
	// domain.ErrIngestInProgress while a pipeline is active.
	Reingest(ctx context.Context, documentID string) error

	// Cancel stops an in-flight ingestion at the next stage boundary.
	Cancel(ctx context.Context, documentID string) error

	// Status reports the pipeline position of a document.
	Status(ctx context.Context, documentID string) (*IngestStatus, error)

	// Wait blocks until the document reaches a terminal state or the
	// context is done. Used by the CLI and tests.
	Wait(ctx context.Context, documentID string) (*IngestStatus, error)
}
