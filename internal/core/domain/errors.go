package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion errors.

	// ErrUnsupportedFormat indicates no adapter handles the source kind.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptInput indicates the source bytes could not be parsed.
	// Not retried.
	ErrCorruptInput = errors.New("corrupt input")

	// ErrFetchFailed indicates a permanent network fetch failure
	// (e.g. 404 from arXiv). Not retried.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrFetchTransient indicates a retryable network failure:
	// a timeout, connection error or 5xx response.
	ErrFetchTransient = errors.New("transient fetch failure")

	// ErrOCRFailed indicates handwritten-note recognition failed.
	ErrOCRFailed = errors.New("OCR failed")

	// ErrIngestInProgress indicates a pipeline is already running for
	// the document. Concurrent re-ingestion requests are rejected.
	ErrIngestInProgress = errors.New("ingestion already in progress")

	// ErrCancelled indicates the ingestion was cancelled by the user.
	ErrCancelled = errors.New("cancelled")

	// ErrPDFToolNotFound indicates the pdftotext binary is not on PATH.
	ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

	// Retrieval and chat errors.

	// ErrScopeEmpty indicates no collections were supplied for a query.
	// Rejected before any network call.
	ErrScopeEmpty = errors.New("no collections in scope")

	// ErrEmbeddingFailed indicates the embedding capability failed or
	// is unreachable. Surfaced to the caller; the turn is marked failed.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrCompletionUnavailable indicates the completion capability
	// failed or is unreachable. The assistant turn is not persisted.
	ErrCompletionUnavailable = errors.New("completion capability unavailable")

	// Collection errors.

	// ErrCycle indicates a move would make a collection its own
	// descendant.
	ErrCycle = errors.New("collection cycle")
)

// Transient reports whether err should be retried with backoff rather
// than failing the pipeline immediately.
func Transient(err error) bool {
	return errors.Is(err, ErrFetchTransient)
}
