package domain

import "time"

// SourceKind identifies the original format of an ingested document.
type SourceKind string

// Supported source kinds.
const (
	KindPDF     SourceKind = "pdf"
	KindArXiv   SourceKind = "arxiv"
	KindVTT     SourceKind = "vtt"
	KindWebpage SourceKind = "webpage"
	KindNotes   SourceKind = "notes"
)

// Valid reports whether the kind is one of the supported source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case KindPDF, KindArXiv, KindVTT, KindWebpage, KindNotes:
		return true
	}
	return false
}

// ProcessingState is the position of a document in the ingestion pipeline.
// The pipeline moves strictly forward:
//
//	queued → parsing → chunking → embedding → indexing → ready
//
// with empty and failed as terminal alternates reachable from any
// non-ready state.
type ProcessingState string

// Processing states.
const (
	StateQueued    ProcessingState = "queued"
	StateParsing   ProcessingState = "parsing"
	StateChunking  ProcessingState = "chunking"
	StateEmbedding ProcessingState = "embedding"
	StateIndexing  ProcessingState = "indexing"
	StateReady     ProcessingState = "ready"
	StateEmpty     ProcessingState = "empty"
	StateFailed    ProcessingState = "failed"
)

// Terminal reports whether no further pipeline stage may run.
func (s ProcessingState) Terminal() bool {
	return s == StateReady || s == StateEmpty || s == StateFailed
}

// stageOrder gives each pipeline stage a rank for transition validation.
var stageOrder = map[ProcessingState]int{
	StateQueued:    0,
	StateParsing:   1,
	StateChunking:  2,
	StateEmbedding: 3,
	StateIndexing:  4,
	StateReady:     5,
}

// CanTransition reports whether moving from s to next is a legal
// state-machine transition. Terminal alternates (empty, failed) are
// reachable from any non-terminal state; re-ingestion re-enters queued
// from any terminal state.
func (s ProcessingState) CanTransition(next ProcessingState) bool {
	if next == StateEmpty || next == StateFailed {
		return !s.Terminal()
	}
	if next == StateQueued {
		return s.Terminal() || s == ""
	}
	from, okFrom := stageOrder[s]
	to, okTo := stageOrder[next]
	return okFrom && okTo && to == from+1
}

// Document is an ingested source document owned by a collection.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// CollectionID is the owning collection.
	CollectionID string

	// Kind is the original source format.
	Kind SourceKind

	// Title is the human-readable title extracted during parsing.
	Title string

	// SourceRef locates the raw input: a blob store reference for
	// uploaded files, or a URL for arXiv papers and webpages.
	SourceRef string

	// State is the current processing state.
	State ProcessingState

	// IngestError holds the human-readable failure reason when State
	// is failed. Empty otherwise.
	IngestError string

	// CreatedAt is when the document was first registered.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed state.
	UpdatedAt time.Time
}

// RawSource is the input handed to a format adapter. For blob-backed
// kinds Data holds the fetched bytes; for network kinds (arxiv, webpage)
// Data may be nil and the adapter fetches URI itself.
type RawSource struct {
	// Kind is the source format.
	Kind SourceKind

	// URI is the original location (blob reference or URL).
	URI string

	// Data is the raw bytes, when already fetched from the blob store.
	Data []byte
}

// Segment is one unit of normalised text with its structural locator.
type Segment struct {
	// Text is the normalised text content.
	Text string

	// Locator describes where the segment came from in the source.
	Locator Locator

	// Atomic marks segments that should not be split across chunks
	// when avoidable (e.g. a transcript caption).
	Atomic bool
}

// NormalizedDocument is the ordered output of a format adapter:
// plain text segments tagged with structural locators. Adapters never
// chunk or embed; that happens downstream.
type NormalizedDocument struct {
	// Title is the extracted document title. May be empty.
	Title string

	// Segments is the ordered sequence of text segments.
	Segments []Segment
}

// Text concatenates all segment text. Used by tests and previews.
func (d *NormalizedDocument) Text() string {
	var out string
	for i, seg := range d.Segments {
		if i > 0 {
			out += "\n"
		}
		out += seg.Text
	}
	return out
}
