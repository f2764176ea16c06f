package domain

import (
	"fmt"
	"time"
)

// Locator describes where a span of text sits in its source document.
// Which fields are meaningful depends on the source kind: page for PDFs,
// character offsets for webpages and notes, timestamps for transcripts.
type Locator struct {
	// Page is the 1-based page number. Zero when not applicable.
	Page int

	// Section is a named section heading, when the format provides one.
	Section string

	// StartOffset and EndOffset are character offsets into the
	// normalised text of the source.
	StartOffset int
	EndOffset   int

	// StartTime and EndTime bound transcript cues.
	StartTime time.Duration
	EndTime   time.Duration
}

// Span returns a locator covering both l and other.
func (l Locator) Span(other Locator) Locator {
	out := l
	if other.Page > out.Page {
		// Keep the starting page; callers display ranges themselves.
		if out.Page == 0 {
			out.Page = other.Page
		}
	}
	if other.EndOffset > out.EndOffset {
		out.EndOffset = other.EndOffset
	}
	if other.EndTime > out.EndTime {
		out.EndTime = other.EndTime
	}
	return out
}

// String renders a short human-readable position, used in citations.
func (l Locator) String() string {
	switch {
	case l.EndTime > 0:
		return fmt.Sprintf("%s–%s", formatTimestamp(l.StartTime), formatTimestamp(l.EndTime))
	case l.Page > 0:
		return fmt.Sprintf("p.%d", l.Page)
	case l.Section != "":
		return l.Section
	default:
		return fmt.Sprintf("chars %d–%d", l.StartOffset, l.EndOffset)
	}
}

func formatTimestamp(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Chunk is the atomic retrieval grain: a bounded unit of normalised
// document text plus its embedding vector. Chunks are immutable once
// created; re-ingesting or deleting the owning document removes them.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Position is the ordinal position within the document.
	Position int

	// Content is the chunk text.
	Content string

	// Locator is the structural range the chunk spans.
	Locator Locator

	// Embedding is the vector representation for similarity search.
	// Its length must match the configured embedding model dimensions.
	Embedding []float32

	// TokenCount is the estimated token count of Content.
	TokenCount int
}
