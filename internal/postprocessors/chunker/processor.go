// Package chunker provides a token-budget text chunking processor.
//
// Chunking is deterministic: the same normalised document and the same
// (maxTokens, overlapTokens) configuration always yield the same chunk
// sequence. This is what makes re-ingestion reproducible and testable.
package chunker

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 500

// DefaultOverlapTokens is the default number of tokens carried from the
// tail of one chunk into the start of the next.
const DefaultOverlapTokens = 50

// Processor splits normalised documents into overlapping chunks bounded
// by a token budget. It implements the PostProcessor interface.
type Processor struct {
	maxTokens     int
	overlapTokens int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the token budget per chunk.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap between consecutive chunks.
func WithOverlapTokens(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlapTokens = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxTokens:     DefaultMaxTokens,
		overlapTokens: DefaultOverlapTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room for new content in every chunk.
	if p.overlapTokens >= p.maxTokens {
		p.overlapTokens = p.maxTokens / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// unit is the smallest piece the chunker moves around: a whole atomic
// segment (e.g. a transcript caption) or a single word of a non-atomic
// segment.
type unit struct {
	text    string
	tokens  int
	locator domain.Locator
	atomic  bool
}

// Process splits the document into chunks. Input chunks are ignored;
// this processor creates new chunks from the normalised segments.
func (p *Processor) Process(_ context.Context, documentID string, doc *domain.NormalizedDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	units := p.buildUnits(doc)
	if len(units) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	var current []unit
	currentTokens := 0
	carried := 0 // leading units of current that are overlap carry

	flush := func() {
		if len(current) <= carried {
			return
		}
		chunks = append(chunks, p.assemble(documentID, len(chunks), current, currentTokens))

		// Carry the trailing overlap into the next chunk's start.
		carry, carryTokens := tailWithin(current, p.overlapTokens)
		current = carry
		currentTokens = carryTokens
		carried = len(carry)
	}

	for _, u := range units {
		if currentTokens+u.tokens > p.maxTokens && currentTokens > 0 {
			flush()
			// A near-budget atomic unit may not fit beside the carry;
			// drop the carry rather than close a chunk over budget.
			if currentTokens+u.tokens > p.maxTokens {
				current = current[:0]
				currentTokens = 0
				carried = 0
			}
		}
		current = append(current, u)
		currentTokens += u.tokens
	}

	if len(current) > carried {
		chunks = append(chunks, p.assemble(documentID, len(chunks), current, currentTokens))
	}

	return chunks, nil
}

// buildUnits flattens segments into chunkable units. Atomic segments
// stay whole unless they alone exceed the budget, in which case
// splitting is unavoidable and they degrade to word units.
func (p *Processor) buildUnits(doc *domain.NormalizedDocument) []unit {
	var units []unit
	for _, seg := range doc.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		tokens := CountTokens(text)

		if seg.Atomic && tokens <= p.maxTokens {
			units = append(units, unit{text: text, tokens: tokens, locator: seg.Locator, atomic: true})
			continue
		}

		for _, word := range strings.Fields(text) {
			units = append(units, unit{text: word, tokens: 1, locator: seg.Locator})
		}
	}
	return units
}

// assemble joins units into a chunk, spanning their locators.
// Chunk IDs are fresh uuids; determinism is over content, position,
// locator and token count.
func (p *Processor) assemble(documentID string, position int, units []unit, tokens int) domain.Chunk {
	var b strings.Builder
	locator := units[0].locator

	for i, u := range units {
		if i > 0 {
			if u.atomic || units[i-1].atomic {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(u.text)
		locator = locator.Span(u.locator)
	}

	return domain.Chunk{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Position:   position,
		Content:    b.String(),
		Locator:    locator,
		TokenCount: tokens,
	}
}

// tailWithin returns the longest suffix of units whose token total does
// not exceed budget.
func tailWithin(units []unit, budget int) ([]unit, int) {
	if budget <= 0 {
		return nil, 0
	}
	total := 0
	start := len(units)
	for start > 0 && total+units[start-1].tokens <= budget {
		start--
		total += units[start].tokens
	}
	// Copy so the caller can keep appending without aliasing.
	tail := make([]unit, len(units)-start)
	copy(tail, units[start:])
	return tail, total
}
