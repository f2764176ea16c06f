package chunker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquillm/aquillm/internal/core/domain"
)

func TestProcessor_Process_SingleChunkForSmallInput(t *testing.T) {
	p := New(WithMaxTokens(100), WithOverlapTokens(0))

	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{
			{Text: "a short paragraph of text", Locator: domain.Locator{Page: 1}},
		},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, "a short paragraph of text", chunks[0].Content)
	assert.Equal(t, 5, chunks[0].TokenCount)
	assert.Equal(t, 1, chunks[0].Locator.Page)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestProcessor_Process_SplitsAtTokenBudget(t *testing.T) {
	p := New(WithMaxTokens(5), WithOverlapTokens(0))

	words := []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8", "w9", "w10", "w11", "w12"}
	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{{Text: strings.Join(words, " ")}},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "w1 w2 w3 w4 w5", chunks[0].Content)
	assert.Equal(t, "w6 w7 w8 w9 w10", chunks[1].Content)
	assert.Equal(t, "w11 w12", chunks[2].Content)

	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.LessOrEqual(t, c.TokenCount, 5)
	}
}

func TestProcessor_Process_OverlapCarriesTail(t *testing.T) {
	p := New(WithMaxTokens(4), WithOverlapTokens(2))

	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{{Text: "w1 w2 w3 w4 w5 w6 w7 w8"}},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "w1 w2 w3 w4", chunks[0].Content)
	assert.Equal(t, "w3 w4 w5 w6", chunks[1].Content)
	assert.Equal(t, "w5 w6 w7 w8", chunks[2].Content)
}

func TestProcessor_Process_DropsCarryWhenAtomicUnitFills(t *testing.T) {
	p := New(WithMaxTokens(10), WithOverlapTokens(3))

	cue := "c1 c2 c3 c4 c5 c6 c7 c8 c9"
	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{
			{Text: "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10"},
			{Text: cue, Atomic: true, Locator: domain.Locator{StartTime: time.Minute}},
		},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// The near-budget cue leaves no room for the overlap carry; the
	// carry is dropped so the budget holds.
	assert.Equal(t, cue, chunks[1].Content)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 10)
	}
}

func TestProcessor_Process_Deterministic(t *testing.T) {
	p := New(WithMaxTokens(6), WithOverlapTokens(2))

	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{
			{Text: "the quick brown fox jumps over the lazy dog and keeps running", Locator: domain.Locator{Page: 1}},
			{Text: "a second paragraph with more words to fill the budget", Locator: domain.Locator{Page: 2}},
		},
	}

	first, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].Position, second[i].Position)
		assert.Equal(t, first[i].Locator, second[i].Locator)
		assert.Equal(t, first[i].TokenCount, second[i].TokenCount)
		// IDs are fresh per run.
		assert.NotEqual(t, first[i].ID, second[i].ID)
	}
}

func TestProcessor_Process_AtomicSegmentsStayWhole(t *testing.T) {
	p := New(WithMaxTokens(5), WithOverlapTokens(0))

	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{
			{Text: "first caption here", Atomic: true, Locator: domain.Locator{StartTime: 0, EndTime: 4 * time.Second}},
			{Text: "second caption here", Atomic: true, Locator: domain.Locator{StartTime: 4 * time.Second, EndTime: 8 * time.Second}},
			{Text: "third caption here", Atomic: true, Locator: domain.Locator{StartTime: 8 * time.Second, EndTime: 12 * time.Second}},
		},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// No caption is split mid-cue.
	assert.Equal(t, "first caption here", chunks[0].Content)
	assert.Equal(t, "second caption here", chunks[1].Content)
	assert.Equal(t, "third caption here", chunks[2].Content)

	assert.Equal(t, 4*time.Second, chunks[0].Locator.EndTime)
	assert.Equal(t, 4*time.Second, chunks[1].Locator.StartTime)
}

func TestProcessor_Process_AdjacentAtomicSegmentsJoinedByNewline(t *testing.T) {
	p := New(WithMaxTokens(10), WithOverlapTokens(0))

	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{
			{Text: "first caption", Atomic: true, Locator: domain.Locator{EndTime: 2 * time.Second}},
			{Text: "second caption", Atomic: true, Locator: domain.Locator{StartTime: 2 * time.Second, EndTime: 4 * time.Second}},
		},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "first caption\nsecond caption", chunks[0].Content)
	assert.Equal(t, 4*time.Second, chunks[0].Locator.EndTime)
}

func TestProcessor_Process_OversizedAtomicSegmentDegradesToWords(t *testing.T) {
	p := New(WithMaxTokens(3), WithOverlapTokens(0))

	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{
			{Text: "one two three four five", Atomic: true},
		},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "one two three", chunks[0].Content)
	assert.Equal(t, "four five", chunks[1].Content)
}

func TestProcessor_Process_EmptyDocument(t *testing.T) {
	p := New()

	chunks, err := p.Process(context.Background(), "doc-1", &domain.NormalizedDocument{}, nil)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestProcessor_Process_SkipsBlankSegments(t *testing.T) {
	p := New()

	doc := &domain.NormalizedDocument{
		Segments: []domain.Segment{
			{Text: "   "},
			{Text: "actual content"},
			{Text: "\n\t"},
		},
	}

	chunks, err := p.Process(context.Background(), "doc-1", doc, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "actual content", chunks[0].Content)
}

func TestNew_ClampsOverlapBelowBudget(t *testing.T) {
	p := New(WithMaxTokens(8), WithOverlapTokens(8))
	assert.Equal(t, 2, p.overlapTokens)
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Equal(t, 0, CountTokens("   "))
	assert.Equal(t, 3, CountTokens("one two three"))
	assert.Equal(t, 2, CountTokens("  spaced\tout  "))
}
