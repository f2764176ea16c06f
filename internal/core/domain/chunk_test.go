package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocator_String_ByKind(t *testing.T) {
	assert.Equal(t, "00:01:30–00:02:00", Locator{
		StartTime: 90 * time.Second,
		EndTime:   2 * time.Minute,
	}.String())

	assert.Equal(t, "p.7", Locator{Page: 7}.String())
	assert.Equal(t, "Abstract", Locator{Section: "Abstract"}.String())
	assert.Equal(t, "chars 10–250", Locator{StartOffset: 10, EndOffset: 250}.String())
}

func TestLocator_Span_ExtendsRanges(t *testing.T) {
	a := Locator{Page: 2, StartOffset: 0, EndOffset: 100, StartTime: time.Second, EndTime: 4 * time.Second}
	b := Locator{Page: 3, StartOffset: 120, EndOffset: 200, StartTime: 4 * time.Second, EndTime: 9 * time.Second}

	span := a.Span(b)

	// Keeps the starting position, extends the end.
	assert.Equal(t, 2, span.Page)
	assert.Equal(t, 0, span.StartOffset)
	assert.Equal(t, 200, span.EndOffset)
	assert.Equal(t, time.Second, span.StartTime)
	assert.Equal(t, 9*time.Second, span.EndTime)
}

func TestLocator_Span_FillsMissingPage(t *testing.T) {
	span := Locator{}.Span(Locator{Page: 5})
	assert.Equal(t, 5, span.Page)
}
