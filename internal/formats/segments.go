package formats

import (
	"strings"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// ParagraphSegments splits plain text into paragraph segments on blank
// lines, tracking character offsets into the original text. Page is
// carried into every locator when non-zero.
func ParagraphSegments(text string, page int) []domain.Segment {
	var segments []domain.Segment
	offset := 0

	for _, para := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(para)
		if trimmed != "" {
			start := offset + strings.Index(para, trimmed)
			segments = append(segments, domain.Segment{
				Text: trimmed,
				Locator: domain.Locator{
					Page:        page,
					StartOffset: start,
					EndOffset:   start + len(trimmed),
				},
			})
		}
		offset += len(para) + 2 // account for the separator
	}

	return segments
}

// FirstLine returns the first non-empty line of text, trimmed. Used by
// adapters as a title fallback when the format carries no metadata.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
