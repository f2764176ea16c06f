// Package vtt parses WebVTT transcripts. Every cue becomes one atomic
// segment carrying its timestamp range, so the chunker never splits a
// caption across chunks when avoidable.
package vtt

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.FormatAdapter = (*Adapter)(nil)

// Adapter parses WebVTT transcript sources.
type Adapter struct{}

// New creates a new VTT adapter.
func New() *Adapter {
	return &Adapter{}
}

// Kind returns the source kind this adapter handles.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.KindVTT
}

// Parse converts a WebVTT transcript into atomic cue segments.
func (a *Adapter) Parse(_ context.Context, src *domain.RawSource, _ driven.ParseOptions) (*domain.NormalizedDocument, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: empty VTT input", domain.ErrCorruptInput)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(src.Data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() || !strings.HasPrefix(strings.TrimPrefix(scanner.Text(), "\uFEFF"), "WEBVTT") {
		return nil, fmt.Errorf("%w: missing WEBVTT header", domain.ErrCorruptInput)
	}

	doc := &domain.NormalizedDocument{}
	var cueStart, cueEnd time.Duration
	var cueLines []string
	inCue := false

	flush := func() {
		if !inCue || len(cueLines) == 0 {
			inCue = false
			cueLines = nil
			return
		}
		doc.Segments = append(doc.Segments, domain.Segment{
			Text: strings.Join(cueLines, " "),
			Locator: domain.Locator{
				StartTime: cueStart,
				EndTime:   cueEnd,
			},
			Atomic: true,
		})
		inCue = false
		cueLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			flush()

		case strings.Contains(line, "-->"):
			flush()
			start, end, err := parseTiming(line)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrCorruptInput, err)
			}
			cueStart, cueEnd = start, end
			inCue = true

		case inCue:
			// Cue payload. Strip inline voice/class tags.
			cueLines = append(cueLines, stripCueTags(line))

		default:
			// Cue identifier, NOTE block or metadata header. Ignored.
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptInput, err)
	}

	return doc, nil
}

// parseTiming parses a "00:00:01.000 --> 00:00:04.500" cue timing line.
func parseTiming(line string) (start, end time.Duration, err error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed timing line %q", line)
	}

	start, err = parseTimestamp(strings.Fields(parts[0])[0])
	if err != nil {
		return 0, 0, err
	}

	endFields := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("malformed timing line %q", line)
	}
	end, err = parseTimestamp(endFields[0])
	if err != nil {
		return 0, 0, err
	}

	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %q", line)
	}
	return start, end, nil
}

// parseTimestamp parses hh:mm:ss.mmm or mm:ss.mmm.
func parseTimestamp(ts string) (time.Duration, error) {
	var h, m, s, ms int

	switch strings.Count(ts, ":") {
	case 2:
		if _, err := fmt.Sscanf(ts, "%d:%d:%d.%d", &h, &m, &s, &ms); err != nil {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
	case 1:
		if _, err := fmt.Sscanf(ts, "%d:%d.%d", &m, &s, &ms); err != nil {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
	default:
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// stripCueTags removes <v Name>, <c>, <i> style inline tags.
func stripCueTags(line string) string {
	var b strings.Builder
	inTag := false
	for _, r := range line {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
