// Package notes ingests images of handwritten notes by running them
// through a vision OCR service. With the LaTeX option set, mathematical
// content is transcribed as LaTeX.
package notes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/formats"
)

// Ensure Adapter implements the interface.
var _ driven.FormatAdapter = (*Adapter)(nil)

// Adapter parses handwritten note images via OCR.
type Adapter struct {
	ocr driven.OCRService
}

// New creates a new notes adapter.
func New(ocr driven.OCRService) *Adapter {
	return &Adapter{ocr: ocr}
}

// Kind returns the source kind this adapter handles.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.KindNotes
}

// Parse recognises the note image and splits the transcription into
// paragraph segments.
func (a *Adapter) Parse(ctx context.Context, src *domain.RawSource, opts driven.ParseOptions) (*domain.NormalizedDocument, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: empty notes image", domain.ErrCorruptInput)
	}
	if a.ocr == nil {
		return nil, fmt.Errorf("%w: no OCR service configured", domain.ErrUnsupportedFormat)
	}

	mimeType := http.DetectContentType(src.Data)
	text, err := a.ocr.Recognize(ctx, src.Data, mimeType, opts.ConvertLaTeX)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOCRFailed, err)
	}

	return &domain.NormalizedDocument{
		Title:    formats.FirstLine(text),
		Segments: formats.ParagraphSegments(text, 0),
	}, nil
}
