// Package pdf extracts text from PDF documents using the poppler
// pdftotext tool. Pages are preserved as form-feed separated blocks so
// chunks keep page locators.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/formats"
)

// Ensure Adapter implements the interface.
var _ driven.FormatAdapter = (*Adapter)(nil)

// Adapter parses PDF sources via pdftotext.
type Adapter struct {
	// lookPath and extract are indirections over exec so tests can run
	// without poppler installed.
	lookPath func(file string) (string, error)
	extract  func(ctx context.Context, path string) (string, error)
}

// New creates a new PDF adapter.
func New() *Adapter {
	a := &Adapter{lookPath: exec.LookPath}
	a.extract = a.runPDFToText
	return a
}

// Kind returns the source kind this adapter handles.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.KindPDF
}

// Parse extracts per-page text segments from the PDF bytes.
func (a *Adapter) Parse(ctx context.Context, src *domain.RawSource, _ driven.ParseOptions) (*domain.NormalizedDocument, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: empty PDF input", domain.ErrCorruptInput)
	}
	if !bytes.HasPrefix(src.Data, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: missing PDF header", domain.ErrCorruptInput)
	}

	if _, err := a.lookPath("pdftotext"); err != nil {
		return nil, domain.ErrPDFToolNotFound
	}

	tmp, err := os.CreateTemp("", "aquillm-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(src.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := a.extract(ctx, tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext: %v", domain.ErrCorruptInput, err)
	}

	return Normalize(text), nil
}

// runPDFToText invokes pdftotext writing to stdout.
func (a *Adapter) runPDFToText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}

// Normalize converts pdftotext output into a normalised document.
// pdftotext separates pages with form feeds; each page becomes a run of
// paragraph segments carrying its 1-based page number.
func Normalize(text string) *domain.NormalizedDocument {
	doc := &domain.NormalizedDocument{}

	for i, page := range strings.Split(text, "\f") {
		segs := formats.ParagraphSegments(page, i+1)
		doc.Segments = append(doc.Segments, segs...)
	}

	// First line of the first page is the best title guess a bare PDF
	// gives us.
	if title := formats.FirstLine(text); len(title) <= 150 {
		doc.Title = title
	}

	return doc
}

// InstallInstructions tells the user how to get pdftotext.
func InstallInstructions() string {
	switch {
	case fileExists("/etc/debian_version"):
		return "apt install poppler-utils"
	case fileExists("/etc/redhat-release"):
		return "dnf install poppler-utils"
	default:
		return "install poppler (provides pdftotext) with your package manager"
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(filepath.Clean(path))
	return err == nil
}
