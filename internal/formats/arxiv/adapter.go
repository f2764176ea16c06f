// Package arxiv ingests arXiv papers: it resolves the paper id, pulls
// title and abstract from the arXiv Atom API, fetches the e-print PDF
// and delegates text extraction to the pdf adapter.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/formats"
)

// Ensure Adapter implements the interface.
var _ driven.FormatAdapter = (*Adapter)(nil)

// Default endpoints and limits.
const (
	DefaultAPIBaseURL = "https://export.arxiv.org/api/query"
	DefaultPDFBaseURL = "https://arxiv.org/pdf"
	DefaultTimeout    = 60 * time.Second
)

// idPattern matches modern arXiv identifiers like 2101.12345 or
// 2101.12345v2.
var idPattern = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)

// Adapter parses arXiv paper sources.
type Adapter struct {
	client     *http.Client
	apiBaseURL string
	pdfBaseURL string
	pdfParser  driven.FormatAdapter
}

// Option configures the arXiv adapter.
type Option func(*Adapter)

// WithClient overrides the HTTP client. Useful for tests.
func WithClient(client *http.Client) Option {
	return func(a *Adapter) { a.client = client }
}

// WithBaseURLs overrides the API and PDF endpoints. Useful for tests.
func WithBaseURLs(api, pdf string) Option {
	return func(a *Adapter) {
		a.apiBaseURL = api
		a.pdfBaseURL = pdf
	}
}

// New creates a new arXiv adapter. The pdfParser extracts text from the
// fetched e-print.
func New(pdfParser driven.FormatAdapter, opts ...Option) *Adapter {
	a := &Adapter{
		client:     &http.Client{Timeout: DefaultTimeout},
		apiBaseURL: DefaultAPIBaseURL,
		pdfBaseURL: DefaultPDFBaseURL,
		pdfParser:  pdfParser,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind returns the source kind this adapter handles.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.KindArXiv
}

// atomFeed is the subset of the arXiv Atom response we read.
type atomFeed struct {
	Entries []struct {
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
	} `xml:"entry"`
}

// Parse resolves the paper id, fetches metadata and the PDF, and
// extracts the paper text.
func (a *Adapter) Parse(ctx context.Context, src *domain.RawSource, opts driven.ParseOptions) (*domain.NormalizedDocument, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	id, err := ResolveID(src.URI)
	if err != nil {
		return nil, err
	}

	title, abstract, err := a.fetchMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := formats.Fetch(ctx, a.client, a.pdfBaseURL+"/"+id)
	if err != nil {
		return nil, err
	}

	doc, err := a.pdfParser.Parse(ctx, &domain.RawSource{
		Kind: domain.KindPDF,
		URI:  src.URI,
		Data: pdfBytes,
	}, opts)
	if err != nil {
		return nil, err
	}

	if title != "" {
		doc.Title = title
	}
	if abstract != "" {
		// The abstract leads the segment list so retrieval favours it.
		abs := domain.Segment{
			Text:    abstract,
			Locator: domain.Locator{Section: "Abstract", EndOffset: len(abstract)},
		}
		doc.Segments = append([]domain.Segment{abs}, doc.Segments...)
	}

	return doc, nil
}

// fetchMetadata queries the Atom API for title and abstract.
func (a *Adapter) fetchMetadata(ctx context.Context, id string) (title, abstract string, err error) {
	body, err := formats.Fetch(ctx, a.client, fmt.Sprintf("%s?id_list=%s&max_results=1", a.apiBaseURL, id))
	if err != nil {
		return "", "", err
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", "", fmt.Errorf("%w: atom response: %v", domain.ErrCorruptInput, err)
	}
	if len(feed.Entries) == 0 {
		return "", "", fmt.Errorf("%w: arXiv id %s not found", domain.ErrFetchFailed, id)
	}

	entry := feed.Entries[0]
	return collapseWhitespace(entry.Title), collapseWhitespace(entry.Summary), nil
}

// ResolveID extracts an arXiv identifier from a bare id, an
// "arXiv:<id>" reference, or an abs/pdf URL.
func ResolveID(uri string) (string, error) {
	s := strings.TrimSpace(uri)
	s = strings.TrimPrefix(s, "arXiv:")
	s = strings.TrimPrefix(s, "arxiv:")

	for _, marker := range []string{"/abs/", "/pdf/"} {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[idx+len(marker):]
		}
	}
	s = strings.TrimSuffix(s, ".pdf")
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		s = s[:idx]
	}

	if !idPattern.MatchString(s) {
		return "", fmt.Errorf("%w: not an arXiv id: %q", domain.ErrInvalidInput, uri)
	}
	return s, nil
}

// collapseWhitespace folds the Atom API's hard-wrapped text onto one line.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
