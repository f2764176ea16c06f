// Package webpage fetches a URL and extracts its main article content
// with go-readability, discarding navigation and boilerplate.
package webpage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/formats"
)

// Ensure Adapter implements the interface.
var _ driven.FormatAdapter = (*Adapter)(nil)

// DefaultTimeout bounds the page fetch.
const DefaultTimeout = 30 * time.Second

// Adapter parses scraped webpage sources.
type Adapter struct {
	client *http.Client
}

// Option configures the webpage adapter.
type Option func(*Adapter)

// WithClient overrides the HTTP client. Useful for tests.
func WithClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.client = client
	}
}

// New creates a new webpage adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind returns the source kind this adapter handles.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.KindWebpage
}

// Parse fetches the page (unless bytes were supplied) and extracts the
// readable article text as paragraph segments.
func (a *Adapter) Parse(ctx context.Context, src *domain.RawSource, _ driven.ParseOptions) (*domain.NormalizedDocument, error) {
	if src == nil || src.URI == "" && len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: no webpage source", domain.ErrInvalidInput)
	}

	pageURL, err := url.Parse(src.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: bad URL %q", domain.ErrInvalidInput, src.URI)
	}

	body := src.Data
	if len(body) == 0 {
		body, err = formats.Fetch(ctx, a.client, src.URI)
		if err != nil {
			return nil, err
		}
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: readability: %v", domain.ErrCorruptInput, err)
	}

	doc := &domain.NormalizedDocument{
		Title:    article.Title,
		Segments: formats.ParagraphSegments(article.TextContent, 0),
	}
	if doc.Title == "" {
		doc.Title = src.URI
	}
	return doc, nil
}
