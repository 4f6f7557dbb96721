package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
)

// BarcodeLookup scrapes product pages from barcodelookup.com using the
// generic tiered HTML extraction.
type BarcodeLookup struct {
	id      model.SourceID
	baseURL string
	doer    *httpDoer
}

// BarcodeLookupOption configures the adapter.
type BarcodeLookupOption func(*BarcodeLookup)

// WithBarcodeLookupBaseURL overrides the site base URL (for testing).
func WithBarcodeLookupBaseURL(u string) BarcodeLookupOption {
	return func(s *BarcodeLookup) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// NewBarcodeLookup creates the barcodelookup.com adapter.
func NewBarcodeLookup(userAgent string, timeout time.Duration, requestsPerSec float64, opts ...BarcodeLookupOption) *BarcodeLookup {
	s := &BarcodeLookup{
		id:      "barcode-lookup",
		baseURL: "https://www.barcodelookup.com",
		doer:    newHTTPDoer(timeout, userAgent, requestsPerSec),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID implements Source.
func (s *BarcodeLookup) ID() model.SourceID { return s.id }

// Lookup implements Source.
func (s *BarcodeLookup) Lookup(ctx context.Context, key model.LookupKey) ([]model.Candidate, error) {
	reqURL := fmt.Sprintf("%s/%s", s.baseURL, string(key))

	body, status, err := s.doer.get(ctx, reqURL, htmlHeaders)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: request failed", s.id)
	}

	switch {
	case status == http.StatusNotFound:
		return nil, ErrNotFound
	case resilience.IsTransientHTTPStatus(status):
		return nil, resilience.NewTransientError(eris.Errorf("%s: status %d", s.id, status), status)
	case status != http.StatusOK:
		return nil, eris.Errorf("%s: unexpected status %d", s.id, status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "%s: parse html", s.id), status)
	}

	title := collapseSpace(doc.Find("h4").First().Text())
	cands := imageCandidates(doc, s.id, key, title)
	if len(cands) == 0 {
		return nil, ErrNotFound
	}
	return cands, nil
}
