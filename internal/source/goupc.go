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

var htmlHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// GoUPC scrapes product pages from go-upc.com. Product images hosted on the
// site's S3 bucket rank above anything found by generic extraction, and the
// page's description block becomes the candidate label.
type GoUPC struct {
	id      model.SourceID
	baseURL string
	doer    *httpDoer
}

// GoUPCOption configures the adapter.
type GoUPCOption func(*GoUPC)

// WithGoUPCBaseURL overrides the site base URL (for testing).
func WithGoUPCBaseURL(u string) GoUPCOption {
	return func(s *GoUPC) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// NewGoUPC creates the go-upc.com adapter. requestsPerSec throttles page
// fetches; lookup sites ban clients that hammer them.
func NewGoUPC(userAgent string, timeout time.Duration, requestsPerSec float64, opts ...GoUPCOption) *GoUPC {
	s := &GoUPC{
		id:      "go-upc",
		baseURL: "https://go-upc.com",
		doer:    newHTTPDoer(timeout, userAgent, requestsPerSec),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID implements Source.
func (s *GoUPC) ID() model.SourceID { return s.id }

// Lookup implements Source.
func (s *GoUPC) Lookup(ctx context.Context, key model.LookupKey) ([]model.Candidate, error) {
	reqURL := fmt.Sprintf("%s/lookup/%s", s.baseURL, string(key))

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

	label := productDescription(doc)

	var cands []model.Candidate
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if u := imgSrc(sel); u != "" && strings.Contains(u, "go-upc.s3.amazonaws.com") {
			cands = append(cands, model.Candidate{URL: u, Label: label, Source: s.id, Score: 0.95})
		}
	})
	if len(cands) == 0 {
		cands = imageCandidates(doc, s.id, key, label)
	}

	if len(cands) == 0 {
		return nil, ErrNotFound
	}
	return cands, nil
}
