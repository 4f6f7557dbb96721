package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
)

// Image field preference order for Open*Facts products, best first. Scores
// descend with position so the ranker's tie-break never has to guess.
var openFactsImageFields = []string{
	"image_front_url",
	"image_url",
	"image_pack_url",
	"image_ingredients_url",
	"image_nutrition_url",
	"image_small_url",
	"image_thumb_url",
}

// selected_images traversal order.
var (
	openFactsSections = []string{"front", "ingredients", "nutrition"}
	openFactsSizes    = []string{"display", "small", "thumb"}
)

// OpenFacts queries one of the Open Food/Beauty/Pet-Food Facts product APIs.
// The three hosts share one API shape, so a single adapter serves all of
// them with different IDs and base URLs.
type OpenFacts struct {
	id      model.SourceID
	baseURL string
	doer    *httpDoer
}

// OpenFactsOption configures the adapter.
type OpenFactsOption func(*OpenFacts)

// WithOpenFactsBaseURL overrides the API base URL (for testing).
func WithOpenFactsBaseURL(u string) OpenFactsOption {
	return func(s *OpenFacts) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// NewOpenFacts creates an adapter for one Open*Facts host, e.g.
// NewOpenFacts("openfoodfacts", "https://world.openfoodfacts.org", ua, 8*time.Second).
func NewOpenFacts(id model.SourceID, baseURL, userAgent string, timeout time.Duration, opts ...OpenFactsOption) *OpenFacts {
	s := &OpenFacts{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    newHTTPDoer(timeout, userAgent, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID implements Source.
func (s *OpenFacts) ID() model.SourceID { return s.id }

type openFactsResponse struct {
	Status  int              `json:"status"`
	Product *openFactsFields `json:"product"`
}

type openFactsFields struct {
	Name string `json:"product_name"`

	// Flat image fields; decoded generically so the preference list in
	// openFactsImageFields stays the single point of truth.
	Images map[string]json.RawMessage `json:"-"`

	// selected_images: section → size → language → url.
	SelectedImages map[string]map[string]map[string]string `json:"selected_images"`
}

// UnmarshalJSON keeps the flat image_* fields available by key while still
// decoding the typed members.
func (f *openFactsFields) UnmarshalJSON(data []byte) error {
	type alias openFactsFields
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = openFactsFields(a)
	f.Images = raw
	return nil
}

func (f *openFactsFields) imageField(key string) string {
	raw, ok := f.Images[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Lookup implements Source.
func (s *OpenFacts) Lookup(ctx context.Context, key model.LookupKey) ([]model.Candidate, error) {
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", s.baseURL, string(key))

	body, status, err := s.doer.get(ctx, reqURL, map[string]string{"Accept": "application/json"})
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

	var parsed openFactsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Malformed payloads are retryable; the API occasionally serves
		// truncated bodies under load.
		return nil, resilience.NewTransientError(eris.Wrapf(err, "%s: unmarshal response", s.id), status)
	}

	if parsed.Status != 1 || parsed.Product == nil {
		return nil, ErrNotFound
	}

	cands := s.candidates(parsed.Product)
	if len(cands) == 0 {
		return nil, ErrNotFound
	}
	return cands, nil
}

func (s *OpenFacts) candidates(p *openFactsFields) []model.Candidate {
	var out []model.Candidate

	score := 1.0
	for _, field := range openFactsImageFields {
		if u := p.imageField(field); u != "" {
			out = append(out, model.Candidate{URL: u, Label: p.Name, Source: s.id, Score: score})
		}
		score -= 0.05
	}

	// Fallback tier: the selected_images structure, traversed in a fixed
	// order with English preferred, then sorted language keys, so the same
	// payload always produces the same candidate order.
	score = 0.6
	for _, section := range openFactsSections {
		sizes, ok := p.SelectedImages[section]
		if !ok {
			continue
		}
		for _, size := range openFactsSizes {
			langs, ok := sizes[size]
			if !ok {
				continue
			}
			if u := strings.TrimSpace(langs["en"]); u != "" {
				out = append(out, model.Candidate{URL: u, Label: p.Name, Source: s.id, Score: score})
				score -= 0.02
				continue
			}
			keys := make([]string, 0, len(langs))
			for lang := range langs {
				keys = append(keys, lang)
			}
			sort.Strings(keys)
			for _, lang := range keys {
				if u := strings.TrimSpace(langs[lang]); u != "" {
					out = append(out, model.Candidate{URL: u, Label: p.Name, Source: s.id, Score: score})
					break
				}
			}
			score -= 0.02
		}
	}

	return out
}
