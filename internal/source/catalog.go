package source

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
)

// Spec declares one source in the catalog file: which adapter implements it,
// where it lives, and its per-source retry budget. Catalog order is query
// priority order.
type Spec struct {
	ID       string  `yaml:"id"`
	Kind     string  `yaml:"kind"` // "openfacts", "goupc", "barcodelookup"
	BaseURL  string  `yaml:"base_url,omitempty"`
	Enabled  *bool   `yaml:"enabled,omitempty"` // default true
	Attempts int     `yaml:"attempts,omitempty"`
	DelayMS  int     `yaml:"delay_ms,omitempty"`
	TimeoutS int     `yaml:"timeout_secs,omitempty"`
	RPS      float64 `yaml:"requests_per_sec,omitempty"`
}

func (s Spec) enabled() bool { return s.Enabled == nil || *s.Enabled }

// Catalog is the full source catalog.
type Catalog struct {
	Sources []Spec `yaml:"sources"`
}

// DefaultCatalog returns the built-in source priority: the three zero-cost
// Open*Facts APIs first, then the two HTML lookup sites.
func DefaultCatalog() Catalog {
	return Catalog{Sources: []Spec{
		{ID: "openfoodfacts", Kind: "openfacts", BaseURL: "https://world.openfoodfacts.org"},
		{ID: "openbeautyfacts", Kind: "openfacts", BaseURL: "https://world.openbeautyfacts.org"},
		{ID: "openpetfoodfacts", Kind: "openfacts", BaseURL: "https://world.openpetfoodfacts.org"},
		{ID: "go-upc", Kind: "goupc"},
		{ID: "barcode-lookup", Kind: "barcodelookup"},
	}}
}

// LoadCatalog reads a source catalog from a YAML file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, eris.Wrapf(err, "source: read catalog %s", path)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, eris.Wrap(err, "source: parse catalog")
	}
	if len(cat.Sources) == 0 {
		return Catalog{}, eris.Errorf("source: catalog %s declares no sources", path)
	}
	for i, spec := range cat.Sources {
		if spec.ID == "" {
			return Catalog{}, eris.Errorf("source: catalog entry %d has no id", i)
		}
		switch spec.Kind {
		case "openfacts", "goupc", "barcodelookup":
		default:
			return Catalog{}, eris.Errorf("source: catalog entry %q has unknown kind %q", spec.ID, spec.Kind)
		}
		if spec.Kind == "openfacts" && spec.BaseURL == "" {
			return Catalog{}, eris.Errorf("source: catalog entry %q (openfacts) requires base_url", spec.ID)
		}
	}
	return cat, nil
}

// BuildOptions carry run-level settings applied to every source the catalog
// doesn't override.
type BuildOptions struct {
	UserAgent string
	Attempts  int
	Delay     time.Duration
	Timeout   time.Duration
	RPS       float64

	// Breaker, when set, attaches a per-source circuit breaker built from
	// this config.
	Breaker *resilience.CircuitBreakerConfig
}

// Build constructs the harnessed source chain from the catalog in priority
// order. Disabled entries are skipped. Each source gets its own adapter
// instance and HTTP client, so runs never share state.
func (c Catalog) Build(opts BuildOptions) (*Chain, error) {
	var harnesses []*Harness

	for _, spec := range c.Sources {
		if !spec.enabled() {
			continue
		}

		timeout := opts.Timeout
		if spec.TimeoutS > 0 {
			timeout = time.Duration(spec.TimeoutS) * time.Second
		}
		rps := opts.RPS
		if spec.RPS > 0 {
			rps = spec.RPS
		}

		var src Source
		switch spec.Kind {
		case "openfacts":
			src = NewOpenFacts(model.SourceID(spec.ID), spec.BaseURL, opts.UserAgent, timeout)
		case "goupc":
			var o []GoUPCOption
			if spec.BaseURL != "" {
				o = append(o, WithGoUPCBaseURL(spec.BaseURL))
			}
			src = NewGoUPC(opts.UserAgent, timeout, rps, o...)
		case "barcodelookup":
			var o []BarcodeLookupOption
			if spec.BaseURL != "" {
				o = append(o, WithBarcodeLookupBaseURL(spec.BaseURL))
			}
			src = NewBarcodeLookup(opts.UserAgent, timeout, rps, o...)
		default:
			return nil, eris.Errorf("source: unknown kind %q", spec.Kind)
		}

		attempts := opts.Attempts
		if spec.Attempts > 0 {
			attempts = spec.Attempts
		}
		delay := opts.Delay
		if spec.DelayMS > 0 {
			delay = time.Duration(spec.DelayMS) * time.Millisecond
		}

		h := NewHarness(src, attempts, delay)
		if opts.Breaker != nil {
			h = h.WithBreaker(resilience.NewCircuitBreaker(*opts.Breaker))
		}
		harnesses = append(harnesses, h)
	}

	if len(harnesses) == 0 {
		return nil, eris.New("source: no enabled sources")
	}
	return NewChain(harnesses...), nil
}
