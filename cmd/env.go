package main

import (
	"context"
	"time"

	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
	"github.com/smith-pharmacy/catalog-enrich/internal/source"
	"github.com/smith-pharmacy/catalog-enrich/internal/store"
)

// chainOverrides carry the per-invocation flag values layered over config.
type chainOverrides struct {
	catalogPath string
	attempts    int
	delayMS     int
}

// buildChain constructs the source chain from config plus flag overrides.
func buildChain(o chainOverrides) (*source.Chain, error) {
	cat := source.DefaultCatalog()

	catalogPath := cfg.Sources.CatalogPath
	if o.catalogPath != "" {
		catalogPath = o.catalogPath
	}
	if catalogPath != "" {
		var err error
		cat, err = source.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
	}

	attempts := cfg.Sources.Attempts
	if o.attempts > 0 {
		attempts = o.attempts
	}
	delayMS := cfg.Sources.DelayMS
	if o.delayMS > 0 {
		delayMS = o.delayMS
	}

	return cat.Build(source.BuildOptions{
		UserAgent: cfg.Sources.UserAgent,
		Attempts:  attempts,
		Delay:     time.Duration(delayMS) * time.Millisecond,
		Timeout:   time.Duration(cfg.Sources.TimeoutSecs) * time.Second,
		RPS:       cfg.Sources.ScrapeRPS,
		Breaker: &resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Sources.BreakerThreshold,
			ResetTimeout:     time.Duration(cfg.Sources.BreakerResetSecs) * time.Second,
		},
	})
}

// initStore opens the run-history store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
