// Package source implements the external lookup sources and the retry chain
// that queries them in priority order.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// ErrNotFound is the authoritative negative from a source: the key was
// looked up and the source has no product for it. It is terminal for that
// source (the harness never retries it) and it is not a run failure.
var ErrNotFound = eris.New("source: not found")

// Source performs a single-shot lookup against one external data source.
//
// The contract is tri-state: (candidates, nil) on success with at least one
// candidate, ErrNotFound for an authoritative negative, any other error for
// "unavailable" (wrapped in resilience.TransientError when a retry might
// help). A returned candidate always carries a non-empty URL.
//
// Lookup is never called concurrently for the same key by the pipeline, but
// may be called concurrently for different keys.
type Source interface {
	ID() model.SourceID
	Lookup(ctx context.Context, key model.LookupKey) ([]model.Candidate, error)
}
