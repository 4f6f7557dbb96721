// Package rank selects the winning candidate from a source's results.
package rank

import (
	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// Select reduces a candidate sequence to a single LookupResult.
//
// Invalid candidates (empty or whitespace-only URL) are dropped. Duplicate
// URLs keep their first occurrence, so source-reported order is preserved
// through deduplication. The winner is the highest-scoring survivor; on
// equal scores the earlier candidate wins. The function is pure, so equal
// inputs always produce equal results.
func Select(candidates []model.Candidate) model.LookupResult {
	var (
		best  model.Candidate
		found bool
		seen  = make(map[string]struct{}, len(candidates))
	)

	for _, c := range candidates {
		if !c.Valid() {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}

		if !found || c.Score > best.Score {
			best = c
			found = true
		}
	}

	if !found {
		return model.LookupResult{}
	}
	return model.LookupResult{Found: true, Best: best}
}

// Dedupe returns the valid candidates with duplicate URLs removed, keeping
// first occurrences in order. Used by callers that want the full ranked
// list rather than just the winner.
func Dedupe(candidates []model.Candidate) []model.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Valid() {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
