package source

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/rank"
)

// Chain queries harnessed sources in a fixed priority order. The first
// source that yields at least one valid candidate wins; its candidates are
// ranked and the winner becomes the key's LookupResult. Exhausting every
// source resolves to "not found", which is a valid terminal state rather
// than an error, and the run continues.
type Chain struct {
	harnesses []*Harness
}

// NewChain creates a chain over the given harnessed sources, tried in order.
func NewChain(harnesses ...*Harness) *Chain {
	return &Chain{harnesses: harnesses}
}

// Sources returns the chain's source IDs in priority order.
func (c *Chain) Sources() []model.SourceID {
	ids := make([]model.SourceID, len(c.harnesses))
	for i, h := range c.harnesses {
		ids[i] = h.ID()
	}
	return ids
}

// Resolve runs one key through the chain.
func (c *Chain) Resolve(ctx context.Context, key model.LookupKey) model.LookupResult {
	for _, h := range c.harnesses {
		cands, err := h.Lookup(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				zap.L().Debug("source: not found",
					zap.String("source", string(h.ID())),
					zap.String("key", string(key)),
				)
			} else {
				zap.L().Warn("source: unavailable, trying next",
					zap.String("source", string(h.ID())),
					zap.String("key", string(key)),
					zap.Error(err),
				)
			}
			// Cancellation is not unavailability; later sources would fail
			// the same way and the empty result must not look authoritative.
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if res := rank.Select(cands); res.Found {
			zap.L().Debug("source: resolved",
				zap.String("source", string(h.ID())),
				zap.String("key", string(key)),
				zap.String("url", res.Best.URL),
			)
			return res
		}
	}

	return model.LookupResult{}
}
