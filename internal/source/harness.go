package source

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
)

// Harness owns the retry protocol around one Source: a fixed number of
// attempts with a fixed politeness delay between them. A not-found outcome
// short-circuits the remaining attempts for this source only. An optional
// circuit breaker skips the source entirely while it is hard-down.
type Harness struct {
	src     Source
	policy  resilience.Policy
	breaker *resilience.CircuitBreaker
}

// NewHarness wraps src with the given attempt count and inter-attempt delay.
func NewHarness(src Source, attempts int, delay time.Duration) *Harness {
	return &Harness{
		src: src,
		policy: resilience.Policy{
			Attempts: attempts,
			Delay:    delay,
			// Retry anything except the authoritative negative: transient
			// network failures and malformed responses both qualify.
			ShouldRetry: func(err error) bool { return !errors.Is(err, ErrNotFound) },
			OnRetry:     resilience.RetryLogger(string(src.ID()), "lookup"),
		},
	}
}

// WithBreaker attaches a circuit breaker to the harness.
func (h *Harness) WithBreaker(cb *resilience.CircuitBreaker) *Harness {
	h.breaker = cb
	return h
}

// ID returns the wrapped source's identifier.
func (h *Harness) ID() model.SourceID { return h.src.ID() }

// Lookup runs the full attempt sequence for one key. Errors follow the
// Source contract: ErrNotFound is terminal-negative, anything else means the
// source was unavailable after exhausting its attempts.
func (h *Harness) Lookup(ctx context.Context, key model.LookupKey) ([]model.Candidate, error) {
	if h.breaker != nil {
		if err := h.breaker.Allow(); err != nil {
			zap.L().Debug("source: circuit open, skipping",
				zap.String("source", string(h.src.ID())),
				zap.String("key", string(key)),
			)
			return nil, err
		}
	}

	cands, err := resilience.DoVal(ctx, h.policy, func(ctx context.Context) ([]model.Candidate, error) {
		return h.src.Lookup(ctx, key)
	})

	if h.breaker != nil {
		// Not-found is a healthy response and must not trip the breaker.
		trip := err
		if errors.Is(err, ErrNotFound) {
			trip = nil
		}
		h.breaker.Record(trip)
	}

	return cands, err
}
