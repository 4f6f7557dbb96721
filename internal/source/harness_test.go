package source

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
)

// fakeSource scripts one error per call, succeeding with cands once the
// script runs out.
type fakeSource struct {
	id     model.SourceID
	script []error
	cands  []model.Candidate
	calls  int
}

func (f *fakeSource) ID() model.SourceID { return f.id }

func (f *fakeSource) Lookup(ctx context.Context, key model.LookupKey) ([]model.Candidate, error) {
	f.calls++
	if f.calls <= len(f.script) {
		if err := f.script[f.calls-1]; err != nil {
			return nil, err
		}
	}
	return f.cands, nil
}

func transientErr(msg string) error {
	return resilience.NewTransientError(eris.New(msg), 503)
}

func TestHarnessRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		id:     "fake",
		script: []error{transientErr("flaky"), transientErr("flaky again")},
		cands:  []model.Candidate{{URL: "https://img.example/a.jpg", Source: "fake", Score: 1}},
	}
	h := NewHarness(src, 3, 0)

	cands, err := h.Lookup(context.Background(), "012345")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, 3, src.calls)
}

func TestHarnessExhaustsAttempts(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		id:     "fake",
		script: []error{transientErr("down"), transientErr("down"), transientErr("down")},
	}
	h := NewHarness(src, 3, 0)

	_, err := h.Lookup(context.Background(), "012345")
	require.Error(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestHarnessNotFoundShortCircuits(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		id:     "fake",
		script: []error{ErrNotFound, ErrNotFound, ErrNotFound},
	}
	h := NewHarness(src, 3, 0)

	_, err := h.Lookup(context.Background(), "012345")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, src.calls, "an authoritative negative must not be retried")
}

func TestHarnessBreakerSkipsHardDownSource(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		id:     "fake",
		script: []error{transientErr("down"), transientErr("down")},
	}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1})
	h := NewHarness(src, 1, 0).WithBreaker(cb)

	_, err := h.Lookup(context.Background(), "012345")
	require.Error(t, err)
	assert.Equal(t, 1, src.calls)

	// Breaker tripped on the first failed lookup; the next key skips the
	// source without touching it.
	_, err = h.Lookup(context.Background(), "678901")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 1, src.calls)
}

func TestHarnessBreakerIgnoresNotFound(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		id:     "fake",
		script: []error{ErrNotFound, ErrNotFound},
	}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1})
	h := NewHarness(src, 1, 0).WithBreaker(cb)

	_, err := h.Lookup(context.Background(), "012345")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.Lookup(context.Background(), "678901")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, src.calls, "not-found responses must keep the source available")
}
