package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

func cand(url string, score float64) model.Candidate {
	return model.Candidate{URL: url, Source: "test", Score: score}
}

func TestSelect_Empty(t *testing.T) {
	t.Parallel()

	assert.False(t, Select(nil).Found)
	assert.False(t, Select([]model.Candidate{}).Found)
}

func TestSelect_HighestScoreWins(t *testing.T) {
	t.Parallel()

	res := Select([]model.Candidate{
		cand("https://img/a.jpg", 0.7),
		cand("https://img/b.jpg", 0.9),
		cand("https://img/c.jpg", 0.8),
	})

	require.True(t, res.Found)
	assert.Equal(t, "https://img/b.jpg", res.Best.URL)
}

func TestSelect_TieBreaksByOriginalOrder(t *testing.T) {
	t.Parallel()

	res := Select([]model.Candidate{
		cand("https://img/first.jpg", 0.8),
		cand("https://img/second.jpg", 0.8),
	})

	require.True(t, res.Found)
	assert.Equal(t, "https://img/first.jpg", res.Best.URL)
}

func TestSelect_DropsInvalidCandidates(t *testing.T) {
	t.Parallel()

	res := Select([]model.Candidate{
		cand("", 1.0),
		cand("   ", 1.0),
		cand("https://img/ok.jpg", 0.1),
	})

	require.True(t, res.Found)
	assert.Equal(t, "https://img/ok.jpg", res.Best.URL)
}

func TestSelect_AllInvalid(t *testing.T) {
	t.Parallel()

	res := Select([]model.Candidate{cand("", 1.0), cand("\t", 0.5)})
	assert.False(t, res.Found)
}

func TestSelect_DedupesByURLKeepingFirst(t *testing.T) {
	t.Parallel()

	// The duplicate arrives with a higher score, but dedup keeps the first
	// occurrence, so the first entry's metadata wins.
	res := Select([]model.Candidate{
		{URL: "https://img/x.jpg", Label: "first", Source: "a", Score: 0.5},
		{URL: "https://img/x.jpg", Label: "second", Source: "b", Score: 0.9},
	})

	require.True(t, res.Found)
	assert.Equal(t, "first", res.Best.Label)
	assert.Equal(t, model.SourceID("a"), res.Best.Source)
	assert.Equal(t, 0.5, res.Best.Score)
}

func TestSelect_Deterministic(t *testing.T) {
	t.Parallel()

	in := []model.Candidate{
		cand("https://img/a.jpg", 0.7),
		cand("https://img/b.jpg", 0.7),
		cand("https://img/a.jpg", 0.9),
	}

	first := Select(in)
	for range 20 {
		assert.Equal(t, first, Select(in))
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	out := Dedupe([]model.Candidate{
		cand("https://img/a.jpg", 0.9),
		cand("", 1.0),
		cand("https://img/b.jpg", 0.8),
		cand("https://img/a.jpg", 0.1),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "https://img/a.jpg", out[0].URL)
	assert.Equal(t, 0.9, out[0].Score)
	assert.Equal(t, "https://img/b.jpg", out[1].URL)
}
