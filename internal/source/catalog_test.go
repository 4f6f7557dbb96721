package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, `
sources:
  - id: openfoodfacts
    kind: openfacts
    base_url: https://world.openfoodfacts.org
  - id: go-upc
    kind: goupc
    attempts: 4
    delay_ms: 500
    requests_per_sec: 0.5
  - id: barcode-lookup
    kind: barcodelookup
    enabled: false
`)

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat.Sources, 3)

	assert.Equal(t, "openfoodfacts", cat.Sources[0].ID)
	assert.Equal(t, 4, cat.Sources[1].Attempts)
	assert.Equal(t, 500, cat.Sources[1].DelayMS)
	assert.True(t, cat.Sources[0].enabled())
	assert.False(t, cat.Sources[2].enabled())
}

func TestLoadCatalogRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"empty", `sources: []`},
		{"missing id", "sources:\n  - kind: goupc\n"},
		{"unknown kind", "sources:\n  - id: x\n    kind: amazon\n"},
		{"openfacts without base_url", "sources:\n  - id: x\n    kind: openfacts\n"},
		{"not yaml", `{{{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadCatalog(writeCatalog(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultCatalogBuild(t *testing.T) {
	t.Parallel()

	chain, err := DefaultCatalog().Build(BuildOptions{
		UserAgent: "test-agent",
		Attempts:  2,
		Delay:     time.Millisecond,
		Timeout:   time.Second,
		Breaker:   &resilience.CircuitBreakerConfig{},
	})
	require.NoError(t, err)

	assert.Equal(t, []model.SourceID{
		"openfoodfacts",
		"openbeautyfacts",
		"openpetfoodfacts",
		"go-upc",
		"barcode-lookup",
	}, chain.Sources())
}

func TestBuildSkipsDisabledSources(t *testing.T) {
	t.Parallel()

	off := false
	cat := Catalog{Sources: []Spec{
		{ID: "go-upc", Kind: "goupc"},
		{ID: "barcode-lookup", Kind: "barcodelookup", Enabled: &off},
	}}

	chain, err := cat.Build(BuildOptions{Attempts: 1})
	require.NoError(t, err)
	assert.Equal(t, []model.SourceID{"go-upc"}, chain.Sources())
}

func TestBuildRejectsAllDisabled(t *testing.T) {
	t.Parallel()

	off := false
	cat := Catalog{Sources: []Spec{{ID: "go-upc", Kind: "goupc", Enabled: &off}}}

	_, err := cat.Build(BuildOptions{})
	assert.Error(t, err)
}
