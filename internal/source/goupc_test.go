package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-pharmacy/catalog-enrich/internal/resilience"
)

const goUPCProductPage = `<!DOCTYPE html>
<html><head>
<meta property="og:image" content="https://cdn.example/og.jpg">
<title>Product</title>
</head><body>
<h1 class="product-name">Aspirin 500mg Tablets</h1>
<img class="product-image" src="https://go-upc.s3.amazonaws.com/images/12345.jpeg">
<img src="https://static.example/logo.png">
<h2>Description</h2>
<span>  Pain relief tablets,
 pack of 20.  </span>
</body></html>`

func newGoUPCServer(t *testing.T, handler http.HandlerFunc) *GoUPC {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoUPC("test-agent", 2*time.Second, 0, WithGoUPCBaseURL(srv.URL))
}

func TestGoUPCLookupPrefersS3Images(t *testing.T) {
	t.Parallel()

	var gotPath string
	s := newGoUPCServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, goUPCProductPage)
	})

	cands, err := s.Lookup(context.Background(), "036000291452")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	assert.Equal(t, "/lookup/036000291452", gotPath)
	assert.Equal(t, "https://go-upc.s3.amazonaws.com/images/12345.jpeg", cands[0].URL)
	assert.Equal(t, "Pain relief tablets, pack of 20.", cands[0].Label)
	assert.InDelta(t, 0.95, cands[0].Score, 1e-9)
}

func TestGoUPCLookupFallsBackToGenericExtraction(t *testing.T) {
	t.Parallel()

	s := newGoUPCServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
<meta property="og:image" content="https://cdn.example/og.jpg">
</head><body><img src="https://cdn.example/other.png"></body></html>`)
	})

	cands, err := s.Lookup(context.Background(), "036000291452")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "https://cdn.example/og.jpg", cands[0].URL)
}

func TestGoUPCLookupNotFound(t *testing.T) {
	t.Parallel()

	t.Run("http 404", func(t *testing.T) {
		t.Parallel()
		s := newGoUPCServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := s.Lookup(context.Background(), "000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("page without images", func(t *testing.T) {
		t.Parallel()
		s := newGoUPCServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><body><p>Nothing here.</p></body></html>`)
		})

		_, err := s.Lookup(context.Background(), "000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGoUPCLookupServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	s := newGoUPCServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := s.Lookup(context.Background(), "036000291452")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}
