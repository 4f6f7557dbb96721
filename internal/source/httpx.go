package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps response bodies; product pages and API payloads are
// small, anything larger is garbage.
const maxBodyBytes = 4 << 20

// httpDoer is the shared HTTP transport for source adapters: one client per
// adapter instance (no process-wide singletons), a politeness rate limiter,
// and the run's user-identification string on every request.
type httpDoer struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func newHTTPDoer(timeout time.Duration, userAgent string, requestsPerSec float64) *httpDoer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var limiter *rate.Limiter
	if requestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSec), 1)
	}
	return &httpDoer{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:   limiter,
		userAgent: userAgent,
	}
}

// get issues a single GET and returns the body and status code. Transport
// errors come back as-is (resilience.IsTransient classifies them); status
// code interpretation is the caller's job.
func (d *httpDoer) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, int, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "source: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "source: create request")
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "source: read response body")
	}

	return body, resp.StatusCode, nil
}
