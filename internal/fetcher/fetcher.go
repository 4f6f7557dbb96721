// Package fetcher localizes input files. Inputs referenced by http, https,
// or ftp URL are downloaded to a temp file first so the rest of the pipeline
// only ever deals with local paths.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads one URL and returns its body.
type Fetcher interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Localize resolves an input reference to a local file path. Plain paths
// pass through untouched with a no-op cleanup. URLs are downloaded to a temp
// file that keeps the original extension, since the reader dispatches on it;
// the caller must run cleanup when done with the file.
func Localize(ctx context.Context, ref string, opts HTTPOptions) (string, func(), error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Not a URL (single-letter schemes are Windows drive letters).
		return ref, func() {}, nil
	}

	var f Fetcher
	switch u.Scheme {
	case "http", "https":
		f = NewHTTPFetcher(opts)
	case "ftp":
		f = NewFTPFetcher(FTPOptions{Timeout: opts.Timeout})
	default:
		return "", nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}

	body, err := f.Download(ctx, ref)
	if err != nil {
		return "", nil, err
	}
	defer body.Close() //nolint:errcheck

	ext := path.Ext(u.Path)
	if ext == "" {
		ext = ".csv"
	}
	tmp, err := os.CreateTemp("", "enrich-input-*"+ext)
	if err != nil {
		return "", nil, eris.Wrap(err, "fetcher: create temp file")
	}

	n, err := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		if err == nil {
			err = closeErr
		}
		return "", nil, eris.Wrapf(err, "fetcher: download %s", ref)
	}

	zap.L().Info("fetcher: downloaded input",
		zap.String("url", ref),
		zap.String("path", tmp.Name()),
		zap.Int64("bytes", n),
	)

	name := tmp.Name()
	return name, func() { os.Remove(name) }, nil //nolint:errcheck
}

// IsRemote reports whether ref looks like a URL this package can download.
func IsRemote(ref string) bool {
	for _, prefix := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}
