// Package fetcher retrieves observation files from local paths, HTTP, and
// FTP sources, and parses CSV and XLSX content into rows.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Open returns a reader for a local path or a remote ref (http, https, ftp).
func Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		f, err := os.Open(ref)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", ref)
		}
		return f, nil
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{}).Download(ctx, ref)
	case "ftp":
		return NewFTPFetcher(FTPOptions{}).Download(ctx, ref)
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
