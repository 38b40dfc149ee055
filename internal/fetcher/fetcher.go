// Package fetcher provides the rate-limited, retrying HTTP transport shared by the
// remote data clients.
package fetcher

import (
	"context"
	"io"
	"net/http"
)

// Doer sends a single HTTP request. *http.Client and *HTTPFetcher both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads remote documents.
type Fetcher interface {
	Doer

	// Download fetches the URL and returns the response body. Non-200 responses are
	// returned as *StatusError.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
