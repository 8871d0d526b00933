package interfaces

import (
	"context"
	"net/http"
)

// FetchResult is the outcome of one page or document fetch.
type FetchResult struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	FinalURL   string // after redirects
}

// ContentType returns the response Content-Type header, lower-cased.
func (r *FetchResult) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// PageFetcher retrieves a URL's body. Implementations own the mandated
// politeness delay: every call waits out the per-domain delay before the
// request goes on the wire.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Downloader persists the bytes behind a URL to a local path, creating
// parent directories as needed. Returns the number of bytes written.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) (int64, error)
}
