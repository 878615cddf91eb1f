package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 15 * time.Second

const userAgent = "mdpublish/1 (+https://github.com/study-groups/mdpublish)"

// HTTPFetcher fetches http(s) resources.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMaxBytes sets the per-resource size cap. Values <= 0 keep the default.
func WithMaxBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher with a DefaultTimeout client.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET and returns the body when the status is 2xx.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, ref, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFetch, ref, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s (max %d bytes)", ErrTooLarge, ref, f.maxBytes)
	}

	return &Resource{
		Ref:         ref,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
