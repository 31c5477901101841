package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nao1215/stacwalk/internal/model"
)

// Fetcher retrieves and decodes STAC JSON documents over HTTP.
//
// Design decision: We use a struct with the http.Client rather than
// passing the client on each call because:
//  1. Client configuration (timeouts, transport) should be consistent
//  2. Connection pooling works better with a shared client
//  3. Easier to test with httptest servers
type Fetcher struct {
	// client performs the HTTP requests. Callers configure its timeout.
	client *http.Client

	// userAgent is the User-Agent header sent with every request.
	userAgent string

	// maxBodySize limits the response body size to prevent memory
	// exhaustion from unexpectedly large documents.
	maxBodySize int64

	// headers are extra headers sent with every request, e.g. auth
	// headers for protected catalogs.
	headers map[string]string

	// cookie is an optional Cookie header value.
	cookie string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size in bytes.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithCookie sets the Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// NewFetcher creates a Fetcher using the given HTTP client.
// The client must carry the caller's timeout configuration.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		userAgent:   "stacwalk (+https://github.com/nao1215/stacwalk)",
		maxBodySize: 10 * 1024 * 1024, // 10MB
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves the document at rawURL and decodes it.
// Network failures, non-2xx responses, and malformed JSON all yield a
// *FetchError carrying the URL and the underlying cause.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.CatalogDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, application/geo+json;q=0.9, */*;q=0.1")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024)) //nolint:errcheck // Best effort drain
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	var doc model.CatalogDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("decode JSON: %w", err)}
	}

	return &doc, nil
}
