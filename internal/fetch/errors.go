package fetch

import "fmt"

// FetchError reports a failure to retrieve or decode one document.
// It is always recoverable: the crawl treats the URL as a dead end and
// continues elsewhere.
type FetchError struct {
	// URL is the document that failed.
	URL string

	// StatusCode is the HTTP status, or 0 for transport and decode errors.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}
