// Package browserurl recovers direct STAC document URLs from STAC Browser
// share links.
//
// STAC Browser deployments embed the remote catalog URL behind a
// "#/external/" fragment, percent-encoded and often suffixed with
// display-state query parameters (e.g. "?language=en") that are not part
// of the underlying resource URL. Normalize undoes all of that.
package browserurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Marker is the fragment delimiter STAC Browser places before the
// embedded remote URL.
const Marker = "#/external/"

// ErrNotExternalLink is returned when the input carries no Marker and is
// not a direct HTTP(S) URL. There is no remote URL to recover, so this
// error is fatal to the whole extraction.
var ErrNotExternalLink = errors.New("not a STAC Browser external link (missing #/external/ marker)")

// Result holds a normalized catalog URL together with any non-fatal
// advisories raised while normalizing.
type Result struct {
	// CatalogURL is the absolute, fetchable document URL.
	CatalogURL string

	// Direct is true when the input was accepted as-is because it was
	// already a direct HTTP(S) URL without the browser marker.
	Direct bool

	// Advisories are non-fatal notes, such as the target not looking
	// like a JSON document. They are reported, never raised as errors.
	Advisories []string
}

// Normalize converts a STAC Browser share link into a direct catalog URL.
//
// The input must contain the Marker; its absence yields ErrNotExternalLink.
// The remainder after the marker is percent-decoded, stripped of any query
// string, and given an https:// scheme when none is present.
func Normalize(browserURL string) (*Result, error) {
	idx := strings.Index(browserURL, Marker)
	if idx < 0 {
		return nil, ErrNotExternalLink
	}

	raw := strings.TrimSpace(browserURL[idx+len(Marker):])
	if raw == "" {
		return nil, fmt.Errorf("%w: nothing follows the marker", ErrNotExternalLink)
	}

	res := &Result{}

	// Browser tools percent-encode the embedded URL. A malformed escape
	// is tolerated: the raw text is used and the problem is advisory.
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
		res.Advisories = append(res.Advisories,
			fmt.Sprintf("embedded URL has a malformed percent-escape, using it verbatim: %v", err))
	}

	// Drop display-state query parameters like "?language=en".
	if i := strings.Index(decoded, "?"); i >= 0 {
		decoded = decoded[:i]
	}

	// Browser tools sometimes omit the scheme when embedding.
	if !strings.HasPrefix(decoded, "http://") && !strings.HasPrefix(decoded, "https://") {
		decoded = "https://" + decoded
	}

	if _, err := url.Parse(decoded); err != nil {
		return nil, fmt.Errorf("embedded URL %q is not a valid URL: %w", decoded, err)
	}

	res.CatalogURL = decoded
	res.Advisories = append(res.Advisories, jsonAdvisory(decoded)...)
	return res, nil
}

// Resolve classifies an input string and produces a catalog URL.
//
// Inputs carrying the Marker go through Normalize. Inputs that are already
// absolute HTTP(S) URLs are accepted as-is; STAC Browser deployments and
// users share both forms, so requiring the marker for direct URLs would
// reject valid catalogs. Anything else yields ErrNotExternalLink.
func Resolve(input string) (*Result, error) {
	input = strings.TrimSpace(input)

	if strings.Contains(input, Marker) {
		return Normalize(input)
	}

	u, err := url.Parse(input)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return &Result{
			CatalogURL: input,
			Direct:     true,
			Advisories: jsonAdvisory(input),
		}, nil
	}

	return nil, ErrNotExternalLink
}

// jsonAdvisory warns when the target does not end in .json. Non-JSON
// targets are likely invalid STAC documents but are still attempted.
func jsonAdvisory(catalogURL string) []string {
	if strings.HasSuffix(catalogURL, ".json") {
		return nil
	}
	return []string{"catalog URL does not end with .json; it may not be a valid STAC document"}
}
