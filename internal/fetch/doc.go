// Package fetch implements the HTTP document fetcher for STAC resources.
//
// The fetcher is deliberately small: it performs one GET, enforces a body
// size limit, and decodes the response as a STAC document. Every failure
// mode (network error, non-2xx status, malformed JSON) surfaces as a
// *FetchError carrying the offending URL so callers can report it without
// aborting the run.
package fetch
