// Package model defines the core data structures used throughout stacwalk.
//
// This package contains the following main types:
//   - CatalogDocument: The decoded JSON body of a fetched STAC resource
//   - Link, Asset: Typed hyperlinks and downstream files within a document
//   - ExtractReport: The result of one extraction run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, deriver, report, database) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
