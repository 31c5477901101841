// Package main provides the entry point for the stacwalk CLI.
//
// stacwalk extracts downloadable URLs from STAC catalogs. It resolves
// STAC Browser share links, walks a catalog's typed links, and derives
// raster asset URLs for the items it finds.
//
// Usage:
//
//	stacwalk extract <url>
//	stacwalk extract --list <file>
//
// See --help for all available options.
package main

// main is the entry point for stacwalk.
func main() {
	Execute()
}
