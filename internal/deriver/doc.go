// Package deriver resolves STAC items to downstream raster asset URLs.
//
// Derivation is a two-tier, first-success-wins strategy. The direct tier
// inspects the item's assets map for GeoTIFF hrefs and prefers assets
// whose name marks them as display-ready (visual, rgb, natural). The
// fallback tier reconstructs a URL from regularities of the Maxar Open
// Data catalog layout when the document carries no raster asset at all.
//
// The fallback is explicitly best-effort: its template and default
// catalog identifier are calibrated against one observed layout and a
// synthesized URL is not guaranteed to exist.
package deriver
