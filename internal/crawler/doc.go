// Package crawler walks the typed-link graph of a STAC catalog.
//
// # Architecture
//
// The package is designed around the Walker type, which follows
// collection-relation links depth-first from a root document. A run-local
// visited set, marked before each fetch, bounds the walk on cyclic
// catalogs; a separate seen set deduplicates the output sequence while
// preserving first-seen order.
//
// Design decision: We walk typed STAC link relations rather than
// performing general-purpose web crawling. Only "collection" links
// continue the walk; "item" links are traversal leaves that feed asset
// derivation. There is no depth or breadth limit beyond cycle
// prevention, which is a deliberate simplification for catalog-sized
// graphs.
//
// # Usage
//
//	walker := crawler.NewWalker(fetcher, crawler.WithRelations(crawler.DefaultRelations()))
//	result := walker.Walk(ctx, "https://host/catalog.json")
package crawler
