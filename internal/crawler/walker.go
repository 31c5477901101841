package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/stacwalk/internal/fetch"
	"github.com/nao1215/stacwalk/internal/model"
)

// Link relations recognized by the walker.
const (
	// RelItem marks a link to a STAC item. Items are traversal leaves.
	RelItem = "item"

	// RelCollection marks a link to a STAC collection. Collections are
	// the only relation that continues the graph walk.
	RelCollection = "collection"

	// RelChild marks a link to a sub-catalog.
	RelChild = "child"

	// RelSelf marks a document's link to itself.
	RelSelf = "self"
)

// DefaultRelations is the relation set reported by default.
func DefaultRelations() []string {
	return []string{RelItem, RelCollection}
}

// ExtendedRelations additionally reports child and self links.
func ExtendedRelations() []string {
	return []string{RelItem, RelCollection, RelChild, RelSelf}
}

// KnownRelation reports whether rel is a relation the walker understands.
func KnownRelation(rel string) bool {
	switch rel {
	case RelItem, RelCollection, RelChild, RelSelf:
		return true
	}
	return false
}

// Walker traverses the link graph of a STAC catalog depth-first,
// following collection links and reporting every link whose relation is
// in the configured relation set.
//
// Design decision: We call it "Walker" rather than "Crawler" to
// distinguish the component from the package name: crawler.NewWalker()
// reads better than crawler.NewCrawler().
//
// A Walker holds configuration only. All per-run state (visited set,
// output sequence, warnings) lives in a run-local accumulator created by
// Walk and discarded when it returns, so one Walker can serve many runs
// and concurrent runs never share mutable state.
type Walker struct {
	// fetcher retrieves catalog documents.
	fetcher *fetch.Fetcher

	// relations is the set of link relations to report.
	relations map[string]bool

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithRelations sets the link relations the walker reports.
// Unknown relations are kept as given; the caller validates them.
func WithRelations(relations []string) Option {
	return func(w *Walker) {
		w.relations = make(map[string]bool, len(relations))
		for _, rel := range relations {
			w.relations[rel] = true
		}
	}
}

// WithLogger sets a custom logger for the walker.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker using the given fetcher.
func NewWalker(fetcher *fetch.Fetcher, opts ...Option) *Walker {
	w := &Walker{
		fetcher: fetcher,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.relations == nil {
		w.relations = map[string]bool{RelItem: true, RelCollection: true}
	}

	return w
}

// Result is the outcome of one walk.
type Result struct {
	// Resources is the ordered, deduplicated sequence of discovered
	// resources, in first-seen order.
	Resources []model.DiscoveredResource

	// Warnings collects per-URL fetch and resolution failures.
	// A warning terminates its branch of the walk, never the walk itself.
	Warnings []model.Warning

	// Fetched counts fetch attempts. The visited set guarantees at most
	// one attempt per distinct URL.
	Fetched int
}

// Walk traverses the catalog graph rooted at rootURL and returns every
// discovered resource. It never returns an error: unreachable documents
// become warnings, and cancellation simply stops the walk with whatever
// was discovered so far.
func (w *Walker) Walk(ctx context.Context, rootURL string) *Result {
	run := &walkRun{
		walker:  w,
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
		result:  &Result{},
	}
	run.visit(ctx, rootURL)
	return run.result
}

// walkRun is the run-local accumulator for one Walk call. The visited
// set is shared by reference across the recursion; copying it would break
// cycle prevention on catalogs with cross-links.
type walkRun struct {
	walker *Walker

	// visited guards re-fetching: a URL is marked before its fetch so a
	// cycle can never trigger a second fetch of the same document.
	visited map[string]bool

	// seen guards re-reporting: distinct from visited because items are
	// reported but never fetched by the walk.
	seen map[string]bool

	result *Result
}

// visit fetches one document and recurses into its collection links.
func (r *walkRun) visit(ctx context.Context, rawURL string) {
	if ctx.Err() != nil {
		return
	}

	if r.visited[rawURL] {
		return
	}
	// Mark before fetching so even a re-entrant call cannot double-visit.
	r.visited[rawURL] = true

	r.result.Fetched++
	doc, err := r.walker.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		// One unreachable document never aborts the whole walk.
		r.warn(rawURL, err)
		return
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		r.warn(rawURL, fmt.Errorf("invalid document URL: %w", err))
		return
	}

	r.walker.logger.Debug("scanning document",
		"url", rawURL,
		"links", len(doc.Links),
	)

	for _, link := range doc.Links {
		if link.Href == "" || !r.walker.relations[link.Rel] {
			continue
		}

		abs, err := resolveHref(base, link.Href)
		if err != nil {
			r.warn(rawURL, fmt.Errorf("unresolvable href %q: %w", link.Href, err))
			continue
		}

		if !r.seen[abs] {
			r.seen[abs] = true
			r.result.Resources = append(r.result.Resources, model.DiscoveredResource{
				URL: abs,
				Rel: link.Rel,
			})
		}

		if link.Rel == RelCollection {
			r.visit(ctx, abs)
		}
	}
}

// warn records a recoverable per-URL failure.
func (r *walkRun) warn(rawURL string, err error) {
	r.walker.logger.Warn("branch terminated",
		"url", rawURL,
		"error", err,
	)
	r.result.Warnings = append(r.result.Warnings, model.Warning{
		Stage:   model.StageCrawl,
		URL:     rawURL,
		Message: err.Error(),
	})
}

// resolveHref resolves href against the document URL using standard
// base+relative resolution. Relative paths, "./" prefixes, and absolute
// URLs all resolve correctly.
func resolveHref(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
