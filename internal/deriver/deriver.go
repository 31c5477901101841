package deriver

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/stacwalk/internal/fetch"
	"github.com/nao1215/stacwalk/internal/model"
)

// preferredNames are asset-name substrings that mark a raster as the
// display-ready product. Any match beats a plain data asset.
var preferredNames = []string{"visual", "rgb", "natural"}

// Deriver determines the most relevant downstream raster URL for a
// discovered STAC item.
//
// Two tiers are applied in order, first success wins:
//  1. Direct inspection of the item's assets map
//  2. Pattern inference from the item's properties and URL path
type Deriver struct {
	// fetcher retrieves item documents.
	fetcher *fetch.Fetcher

	// patternFallback enables tier-2 inference when no raster asset is
	// present in the document.
	patternFallback bool

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithPatternFallback enables or disables tier-2 pattern inference.
func WithPatternFallback(enabled bool) Option {
	return func(d *Deriver) {
		d.patternFallback = enabled
	}
}

// WithLogger sets a custom logger for the deriver.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deriver) {
		d.logger = logger
	}
}

// NewDeriver creates a Deriver using the given fetcher.
// The pattern fallback is enabled by default.
func NewDeriver(fetcher *fetch.Fetcher, opts ...Option) *Deriver {
	d := &Deriver{
		fetcher:         fetcher,
		patternFallback: true,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Derive fetches the item at itemURL and returns its most relevant
// raster asset URL. A nil asset with nil error means the document is not
// a STAC item or no raster URL could be determined; that is not an error.
// Fetch and parse failures return an error for the caller to report as a
// per-item warning.
func (d *Deriver) Derive(ctx context.Context, itemURL string) (*model.DerivedAsset, error) {
	doc, err := d.fetcher.Fetch(ctx, itemURL)
	if err != nil {
		return nil, err
	}

	if !doc.IsItem() {
		d.logger.Debug("not a STAC item, skipping derivation", "url", itemURL)
		return nil, nil
	}

	if asset := d.inspectAssets(doc, itemURL); asset != nil {
		return asset, nil
	}

	if d.patternFallback {
		if asset := inferAssetURL(doc, itemURL); asset != nil {
			d.logger.Debug("asset URL inferred from path conventions",
				"item", itemURL,
				"asset", asset.AssetURL,
			)
			return asset, nil
		}
	}

	return nil, nil
}

// inspectAssets scans the item's assets in document order and ranks the
// raster candidates: a preferred name wins over plain order, and among
// equals the first encountered wins.
func (d *Deriver) inspectAssets(doc *model.CatalogDocument, itemURL string) *model.DerivedAsset {
	base, err := url.Parse(itemURL)
	if err != nil {
		return nil
	}

	var first *model.DerivedAsset
	for _, name := range doc.Assets.Names {
		asset := doc.Assets.ByName[name]
		if !isRasterHref(asset.Href) {
			continue
		}

		ref, err := url.Parse(asset.Href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()

		candidate := &model.DerivedAsset{
			ItemURL:  itemURL,
			AssetURL: abs,
			Name:     name,
		}
		if isPreferredName(name) {
			return candidate
		}
		if first == nil {
			first = candidate
		}
	}

	return first
}

// isRasterHref reports whether href points at a GeoTIFF.
func isRasterHref(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasSuffix(lower, ".tif") || strings.HasSuffix(lower, ".tiff")
}

// isPreferredName reports whether the asset name marks a display-ready raster.
func isPreferredName(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range preferredNames {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
