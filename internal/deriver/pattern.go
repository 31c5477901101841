package deriver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/nao1215/stacwalk/internal/model"
)

// assetURLTemplate reconstructs an ARD visual-product URL from the path
// conventions observed in the Maxar Open Data catalog:
// an event name under a literal "events" component, a two-digit UTM grid
// zone, a twelve-digit tile quadkey, and an ISO acquisition date.
//
// This is a best-effort heuristic calibrated against one catalog layout.
// A synthesized URL may be wrong or point at nothing; callers must treat
// it as low-confidence.
const assetURLTemplate = "https://maxar-opendata.s3.amazonaws.com/events/%s/ard/%s/%s/%s/%s-visual.tif"

// fallbackCatalogID is substituted when the item's id does not look like
// a vendor catalog identifier (CATID).
const fallbackCatalogID = "10300100D3004A00"

// minCatalogIDLength is the shortest id accepted as a plausible CATID.
const minCatalogIDLength = 16

var (
	gridSegmentRE = regexp.MustCompile(`^\d{2}$`)
	tileSegmentRE = regexp.MustCompile(`^\d{12}$`)
	dateSegmentRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// pathComponents are the four structural pieces needed to synthesize an
// asset URL. All four must resolve or inference yields nothing.
type pathComponents struct {
	event string
	grid  string
	tile  string
	date  string
}

// complete reports whether every component was resolved.
func (c *pathComponents) complete() bool {
	return c.event != "" && c.grid != "" && c.tile != "" && c.date != ""
}

// fromProperties fills components from item properties.
func (c *pathComponents) fromProperties(doc *model.CatalogDocument) {
	if c.event == "" {
		c.event = doc.StringProperty("event")
	}
	if c.grid == "" {
		if v := doc.StringProperty("grid"); gridSegmentRE.MatchString(v) {
			c.grid = v
		}
	}
	if c.tile == "" {
		if v := doc.StringProperty("tile"); tileSegmentRE.MatchString(v) {
			c.tile = v
		}
	}
	if c.date == "" {
		if v := doc.StringProperty("datetime"); len(v) >= 10 && dateSegmentRE.MatchString(v[:10]) {
			c.date = v[:10]
		}
	}
}

// fromPath fills remaining components by pattern-matching the item URL's
// path segments.
func (c *pathComponents) fromPath(itemURL string) {
	u, err := url.Parse(itemURL)
	if err != nil {
		return
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		switch {
		case c.event == "" && seg == "events" && i+1 < len(segments):
			c.event = segments[i+1]
		case c.grid == "" && gridSegmentRE.MatchString(seg):
			c.grid = seg
		case c.tile == "" && tileSegmentRE.MatchString(seg):
			c.tile = seg
		case c.date == "" && dateSegmentRE.MatchString(seg):
			c.date = seg
		}
	}
}

// inferAssetURL synthesizes a raster URL for an item with no raster
// assets of its own. Returns nil when the four path components cannot all
// be resolved.
func inferAssetURL(doc *model.CatalogDocument, itemURL string) *model.DerivedAsset {
	c := &pathComponents{}
	c.fromProperties(doc)
	c.fromPath(itemURL)
	if !c.complete() {
		return nil
	}

	id := doc.ID
	if !plausibleCatalogID(id) {
		id = fallbackCatalogID
	}

	return &model.DerivedAsset{
		ItemURL:  itemURL,
		AssetURL: fmt.Sprintf(assetURLTemplate, c.event, c.grid, c.tile, c.date, id),
		Inferred: true,
	}
}

// plausibleCatalogID reports whether id looks like a vendor catalog
// identifier: long enough and carrying at least one letter.
func plausibleCatalogID(id string) bool {
	if len(id) < minCatalogIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
