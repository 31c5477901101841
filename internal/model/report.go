package model

import "time"

// Warning stages. Each warning records the pipeline stage that raised it
// so report readers can tell a dead catalog branch from a failed
// derivation.
const (
	// StageNormalize marks advisories raised while normalizing the input URL.
	StageNormalize = "normalize"

	// StageCrawl marks per-URL fetch or resolution failures during the walk.
	StageCrawl = "crawl"

	// StageDerive marks per-item failures during asset derivation.
	StageDerive = "derive"
)

// DiscoveredResource is one catalog resource found during the walk,
// classified by the link relation it was discovered through.
type DiscoveredResource struct {
	// URL is the absolute resource URL.
	URL string `json:"url"`

	// Rel is the link relation the resource was discovered through
	// (item, collection, child, or self).
	Rel string `json:"rel"`
}

// DerivedAsset is one downstream raster URL produced for a discovered item.
type DerivedAsset struct {
	// ItemURL is the item document the asset belongs to.
	ItemURL string `json:"item_url"`

	// AssetURL is the absolute raster asset URL.
	AssetURL string `json:"asset_url"`

	// Name is the asset key in the item document. Empty when the URL
	// was inferred rather than read from an asset descriptor.
	Name string `json:"name,omitempty"`

	// Inferred is true when the URL was synthesized by the pattern
	// fallback. Inferred URLs are best-effort and may not exist.
	Inferred bool `json:"inferred"`
}

// Warning is a recoverable, per-URL problem encountered during a run.
// Warnings never abort the run; they are collected and reported.
type Warning struct {
	// Stage is the pipeline stage that raised the warning.
	Stage string `json:"stage"`

	// URL is the offending URL.
	URL string `json:"url"`

	// Message is the underlying cause.
	Message string `json:"message"`
}

// ExtractReport is the result of one extraction run. It accumulates
// output as pipeline steps execute and is the unit of report rendering
// and database persistence.
//
// Design decision: All run state lives in this struct rather than in
// package-level accumulators, so multiple runs can execute independently
// and, in batch mode, concurrently.
type ExtractReport struct {
	// BrowserURL is the raw input as supplied by the caller.
	BrowserURL string `json:"browser_url"`

	// CatalogURL is the normalized, fetchable root document URL.
	// Empty until the normalize step succeeds.
	CatalogURL string `json:"catalog_url,omitempty"`

	// DateExtracted is when the run started.
	DateExtracted time.Time `json:"date_extracted"`

	// Resources is the ordered, deduplicated sequence of discovered
	// resource URLs, in first-seen order.
	Resources []DiscoveredResource `json:"resources,omitempty"`

	// Assets is the ordered sequence of derived raster asset URLs,
	// one at most per discovered item.
	Assets []DerivedAsset `json:"assets,omitempty"`

	// Warnings collects every recoverable problem from the run.
	Warnings []Warning `json:"warnings,omitempty"`

	// DocumentsFetched counts fetch attempts made during the walk.
	DocumentsFetched int `json:"documents_fetched"`

	// PerformedSteps lists the pipeline steps that executed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true if the run was cancelled before completing.
	TimedOut bool `json:"timed_out"`

	// Error contains the fatal error that aborted the run, if any.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewExtractReport creates a report for the given input URL.
func NewExtractReport(browserURL string) *ExtractReport {
	return &ExtractReport{
		BrowserURL:    browserURL,
		DateExtracted: time.Now(),
	}
}

// AddResource appends a discovered resource unless its URL is already
// present. It returns true when the resource was appended.
func (r *ExtractReport) AddResource(url, rel string) bool {
	for _, res := range r.Resources {
		if res.URL == url {
			return false
		}
	}
	r.Resources = append(r.Resources, DiscoveredResource{URL: url, Rel: rel})
	return true
}

// AddWarning records a recoverable problem for the given stage and URL.
func (r *ExtractReport) AddWarning(stage, url string, err error) {
	if err == nil {
		return
	}
	r.Warnings = append(r.Warnings, Warning{
		Stage:   stage,
		URL:     url,
		Message: err.Error(),
	})
}

// AddWarningMessage records a recoverable problem with a literal message.
func (r *ExtractReport) AddWarningMessage(stage, url, message string) {
	r.Warnings = append(r.Warnings, Warning{
		Stage:   stage,
		URL:     url,
		Message: message,
	})
}

// ItemResources returns the discovered resources with relation "item",
// the inputs to asset derivation.
func (r *ExtractReport) ItemResources() []DiscoveredResource {
	var items []DiscoveredResource
	for _, res := range r.Resources {
		if res.Rel == "item" {
			items = append(items, res)
		}
	}
	return items
}

// ResourceURLs returns the discovered resource URLs in first-seen order.
func (r *ExtractReport) ResourceURLs() []string {
	urls := make([]string, len(r.Resources))
	for i, res := range r.Resources {
		urls[i] = res.URL
	}
	return urls
}

// AssetURLs returns the derived asset URLs in derivation order.
func (r *ExtractReport) AssetURLs() []string {
	urls := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		urls[i] = a.AssetURL
	}
	return urls
}

// HasWarnings reports whether the run raised any recoverable problems.
func (r *ExtractReport) HasWarnings() bool {
	return len(r.Warnings) > 0
}
