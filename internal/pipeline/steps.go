package pipeline

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nao1215/stacwalk/internal/browserurl"
	"github.com/nao1215/stacwalk/internal/config"
	"github.com/nao1215/stacwalk/internal/crawler"
	"github.com/nao1215/stacwalk/internal/deriver"
	"github.com/nao1215/stacwalk/internal/fetch"
	"github.com/nao1215/stacwalk/internal/model"
)

// NormalizeStep converts the raw input URL into a fetchable catalog URL.
// This step is the foundation of the pipeline: when it fails, there is
// nothing to crawl and nothing to derive.
//
// Design decision: Normalization is a separate step rather than a
// precondition in the CLI because:
// 1. Advisories (non-JSON targets, malformed escapes) belong in the report
// 2. Batch mode needs per-input failures isolated inside each report
// 3. The step boundary keeps direct URLs and browser links on one path
type NormalizeStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// NormalizeStepOption configures a NormalizeStep.
type NormalizeStepOption func(*NormalizeStep)

// WithNormalizeLogger sets a custom logger for the normalize step.
func WithNormalizeLogger(logger *slog.Logger) NormalizeStepOption {
	return func(s *NormalizeStep) {
		s.logger = logger
	}
}

// NewNormalizeStep creates a new URL normalization step.
func NewNormalizeStep(opts ...NormalizeStepOption) *NormalizeStep {
	s := &NormalizeStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return "normalize"
}

// Do executes the normalize step.
func (s *NormalizeStep) Do(_ context.Context, report *model.ExtractReport) error {
	result, err := browserurl.Resolve(report.BrowserURL)
	if err != nil {
		return err
	}

	report.CatalogURL = result.CatalogURL
	for _, advisory := range result.Advisories {
		report.AddWarningMessage(model.StageNormalize, result.CatalogURL, advisory)
	}

	if result.Direct {
		s.logger.Debug("input accepted as direct catalog URL", "url", result.CatalogURL)
	} else {
		s.logger.Debug("normalized browser link", "url", result.CatalogURL)
	}

	return nil
}

// CrawlStep walks the catalog graph rooted at the normalized URL and
// collects every discovered resource.
//
// Design decision: Crawling is separate from normalization because:
// 1. It has its own configuration (relations, body limits, headers)
// 2. It produces different data (resources vs a single URL)
// 3. Direct item URLs can skip straight to derivation in future modes
type CrawlStep struct {
	// client is the HTTP client used for catalog fetches.
	client *http.Client

	// relations are the link relations the walker acts on.
	relations []string

	// userAgent is the User-Agent header to send with requests.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	// This prevents memory exhaustion from unexpectedly large documents.
	maxBodySize int64

	// headers are additional HTTP headers to send with requests.
	headers map[string]string

	// cookie is the cookie string to send with requests.
	cookie string

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlRelations sets the link relations the walker acts on.
func WithCrawlRelations(relations []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.relations = relations
	}
}

// WithCrawlUserAgent sets the User-Agent header for HTTP requests.
// A descriptive User-Agent helps catalog operators identify crawler traffic.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithCrawlHeaders sets additional HTTP headers to send with requests.
func WithCrawlHeaders(headers map[string]string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.headers = headers
	}
}

// WithCrawlCookie sets the cookie string to send with requests.
func WithCrawlCookie(cookie string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.cookie = cookie
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new catalog crawling step.
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:      client,
		relations:   crawler.DefaultRelations(),
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, report *model.ExtractReport) error {
	// Nothing to crawl without a normalized catalog URL
	if report.CatalogURL == "" {
		s.logger.Debug("skipping crawl, no catalog URL resolved")
		return nil
	}

	walker := crawler.NewWalker(
		s.fetcher(),
		crawler.WithRelations(s.relations),
		crawler.WithLogger(s.logger),
	)

	result := walker.Walk(ctx, report.CatalogURL)

	report.Resources = append(report.Resources, result.Resources...)
	report.Warnings = append(report.Warnings, result.Warnings...)
	report.DocumentsFetched += result.Fetched

	s.logger.Info("crawl completed",
		"resources", len(result.Resources),
		"fetched", result.Fetched,
		"warnings", len(result.Warnings),
	)

	return nil
}

// fetcher builds the document fetcher from the step's HTTP settings.
func (s *CrawlStep) fetcher() *fetch.Fetcher {
	opts := []fetch.Option{
		fetch.WithUserAgent(s.userAgent),
		fetch.WithMaxBodySize(s.maxBodySize),
	}
	if len(s.headers) > 0 {
		opts = append(opts, fetch.WithHeaders(s.headers))
	}
	if s.cookie != "" {
		opts = append(opts, fetch.WithCookie(s.cookie))
	}
	return fetch.NewFetcher(s.client, opts...)
}

// DeriveAssetsStep resolves a raster asset URL for every discovered item.
//
// Design decision: Derivation is a separate step because:
// 1. It operates on accumulated data from the crawl
// 2. It has its own configuration (pattern fallback on or off)
// 3. It is optional; link-listing runs skip it entirely
type DeriveAssetsStep struct {
	// client is the HTTP client used for item fetches.
	client *http.Client

	// patternFallback enables pattern-based URL inference for items
	// without raster assets.
	patternFallback bool

	// userAgent is the User-Agent header to send with requests.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// headers are additional HTTP headers to send with requests.
	headers map[string]string

	// cookie is the cookie string to send with requests.
	cookie string

	// logger for structured logging.
	logger *slog.Logger
}

// DeriveAssetsStepOption configures a DeriveAssetsStep.
type DeriveAssetsStepOption func(*DeriveAssetsStep)

// WithDerivePatternFallback enables or disables pattern-based inference.
func WithDerivePatternFallback(enabled bool) DeriveAssetsStepOption {
	return func(s *DeriveAssetsStep) {
		s.patternFallback = enabled
	}
}

// WithDeriveUserAgent sets the User-Agent header for HTTP requests.
func WithDeriveUserAgent(userAgent string) DeriveAssetsStepOption {
	return func(s *DeriveAssetsStep) {
		s.userAgent = userAgent
	}
}

// WithDeriveMaxBodySize sets the maximum response body size in bytes.
func WithDeriveMaxBodySize(maxBodySize int64) DeriveAssetsStepOption {
	return func(s *DeriveAssetsStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithDeriveHeaders sets additional HTTP headers to send with requests.
func WithDeriveHeaders(headers map[string]string) DeriveAssetsStepOption {
	return func(s *DeriveAssetsStep) {
		s.headers = headers
	}
}

// WithDeriveCookie sets the cookie string to send with requests.
func WithDeriveCookie(cookie string) DeriveAssetsStepOption {
	return func(s *DeriveAssetsStep) {
		s.cookie = cookie
	}
}

// WithDeriveLogger sets a custom logger for the derive step.
func WithDeriveLogger(logger *slog.Logger) DeriveAssetsStepOption {
	return func(s *DeriveAssetsStep) {
		s.logger = logger
	}
}

// NewDeriveAssetsStep creates a new asset derivation step.
func NewDeriveAssetsStep(client *http.Client, opts ...DeriveAssetsStepOption) *DeriveAssetsStep {
	s := &DeriveAssetsStep{
		client:          client,
		patternFallback: true,
		userAgent:       config.DefaultUserAgent,
		maxBodySize:     config.DefaultMaxBodySize,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DeriveAssetsStep) Name() string {
	return "derive_assets"
}

// Do executes the asset derivation step.
func (s *DeriveAssetsStep) Do(ctx context.Context, report *model.ExtractReport) error {
	items := report.ItemResources()
	if len(items) == 0 {
		s.logger.Debug("skipping derivation, no items discovered")
		return nil
	}

	d := deriver.NewDeriver(
		s.fetcher(),
		deriver.WithPatternFallback(s.patternFallback),
		deriver.WithLogger(s.logger),
	)

	for _, item := range items {
		select {
		case <-ctx.Done():
			report.TimedOut = true
			return ctx.Err()
		default:
		}

		report.DocumentsFetched++
		asset, err := d.Derive(ctx, item.URL)
		if err != nil {
			// Per-item failures never abort the run
			report.AddWarning(model.StageDerive, item.URL, err)
			continue
		}
		if asset == nil {
			report.AddWarningMessage(model.StageDerive, item.URL, "no raster asset found")
			continue
		}
		report.Assets = append(report.Assets, *asset)
	}

	s.logger.Info("derivation completed",
		"items", len(items),
		"assets", len(report.Assets),
	)

	return nil
}

// fetcher builds the document fetcher from the step's HTTP settings.
func (s *DeriveAssetsStep) fetcher() *fetch.Fetcher {
	opts := []fetch.Option{
		fetch.WithUserAgent(s.userAgent),
		fetch.WithMaxBodySize(s.maxBodySize),
	}
	if len(s.headers) > 0 {
		opts = append(opts, fetch.WithHeaders(s.headers))
	}
	if s.cookie != "" {
		opts = append(opts, fetch.WithCookie(s.cookie))
	}
	return fetch.NewFetcher(s.client, opts...)
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Relations are the link relations the crawl acts on.
	Relations []string

	// DeriveAssets controls whether the derivation step is included.
	DeriveAssets bool

	// PatternFallback enables pattern-based URL inference during derivation.
	PatternFallback bool

	// Cookie is the cookie string to send with HTTP requests.
	Cookie string

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Documents larger than this are truncated to prevent memory exhaustion.
	MaxBodySize int64
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineRelations sets the link relations the crawl acts on.
func WithPipelineRelations(relations []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Relations = relations
	}
}

// WithPipelineDeriveAssets controls whether the derivation step runs.
func WithPipelineDeriveAssets(derive bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DeriveAssets = derive
	}
}

// WithPipelinePatternFallback enables or disables pattern-based inference.
func WithPipelinePatternFallback(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.PatternFallback = enabled
	}
}

// WithPipelineCookie sets the cookie for HTTP requests.
func WithPipelineCookie(cookie string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cookie = cookie
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// DefaultPipeline creates a pipeline with all default steps configured.
// This is the standard pipeline for catalog link extraction.
//
// Design decision: We provide a default pipeline because:
// 1. Most users want normalize, crawl, and derive together
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineRelations, etc).
func DefaultPipeline(client *http.Client, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		Relations:       crawler.DefaultRelations(),
		DeriveAssets:    true,
		PatternFallback: true,
		UserAgent:       config.DefaultUserAgent,
		MaxBodySize:     config.DefaultMaxBodySize,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	crawlOpts := []CrawlStepOption{
		WithCrawlRelations(cfg.Relations),
		WithCrawlUserAgent(cfg.UserAgent),
		WithCrawlMaxBodySize(cfg.MaxBodySize),
	}
	if len(cfg.Headers) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlHeaders(cfg.Headers))
	}
	if cfg.Cookie != "" {
		crawlOpts = append(crawlOpts, WithCrawlCookie(cfg.Cookie))
	}

	p.AddSteps(
		NewNormalizeStep(),
		NewCrawlStep(client, crawlOpts...),
	)

	if cfg.DeriveAssets {
		deriveOpts := []DeriveAssetsStepOption{
			WithDerivePatternFallback(cfg.PatternFallback),
			WithDeriveUserAgent(cfg.UserAgent),
			WithDeriveMaxBodySize(cfg.MaxBodySize),
		}
		if len(cfg.Headers) > 0 {
			deriveOpts = append(deriveOpts, WithDeriveHeaders(cfg.Headers))
		}
		if cfg.Cookie != "" {
			deriveOpts = append(deriveOpts, WithDeriveCookie(cfg.Cookie))
		}
		p.AddStep(NewDeriveAssetsStep(client, deriveOpts...))
	}

	return p
}
