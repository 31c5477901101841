package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/stacwalk/internal/crawler"
)

// Default configuration values.
// These values are chosen based on typical public catalog characteristics:
// static JSON documents served from object storage or CDNs.
const (
	// DefaultTimeout is set to 30 seconds because catalog documents are
	// small static JSON files, usually served from object storage. A run
	// crawling a large catalog makes many requests; a generous per-run
	// timeout would let a dead endpoint stall the whole extraction.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize of 4 concurrent extractions balances throughput
	// with politeness. Each extraction already issues sequential requests
	// during its walk; higher values multiply load on the catalog host.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "stacwalk"

	// DefaultUserAgent identifies stacwalk in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify crawler traffic in their logs.
	DefaultUserAgent = "stacwalk/1.0 (+https://github.com/nao1215/stacwalk)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 10MB is generous for catalog documents, which rarely exceed a few
	// hundred kilobytes, while preventing memory exhaustion from
	// unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Config holds all configuration options for stacwalk.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Timeout is the overall deadline for one extraction run.
	// This bounds the whole walk, not individual requests; catalogs with
	// thousands of items need this to be generous.
	Timeout time.Duration

	// BatchSize is the number of concurrent extractions when processing
	// multiple input URLs. Higher values increase throughput but multiply
	// load on catalog hosts.
	BatchSize int

	// Relations are the link relations the crawl acts on.
	// Empty means the default set (item, collection).
	Relations []string

	// DeriveAssets controls whether raster asset URLs are derived for
	// discovered items. Disabling it turns a run into pure link listing.
	DeriveAssets bool

	// PatternFallback enables pattern-based asset URL inference for items
	// that carry no raster assets of their own. Inferred URLs are
	// best-effort and may not exist.
	PatternFallback bool

	// LinksOnly outputs one discovered URL per line instead of the full
	// report. Useful for piping into download tools.
	LinksOnly bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .stacwalk in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// CatalogConfigs holds per-catalog configurations loaded from the
	// config file. This is populated by LoadConfigFile and consulted by
	// host when building each extraction pipeline.
	CatalogConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Inputs is the list of URLs to extract from. Each may be a STAC
	// Browser share link or a direct catalog URL.
	Inputs []string

	// DBDir is the directory path for storing the SQLite database.
	// When set, extraction results are saved for later inspection via
	// the history command. When empty, results are not persisted.
	// Defaults to XDG data directory (~/.local/share/stacwalk on Linux).
	DBDir string

	// SaveToDB indicates whether to save extraction results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps catalog operators identify crawler
	// traffic.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	// Set to 0 to use the default (10MB).
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, body size).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		BatchSize:       DefaultBatchSize,
		Relations:       crawler.DefaultRelations(),
		DeriveAssets:    true,
		PatternFallback: true,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for stacwalk.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/stacwalk
// On macOS: ~/Library/Application Support/stacwalk
// On Windows: %LOCALAPPDATA%\stacwalk
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for stacwalk.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/stacwalk
// On macOS: ~/Library/Application Support/stacwalk
// On Windows: %APPDATA%\stacwalk
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for stacwalk.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/stacwalk
// On macOS: ~/Library/Caches/stacwalk
// On Windows: %LOCALAPPDATA%\stacwalk\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any extraction begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one input URL
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// BatchSize must be positive; zero would mean no extraction
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// Every configured relation must be one the walker understands
	for _, rel := range c.Relations {
		if !crawler.KnownRelation(rel) {
			return ErrUnknownRelation
		}
	}

	return nil
}
