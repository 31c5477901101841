package config

import "maps"

// CatalogConfig holds per-catalog configuration for a single catalog host.
// This allows customizing crawl behavior per catalog, for example sending
// an authorization header to a private mirror.
type CatalogConfig struct {
	// Cookie is an HTTP cookie to use when crawling this catalog.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this catalog.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Relations overrides the link relations the crawl acts on for this
	// catalog. If empty, the global relation set is used.
	Relations []string `yaml:"relations,omitempty"`

	// DeriveAssets overrides asset derivation for this catalog.
	// If nil, the global setting is used.
	DeriveAssets *bool `yaml:"deriveAssets,omitempty"`

	// PatternFallback overrides pattern-based URL inference for this catalog.
	// If nil, the global setting is used.
	PatternFallback *bool `yaml:"patternFallback,omitempty"`
}

// File represents the structure of the .stacwalk configuration file.
type File struct {
	// Catalogs maps catalog hostnames to their per-catalog configurations.
	// Keys should be the hostname without the protocol
	// (e.g., "maxar-opendata.s3.amazonaws.com").
	Catalogs map[string]CatalogConfig `yaml:"catalogs,omitempty"`

	// Defaults contains default catalog configuration applied to all
	// catalogs unless overridden in the catalog-specific configuration.
	Defaults CatalogConfig `yaml:"defaults,omitempty"`
}

// GetCatalogConfig returns the configuration for a specific catalog host.
// It merges the catalog-specific configuration with defaults.
func (cf *File) GetCatalogConfig(host string) CatalogConfig {
	// Start with defaults. The headers map must be cloned: the merge
	// below writes into it, and a shared map would leak one catalog's
	// headers (including Authorization) into every later lookup. Batch
	// extraction calls this concurrently, so a shared map would also
	// be a data race.
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	// Override with catalog-specific configuration if present
	if catalogConfig, ok := cf.Catalogs[host]; ok {
		if catalogConfig.Cookie != "" {
			result.Cookie = catalogConfig.Cookie
		}
		if len(catalogConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range catalogConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(catalogConfig.Relations) > 0 {
			result.Relations = catalogConfig.Relations
		}
		if catalogConfig.DeriveAssets != nil {
			result.DeriveAssets = catalogConfig.DeriveAssets
		}
		if catalogConfig.PatternFallback != nil {
			result.PatternFallback = catalogConfig.PatternFallback
		}
	}

	return result
}
