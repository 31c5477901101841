package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// This test ensures that defaults are documented through tests and that changes
// to defaults are intentional (tests will fail if defaults change unexpectedly).
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	// Verify each default value explicitly
	// This serves as living documentation of the defaults
	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default BatchSize is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize to be 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("default Relations are item and collection", func(t *testing.T) {
		t.Parallel()
		if len(cfg.Relations) != 2 || cfg.Relations[0] != "item" || cfg.Relations[1] != "collection" {
			t.Errorf("unexpected default relations: %v", cfg.Relations)
		}
	})

	t.Run("default DeriveAssets is true", func(t *testing.T) {
		t.Parallel()
		if !cfg.DeriveAssets {
			t.Error("expected DeriveAssets to be true")
		}
	})

	t.Run("default PatternFallback is true", func(t *testing.T) {
		t.Parallel()
		if !cfg.PatternFallback {
			t.Error("expected PatternFallback to be true")
		}
	})

	t.Run("default MaxBodySize is 10MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 10*1024*1024 {
			t.Errorf("expected MaxBodySize to be 10MB, got %d", cfg.MaxBodySize)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	// Tests can modify specific fields to test validation rules.
	validConfig := func() *Config {
		return &Config{
			Inputs:    []string{"https://example.com/#/external/catalog.example/catalog.json"},
			Timeout:   30 * time.Second,
			BatchSize: 4,
		}
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("multiple inputs is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Inputs = []string{
			"https://catalog1.example/catalog.json",
			"https://catalog2.example/catalog.json",
		}

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("empty inputs returns ErrNoInput", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Inputs = []string{}

		err := cfg.Validate()
		if !errors.Is(err, ErrNoInput) {
			t.Errorf("expected ErrNoInput, got %v", err)
		}
	})

	t.Run("nil inputs returns ErrNoInput", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Inputs = nil

		err := cfg.Validate()
		if !errors.Is(err, ErrNoInput) {
			t.Errorf("expected ErrNoInput, got %v", err)
		}
	})

	t.Run("zero timeout returns ErrInvalidTimeout", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Timeout = 0

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("negative timeout returns ErrInvalidTimeout", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Timeout = -1 * time.Second

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("zero batch size returns ErrInvalidBatchSize", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.BatchSize = 0

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("expected ErrInvalidBatchSize, got %v", err)
		}
	})

	t.Run("json and markdown both enabled returns ErrConflictingReportFormats", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.JSONReport = true
		cfg.MarkdownReport = true

		err := cfg.Validate()
		if !errors.Is(err, ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("json only is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.JSONReport = true

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("markdown only is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MarkdownReport = true

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("negative max body size returns ErrInvalidMaxBodySize", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxBodySize = -1

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidMaxBodySize) {
			t.Errorf("expected ErrInvalidMaxBodySize, got %v", err)
		}
	})

	t.Run("unknown relation returns ErrUnknownRelation", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Relations = []string{"item", "parent"}

		err := cfg.Validate()
		if !errors.Is(err, ErrUnknownRelation) {
			t.Errorf("expected ErrUnknownRelation, got %v", err)
		}
	})

	t.Run("extended relations are valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Relations = []string{"item", "collection", "child", "self"}

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestFileGetCatalogConfig tests the GetCatalogConfig method.
func TestFileGetCatalogConfig(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }

	t.Run("returns defaults when catalog not found", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				Cookie: "default_cookie=abc",
			},
			Catalogs: map[string]CatalogConfig{},
		}

		cfg := file.GetCatalogConfig("unknown.example")
		if cfg.Cookie != "default_cookie=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("returns catalog-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				Cookie: "default_cookie=abc",
			},
			Catalogs: map[string]CatalogConfig{
				"catalog.example": {
					Cookie:    "session=xyz",
					Relations: []string{"item", "collection", "child"},
				},
			},
		}

		cfg := file.GetCatalogConfig("catalog.example")
		if cfg.Cookie != "session=xyz" {
			t.Errorf("expected catalog cookie, got %q", cfg.Cookie)
		}
		if len(cfg.Relations) != 3 {
			t.Errorf("expected catalog relations, got %v", cfg.Relations)
		}
	})

	t.Run("merges headers from defaults and catalog", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				Headers: map[string]string{
					"X-Default": "value1",
				},
			},
			Catalogs: map[string]CatalogConfig{
				"catalog.example": {
					Headers: map[string]string{
						"X-Custom": "value2",
					},
				},
			},
		}

		cfg := file.GetCatalogConfig("catalog.example")
		if cfg.Headers["X-Default"] != "value1" {
			t.Errorf("expected default header, got %v", cfg.Headers)
		}
		if cfg.Headers["X-Custom"] != "value2" {
			t.Errorf("expected custom header, got %v", cfg.Headers)
		}
	})

	t.Run("catalog headers override default headers", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				Headers: map[string]string{
					"Authorization": "default-token",
				},
			},
			Catalogs: map[string]CatalogConfig{
				"catalog.example": {
					Headers: map[string]string{
						"Authorization": "catalog-token",
					},
				},
			},
		}

		cfg := file.GetCatalogConfig("catalog.example")
		if cfg.Headers["Authorization"] != "catalog-token" {
			t.Errorf("expected catalog token to override, got %q", cfg.Headers["Authorization"])
		}
	})

	t.Run("header merge does not leak into other hosts", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				Headers: map[string]string{
					"X-Default": "value1",
				},
			},
			Catalogs: map[string]CatalogConfig{
				"a.example": {
					Headers: map[string]string{
						"Authorization": "Bearer secret-for-a",
					},
				},
			},
		}

		first := file.GetCatalogConfig("a.example")
		if first.Headers["Authorization"] != "Bearer secret-for-a" {
			t.Fatalf("expected a.example authorization header, got %v", first.Headers)
		}

		// A later lookup for an unrelated host must see pristine
		// defaults, not a.example's credentials.
		second := file.GetCatalogConfig("b.example")
		if got, ok := second.Headers["Authorization"]; ok {
			t.Errorf("b.example inherited a.example's Authorization header: %q", got)
		}
		if second.Headers["X-Default"] != "value1" {
			t.Errorf("expected default header for b.example, got %v", second.Headers)
		}
		if file.Defaults.Headers["Authorization"] != "" {
			t.Errorf("defaults map was mutated by merge: %v", file.Defaults.Headers)
		}
	})

	t.Run("concurrent lookups do not race", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				Headers: map[string]string{
					"X-Default": "value1",
				},
			},
			Catalogs: map[string]CatalogConfig{
				"a.example": {
					Headers: map[string]string{"Authorization": "Bearer token-a"},
				},
				"b.example": {
					Headers: map[string]string{"Authorization": "Bearer token-b"},
				},
			},
		}

		// Batch extraction resolves per-catalog configs from concurrent
		// goroutines; run the same access pattern under the race detector.
		var wg sync.WaitGroup
		for range 16 {
			for _, host := range []string{"a.example", "b.example", "c.example"} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					cfg := file.GetCatalogConfig(host)
					if cfg.Headers["X-Default"] != "value1" {
						t.Errorf("missing default header for %s: %v", host, cfg.Headers)
					}
				}()
			}
		}
		wg.Wait()
	})

	t.Run("catalog flags override defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				DeriveAssets: boolPtr(true),
			},
			Catalogs: map[string]CatalogConfig{
				"catalog.example": {
					DeriveAssets:    boolPtr(false),
					PatternFallback: boolPtr(false),
				},
			},
		}

		cfg := file.GetCatalogConfig("catalog.example")
		if cfg.DeriveAssets == nil || *cfg.DeriveAssets {
			t.Errorf("expected DeriveAssets override to false, got %v", cfg.DeriveAssets)
		}
		if cfg.PatternFallback == nil || *cfg.PatternFallback {
			t.Errorf("expected PatternFallback override to false, got %v", cfg.PatternFallback)
		}
	})

	t.Run("nil catalogs map", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: CatalogConfig{
				Cookie: "default=abc",
			},
		}

		cfg := file.GetCatalogConfig("any.example")
		if cfg.Cookie != "default=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Cookie)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.stacwalk")
		if err == nil {
			t.Fatal("expected error for non-existent file")
		}
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".stacwalk")

		content := `defaults:
  cookie: "default=abc"
catalogs:
  catalog.example:
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    relations:
      - item
      - collection
      - child
    deriveAssets: false
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Cookie != "default=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Defaults.Cookie)
		}

		catalog, ok := cfg.Catalogs["catalog.example"]
		if !ok {
			t.Fatal("expected catalog.example in catalogs")
		}
		if catalog.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(catalog.Relations) != 3 {
			t.Errorf("expected 3 relations, got %d", len(catalog.Relations))
		}
		if catalog.DeriveAssets == nil || *catalog.DeriveAssets {
			t.Errorf("expected deriveAssets false, got %v", catalog.DeriveAssets)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".stacwalk")

		content := `invalid: yaml: content: [}`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfigFile(configPath)
		if err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Catalogs map", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, ".stacwalk")

		content := `defaults:
  cookie: "abc=def"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Catalogs == nil {
			t.Error("expected Catalogs map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "custom.yaml")

		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		result := FindConfigFile(configPath)
		if result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		result := FindConfigFile("/nonexistent/path/config.yaml")
		if result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("returns empty when no config found", func(_ *testing.T) {
		result := FindConfigFile("")
		// This may or may not find a config depending on the system
		// Just ensure it doesn't panic
		_ = result
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	t.Run("XDGDataDir returns non-empty path", func(t *testing.T) {
		t.Parallel()

		dir := XDGDataDir()
		if dir == "" {
			t.Error("expected non-empty XDG data dir")
		}
	})

	t.Run("XDGConfigDir returns non-empty path", func(t *testing.T) {
		t.Parallel()

		dir := XDGConfigDir()
		if dir == "" {
			t.Error("expected non-empty XDG config dir")
		}
	})

	t.Run("XDGCacheDir returns non-empty path", func(t *testing.T) {
		t.Parallel()

		dir := XDGCacheDir()
		if dir == "" {
			t.Error("expected non-empty XDG cache dir")
		}
	})
}
