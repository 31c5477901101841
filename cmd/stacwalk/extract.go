package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/stacwalk/internal/browserurl"
	"github.com/nao1215/stacwalk/internal/config"
	"github.com/nao1215/stacwalk/internal/database"
	"github.com/nao1215/stacwalk/internal/log"
	"github.com/nao1215/stacwalk/internal/model"
	"github.com/nao1215/stacwalk/internal/pipeline"
	"github.com/nao1215/stacwalk/internal/report"
	"github.com/spf13/cobra"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [url]",
		Short: "Extract downloadable URLs from a STAC catalog",
		Long: `Extract resolves the input URL, walks the catalog's typed links, and
derives raster asset URLs for the items it discovers.

The input may be a STAC Browser share link (the #/external/ form) or a
direct catalog URL:

Examples:
  # Extract from a browser share link
  stacwalk extract "https://browser.example/#/external/maxar-opendata.s3.amazonaws.com/events/catalog.json"

  # Extract from a direct catalog URL
  stacwalk extract https://maxar-opendata.s3.amazonaws.com/events/catalog.json

  # Extract from several catalogs concurrently
  stacwalk extract url1 url2 url3

  # Read input URLs from a file (one per line)
  stacwalk extract --list urls.txt

  # Emit one URL per line for piping into download tools
  stacwalk extract --links-only <url> | xargs -n1 curl -O

  # Output JSON report
  stacwalk extract --json <url>

  # Use a custom configuration file
  stacwalk extract -c myconfig.yaml <url>

Configuration file (.stacwalk) example:
  catalogs:
    maxar-opendata.s3.amazonaws.com:
      relations: [item, collection, child]
      deriveAssets: true
    private-mirror.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runExtractCmd,
	}

	// Extraction behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Overall deadline for each extraction run")
	cmd.Flags().StringSliceP("relations", "r", nil,
		"Link relations to extract (default: item,collection)")
	cmd.Flags().Bool("derive", true,
		"Derive raster asset URLs for discovered items")
	cmd.Flags().Bool("fallback", true,
		"Infer asset URLs from path conventions when items carry no raster asset")

	// Input flags
	cmd.Flags().StringP("list", "L", "",
		"Read input URLs from the specified file (one per line)")

	// Batch processing flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent extractions")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .stacwalk in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("links-only", "l", false,
		"Output one discovered URL per line instead of a report")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed; numbered per input when extracting multiple URLs)")

	// Persistence flags
	cmd.Flags().Bool("no-save", false,
		"Do not save extraction results to the local history database")

	return cmd
}

// runExtractCmd executes the extract command.
func runExtractCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential redaction
	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runExtract(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	relations, err := cmd.Flags().GetStringSlice("relations")
	if err != nil {
		return nil, err
	}
	if len(relations) > 0 {
		cfg.Relations = relations
	}

	cfg.DeriveAssets, err = cmd.Flags().GetBool("derive")
	if err != nil {
		return nil, err
	}

	cfg.PatternFallback, err = cmd.Flags().GetBool("fallback")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-catalog configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.CatalogConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.CatalogConfigs = &config.File{
			Catalogs: make(map[string]config.CatalogConfig),
		}
	}

	cfg.LinksOnly, err = cmd.Flags().GetBool("links-only")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	// Positional arguments, optionally extended from a list file
	cfg.Inputs = args

	listFile, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}
	if listFile != "" {
		fromFile, err := readInputList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Inputs = append(cfg.Inputs, fromFile...)
	}

	return cfg, nil
}

// readInputList reads input URLs from a file, one per line.
// Blank lines and lines starting with # are skipped.
func readInputList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from an explicit CLI flag
	if err != nil {
		return nil, fmt.Errorf("failed to open input list: %w", err)
	}
	defer f.Close()

	var inputs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input list: %w", err)
	}

	return inputs, nil
}

// runExtract executes the extraction.
func runExtract(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting extraction",
		"inputs", len(cfg.Inputs),
		"batchSize", cfg.BatchSize,
		"deriveAssets", cfg.DeriveAssets,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	client := &http.Client{Timeout: cfg.Timeout}

	// Use batch processor for parallel extraction if multiple inputs
	if len(cfg.Inputs) > 1 && cfg.BatchSize > 1 {
		return runBatchExtract(ctx, cfg, client, db, logger)
	}

	return runSequentialExtract(ctx, cfg, client, db, logger)
}

// runSequentialExtract processes inputs one at a time.
func runSequentialExtract(ctx context.Context, cfg *config.Config, client *http.Client, db *database.HistoryDB, logger *slog.Logger) error {
	for i, input := range cfg.Inputs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := createPipelineForInput(client, logger, cfg, input)
		extractReport := model.NewExtractReport(input)

		if !cfg.LinksOnly {
			fmt.Printf("Extracting %s...\n", input)
		}
		startTime := time.Now()

		if err := p.Execute(ctx, extractReport); err != nil {
			logger.Error("extraction failed", "url", input, "error", err)
			fmt.Fprintf(os.Stderr, "Extraction error for %s: %v\n", input, err)
			continue
		}

		if !cfg.LinksOnly {
			elapsed := time.Since(startTime)
			fmt.Printf("Extraction completed in %s\n\n", elapsed.Round(time.Millisecond))
		}

		if err := outputReport(cfg, extractReport, i); err != nil {
			logger.Error("report failed", "url", input, "error", err)
		}

		if err := saveReport(ctx, db, extractReport, logger); err != nil {
			logger.Error("failed to save report", "url", input, "error", err)
		}
	}

	return nil
}

// runBatchExtract processes multiple inputs concurrently using BatchProcessor.
func runBatchExtract(ctx context.Context, cfg *config.Config, client *http.Client, db *database.HistoryDB, logger *slog.Logger) error {
	if !cfg.LinksOnly {
		fmt.Printf("Starting batch extraction of %d inputs (concurrency: %d)...\n\n",
			len(cfg.Inputs), cfg.BatchSize)
	}

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func(input string) *pipeline.Pipeline {
			return createPipelineForInput(client, logger, cfg, input)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Inputs, func(extractReport *model.ExtractReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		if !cfg.LinksOnly {
			fmt.Printf("[%d/%d] Extraction completed: %s\n", index+1, len(cfg.Inputs), extractReport.BrowserURL)
		}

		if err := outputReport(cfg, extractReport, index); err != nil {
			logger.Error("report failed", "url", extractReport.BrowserURL, "error", err)
		}

		if err := saveReport(ctx, db, extractReport, logger); err != nil {
			logger.Error("failed to save report", "url", extractReport.BrowserURL, "error", err)
		}
	})

	if !cfg.LinksOnly {
		elapsed := time.Since(startTime)
		fmt.Printf("\nBatch extraction completed in %s\n", elapsed.Round(time.Millisecond))
	}

	return err
}

// catalogConfigForInput returns the per-catalog configuration for an input URL.
// The lookup key is the catalog host, so both browser share links and direct
// URLs for the same catalog resolve to the same configuration.
func catalogConfigForInput(cfg *config.Config, input string) config.CatalogConfig {
	if cfg.CatalogConfigs == nil {
		return config.CatalogConfig{}
	}

	res, err := browserurl.Resolve(input)
	if err != nil {
		// The pipeline reports unresolvable inputs; use defaults here.
		return cfg.CatalogConfigs.Defaults
	}

	u, err := url.Parse(res.CatalogURL)
	if err != nil {
		return cfg.CatalogConfigs.Defaults
	}

	return cfg.CatalogConfigs.GetCatalogConfig(u.Host)
}

// createPipelineForInput creates a pipeline for one input URL, applying
// per-catalog configuration on top of the global settings.
func createPipelineForInput(client *http.Client, logger *slog.Logger, cfg *config.Config, input string) *pipeline.Pipeline {
	catalogConfig := catalogConfigForInput(cfg, input)

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
	}

	// Per-catalog settings override global flags
	relations := cfg.Relations
	if len(catalogConfig.Relations) > 0 {
		relations = catalogConfig.Relations
	}
	deriveAssets := cfg.DeriveAssets
	if catalogConfig.DeriveAssets != nil {
		deriveAssets = *catalogConfig.DeriveAssets
	}
	patternFallback := cfg.PatternFallback
	if catalogConfig.PatternFallback != nil {
		patternFallback = *catalogConfig.PatternFallback
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineRelations(relations),
		pipeline.WithPipelineDeriveAssets(deriveAssets),
		pipeline.WithPipelinePatternFallback(patternFallback),
		pipeline.WithPipelineUserAgent(cfg.UserAgent),
		pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
	}

	if catalogConfig.Cookie != "" {
		configOpts = append(configOpts, pipeline.WithPipelineCookie(catalogConfig.Cookie))
	}
	if len(catalogConfig.Headers) > 0 {
		configOpts = append(configOpts, pipeline.WithPipelineHeaders(catalogConfig.Headers))
	}

	return pipeline.DefaultPipeline(client, pipelineOpts, configOpts...)
}

// outputReport outputs the extraction report in the requested format.
// index is the position of the report's input; with multiple inputs and
// --output, each report gets its own numbered file so batch completions
// cannot clobber one another.
func outputReport(cfg *config.Config, extractReport *model.ExtractReport, index int) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		path := cfg.ReportFile
		if len(cfg.Inputs) > 1 {
			path = numberedReportFile(path, index+1)
		}

		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may embed auth headers from warnings, so restrict access
		// to the owner.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // Path comes from an explicit CLI flag
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.LinksOnly:
		writer = report.NewSimpleWriter(output, report.WithLinksOnly(true))
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(extractReport)
	return err
}

// numberedReportFile inserts a 1-based sequence number before the file
// extension: report.json becomes report-2.json. Numbers follow input
// order, so the mapping from file to input is stable across runs.
func numberedReportFile(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// saveReport saves the extraction report to the database if enabled.
// If db is nil, this function is a no-op.
func saveReport(ctx context.Context, db *database.HistoryDB, extractReport *model.ExtractReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveReport(ctx, extractReport); err != nil {
		return fmt.Errorf("failed to save extraction report: %w", err)
	}

	logger.Info("extraction report saved to database", "url", extractReport.CatalogURL)
	return nil
}
