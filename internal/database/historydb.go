package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/stacwalk/internal/model"
)

// HistoryDB provides SQLite-based storage for extraction runs.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all catalogs rather
// than separate files per catalog. This keeps cross-catalog queries simple
// and makes backup/restore a single-file operation.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "stacwalk.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string.
	// modernc.org/sqlite uses URI-style parameters: mode=rw prevents
	// creating new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Extraction runs store complete run results as JSON plus summary counts
	CREATE TABLE IF NOT EXISTS extraction_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		catalog_url TEXT NOT NULL,
		browser_url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		resource_count INTEGER DEFAULT 0,
		asset_count INTEGER DEFAULT 0,
		warning_count INTEGER DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_catalog ON extraction_runs(catalog_url);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON extraction_runs(timestamp);

	-- Resources track individual URLs discovered during runs
	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		catalog_url TEXT NOT NULL,
		url TEXT NOT NULL,
		rel TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(catalog_url, url)
	);

	CREATE INDEX IF NOT EXISTS idx_resources_catalog ON resources(catalog_url);
	CREATE INDEX IF NOT EXISTS idx_resources_rel ON resources(rel);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport saves a complete extraction report as JSON together with its
// summary counts, and records each discovered resource.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.ExtractReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO extraction_runs (catalog_url, browser_url, resource_count, asset_count, warning_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.CatalogURL,
		report.BrowserURL,
		len(report.Resources),
		len(report.Assets),
		len(report.Warnings),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save extraction run: %w", err)
	}

	for _, res := range report.Resources {
		if err := hdb.upsertResource(ctx, report.CatalogURL, res); err != nil {
			return err
		}
	}

	return nil
}

// upsertResource inserts or refreshes a discovered resource record.
func (hdb *HistoryDB) upsertResource(ctx context.Context, catalogURL string, res model.DiscoveredResource) error {
	query := `
	INSERT INTO resources (catalog_url, url, rel)
	VALUES (?, ?, ?)
	ON CONFLICT(catalog_url, url) DO UPDATE SET
		rel = excluded.rel,
		timestamp = CURRENT_TIMESTAMP
	`

	if _, err := hdb.db.ExecContext(ctx, query, catalogURL, res.URL, res.Rel); err != nil {
		return fmt.Errorf("failed to record resource: %w", err)
	}
	return nil
}

// GetLatestReport retrieves the most recent extraction report for a catalog.
// Returns nil without error when the catalog has no stored runs.
func (hdb *HistoryDB) GetLatestReport(ctx context.Context, catalogURL string) (*model.ExtractReport, error) {
	query := `
	SELECT report_json FROM extraction_runs
	WHERE catalog_url = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, catalogURL).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction report: %w", err)
	}

	var report model.ExtractReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetReportByID retrieves an extraction report by its database ID.
// Returns nil without error when no run has the given ID.
func (hdb *HistoryDB) GetReportByID(ctx context.Context, id int64) (*model.ExtractReport, error) {
	query := `
	SELECT report_json FROM extraction_runs
	WHERE id = ?
	`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction report: %w", err)
	}

	var report model.ExtractReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// RunMetadata contains summary information about a stored extraction run.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// CatalogURL is the resolved catalog root that was walked.
	CatalogURL string

	// BrowserURL is the original input URL.
	BrowserURL string

	// Timestamp is when the run was performed.
	Timestamp time.Time

	// ResourceCount is the number of resources the run discovered.
	ResourceCount int

	// AssetCount is the number of assets the run derived.
	AssetCount int

	// WarningCount is the number of recoverable problems the run recorded.
	WarningCount int
}

// ListRuns retrieves run metadata, newest first. When catalogURL is empty,
// runs for all catalogs are returned.
func (hdb *HistoryDB) ListRuns(ctx context.Context, catalogURL string) ([]RunMetadata, error) {
	query := `
	SELECT id, catalog_url, browser_url, timestamp, resource_count, asset_count, warning_count
	FROM extraction_runs
	WHERE 1=1
	`
	args := make([]interface{}, 0, 1)

	if catalogURL != "" {
		query += " AND catalog_url = ?"
		args = append(args, catalogURL)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string

		err := rows.Scan(
			&meta.ID,
			&meta.CatalogURL,
			&meta.BrowserURL,
			&timestamp,
			&meta.ResourceCount,
			&meta.AssetCount,
			&meta.WarningCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListCatalogs returns all catalog URLs that have stored runs.
func (hdb *HistoryDB) ListCatalogs(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT catalog_url FROM extraction_runs
	ORDER BY catalog_url
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}
	defer rows.Close()

	var catalogs []string
	for rows.Next() {
		var catalog string
		if err := rows.Scan(&catalog); err != nil {
			return nil, fmt.Errorf("failed to scan catalog: %w", err)
		}
		catalogs = append(catalogs, catalog)
	}

	return catalogs, rows.Err()
}

// KnownResources returns the URLs previously discovered under a catalog.
func (hdb *HistoryDB) KnownResources(ctx context.Context, catalogURL string) ([]model.DiscoveredResource, error) {
	query := `
	SELECT url, rel FROM resources
	WHERE catalog_url = ?
	ORDER BY url
	`

	rows, err := hdb.db.QueryContext(ctx, query, catalogURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var results []model.DiscoveredResource
	for rows.Next() {
		var res model.DiscoveredResource
		if err := rows.Scan(&res.URL, &res.Rel); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
