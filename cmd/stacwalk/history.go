package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/stacwalk/internal/browserurl"
	"github.com/nao1215/stacwalk/internal/config"
	"github.com/nao1215/stacwalk/internal/database"
	"github.com/nao1215/stacwalk/internal/model"
	"github.com/nao1215/stacwalk/internal/report"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command inspects extraction results stored in the local database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [catalog-url]",
		Short: "Inspect stored extraction results",
		Long: `History lists and displays extraction runs stored in the local database.

Every 'stacwalk extract' run is saved unless --no-save is given. This
command retrieves those results so catalogs can be inspected without
re-walking them.

Examples:
  # List all stored runs
  stacwalk history

  # List runs for one catalog
  stacwalk history https://maxar-opendata.s3.amazonaws.com/events/catalog.json

  # Show the latest stored report for a catalog
  stacwalk history --latest https://maxar-opendata.s3.amazonaws.com/events/catalog.json

  # Show a specific run by ID (use the list to find IDs)
  stacwalk history --id 5

  # List all catalogs with stored runs
  stacwalk history --catalogs

  # Output a stored report as JSON
  stacwalk history --id 5 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("catalogs", "C", false,
		"List all catalogs with stored runs")

	// Report selection flags
	cmd.Flags().Int64P("id", "i", 0,
		"Show the stored report with this ID")
	cmd.Flags().Bool("latest", false,
		"Show the latest stored report for the given catalog")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output stored report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output stored report in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listCatalogs, err := cmd.Flags().GetBool("catalogs")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	// Normalize the catalog argument before opening the database so
	// validation failures do not touch the database file.
	var catalogURL string
	if len(args) > 0 {
		res, err := browserurl.Resolve(args[0])
		if err != nil {
			return fmt.Errorf("invalid catalog URL %q: %w", args[0], err)
		}
		catalogURL = res.CatalogURL
	}

	if latest && catalogURL == "" {
		return errors.New("--latest requires a catalog URL argument")
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch {
	case listCatalogs:
		return listStoredCatalogs(ctx, db)
	case runID > 0:
		return showReportByID(ctx, db, runID, jsonOutput, markdownOutput)
	case latest:
		return showLatestReport(ctx, db, catalogURL, jsonOutput, markdownOutput)
	default:
		return listStoredRuns(ctx, db, catalogURL)
	}
}

// listStoredCatalogs lists all catalogs that have runs in the database.
func listStoredCatalogs(ctx context.Context, db *database.HistoryDB) error {
	catalogs, err := db.ListCatalogs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}

	if len(catalogs) == 0 {
		fmt.Println("No stored runs found in the database.")
		fmt.Println("\nUse 'stacwalk extract <url>' to extract from a catalog.")
		return nil
	}

	fmt.Printf("Catalogs with stored runs (%d):\n\n", len(catalogs))
	for _, catalog := range catalogs {
		fmt.Printf("  • %s\n", catalog)
	}
	fmt.Println("\nUse 'stacwalk history <catalog-url>' to see runs for a catalog.")

	return nil
}

// listStoredRuns lists metadata for stored runs, optionally filtered by catalog.
func listStoredRuns(ctx context.Context, db *database.HistoryDB, catalogURL string) error {
	runs, err := db.ListRuns(ctx, catalogURL)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		if catalogURL != "" {
			fmt.Printf("No stored runs found for %s\n", catalogURL)
		} else {
			fmt.Println("No stored runs found in the database.")
		}
		fmt.Println("\nUse 'stacwalk extract <url>' to extract from a catalog.")
		return nil
	}

	if catalogURL != "" {
		fmt.Printf("Stored runs for %s (%d):\n\n", catalogURL, len(runs))
	} else {
		fmt.Printf("Stored runs (%d):\n\n", len(runs))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Date", "Catalog", "Resources", "Assets", "Warnings")
	for _, run := range runs {
		if err := table.Append([]string{
			fmt.Sprintf("%d", run.ID),
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.CatalogURL,
			fmt.Sprintf("%d", run.ResourceCount),
			fmt.Sprintf("%d", run.AssetCount),
			fmt.Sprintf("%d", run.WarningCount),
		}); err != nil {
			return fmt.Errorf("failed to render run listing: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render run listing: %w", err)
	}

	fmt.Println("\nUse 'stacwalk history --id <id>' to display a stored report.")

	return nil
}

// showReportByID displays the stored report with the given database ID.
func showReportByID(ctx context.Context, db *database.HistoryDB, id int64, jsonOutput, markdownOutput bool) error {
	stored, err := db.GetReportByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get report with ID %d: %w", id, err)
	}
	if stored == nil {
		return fmt.Errorf("run with ID %d not found (use 'stacwalk history' to list runs)", id)
	}

	return writeStoredReport(stored, jsonOutput, markdownOutput)
}

// showLatestReport displays the most recent stored report for a catalog.
func showLatestReport(ctx context.Context, db *database.HistoryDB, catalogURL string, jsonOutput, markdownOutput bool) error {
	stored, err := db.GetLatestReport(ctx, catalogURL)
	if err != nil {
		return fmt.Errorf("failed to get latest report: %w", err)
	}
	if stored == nil {
		return fmt.Errorf("no stored runs found for %s", catalogURL)
	}

	return writeStoredReport(stored, jsonOutput, markdownOutput)
}

// writeStoredReport writes a stored report to stdout in the requested format.
func writeStoredReport(stored *model.ExtractReport, jsonOutput, markdownOutput bool) error {
	var writer report.Writer
	switch {
	case jsonOutput:
		writer = report.NewFullJSONWriter(os.Stdout, getVersion(), report.WithPrettyPrint())
	case markdownOutput:
		writer = report.NewMarkdownWriter(os.Stdout)
	default:
		writer = report.NewSimpleWriter(os.Stdout)
	}

	_, err := writer.Write(stored)
	return err
}
