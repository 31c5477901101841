package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/nao1215/stacwalk/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with tabular resource
// listings and clear section formatting.
//
// Design decision: We use plain text with ASCII tables rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// linksOnly outputs one discovered URL per line with no decoration.
	// Useful for piping into download tools.
	linksOnly bool

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithLinksOnly configures the writer to emit one URL per line.
// Derived asset URLs are listed after resource URLs when present.
func WithLinksOnly(linksOnly bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.linksOnly = linksOnly
	}
}

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		linksOnly:  false,
		showEmpty:  false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ExtractReport) (int, error) {
	if w.linksOnly {
		return w.writeLinks(report)
	}

	var sb strings.Builder

	w.writeHeader(&sb, report)
	if err := w.writeResources(&sb, report); err != nil {
		return 0, err
	}
	if err := w.writeAssets(&sb, report); err != nil {
		return 0, err
	}
	w.writeWarnings(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeLinks emits one URL per line: resources first, then derived assets.
func (w *SimpleWriter) writeLinks(report *model.ExtractReport) (int, error) {
	var sb strings.Builder
	for _, url := range report.ResourceURLs() {
		sb.WriteString(url)
		sb.WriteString("\n")
	}
	for _, url := range report.AssetURLs() {
		sb.WriteString(url)
		sb.WriteString("\n")
	}
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ExtractReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        STACWALK REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Input URL:        %s\n", report.BrowserURL))
	if report.CatalogURL != "" && report.CatalogURL != report.BrowserURL {
		sb.WriteString(fmt.Sprintf("Catalog URL:      %s\n", report.CatalogURL))
	}
	sb.WriteString(fmt.Sprintf("Date:             %s\n", report.DateExtracted.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Documents Fetched: %d\n", report.DocumentsFetched))

	switch {
	case report.TimedOut:
		sb.WriteString("Status:           TIMED OUT (partial results)\n")
	case report.ErrorMessage != "":
		sb.WriteString(fmt.Sprintf("Status:           ERROR - %s\n", report.ErrorMessage))
	default:
		sb.WriteString("Status:           Complete\n")
	}

	sb.WriteString("\n")
}

// writeResources writes the discovered resources table.
func (w *SimpleWriter) writeResources(sb *strings.Builder, report *model.ExtractReport) error {
	if len(report.Resources) == 0 && !w.showEmpty {
		return nil
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DISCOVERED RESOURCES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Resources) == 0 {
		sb.WriteString("  No resources discovered\n\n")
		return nil
	}

	table := tablewriter.NewWriter(sb)
	table.Header("#", "URL", "Rel")
	for i, res := range report.Resources {
		if err := table.Append([]string{strconv.Itoa(i + 1), res.URL, res.Rel}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	sb.WriteString("\n")
	return nil
}

// writeAssets writes the derived asset table.
func (w *SimpleWriter) writeAssets(sb *strings.Builder, report *model.ExtractReport) error {
	if len(report.Assets) == 0 && !w.showEmpty {
		return nil
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DERIVED ASSETS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Assets) == 0 {
		sb.WriteString("  No assets derived\n\n")
		return nil
	}

	table := tablewriter.NewWriter(sb)
	table.Header("Asset URL", "Name", "Inferred")
	for _, a := range report.Assets {
		name := a.Name
		if name == "" {
			name = "-"
		}
		inferred := "no"
		if a.Inferred {
			inferred = "yes"
		}
		if err := table.Append([]string{a.AssetURL, name, inferred}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	sb.WriteString("\n")
	return nil
}

// writeWarnings writes per-URL warnings from the run.
func (w *SimpleWriter) writeWarnings(sb *strings.Builder, report *model.ExtractReport) {
	if !report.HasWarnings() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("WARNINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if !report.HasWarnings() {
		sb.WriteString("  No warnings\n\n")
		return
	}

	for _, warning := range report.Warnings {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", warning.Stage, warning.URL))
		sb.WriteString(fmt.Sprintf("      %s\n", warning.Message))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by stacwalk\n")
	sb.WriteString("https://github.com/nao1215/stacwalk\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
