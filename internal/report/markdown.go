package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/stacwalk/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ExtractReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeResources(md, report)
	w.writeAssets(md, report)
	w.writeWarnings(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ExtractReport) {
	md.H1("stacwalk Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Input URL", "`" + report.BrowserURL + "`"},
			{"Catalog URL", "`" + report.CatalogURL + "`"},
			{"Date", report.DateExtracted.Format("2006-01-02 15:04:05 MST")},
			{"Documents Fetched", strconv.Itoa(report.DocumentsFetched)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.ExtractReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeResources writes the discovered resources section.
func (w *MarkdownWriter) writeResources(md *markdown.Markdown, report *model.ExtractReport) {
	md.H2("Discovered Resources")
	md.PlainText("")

	if len(report.Resources) == 0 {
		md.PlainText("No resources discovered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Resources))
	for i, res := range report.Resources {
		rows[i] = []string{strconv.Itoa(i + 1), res.URL, res.Rel}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Rel"},
		Rows:   rows,
	})
	md.PlainText("")

	// Relation distribution pie chart
	w.writeRelationChart(md, report)
}

// writeRelationChart writes a mermaid pie chart of resources per relation.
func (w *MarkdownWriter) writeRelationChart(md *markdown.Markdown, report *model.ExtractReport) {
	counts := make(map[string]uint64)
	order := make([]string, 0, 4)
	for _, res := range report.Resources {
		if _, ok := counts[res.Rel]; !ok {
			order = append(order, res.Rel)
		}
		counts[res.Rel]++
	}
	if len(order) < 2 {
		// A single-relation chart carries no information
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resources by Relation"),
		piechart.WithShowData(true),
	)
	for _, rel := range order {
		chart.LabelAndIntValue(rel, counts[rel])
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAssets writes the derived assets section.
func (w *MarkdownWriter) writeAssets(md *markdown.Markdown, report *model.ExtractReport) {
	md.H2("Derived Assets")
	md.PlainText("")

	if len(report.Assets) == 0 {
		md.PlainText("No assets derived.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Assets))
	inferredCount := 0
	for i, a := range report.Assets {
		name := a.Name
		if name == "" {
			name = "-"
		}
		inferred := "no"
		if a.Inferred {
			inferred = "yes"
			inferredCount++
		}
		rows[i] = []string{a.AssetURL, name, inferred}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Asset URL", "Name", "Inferred"},
		Rows:   rows,
	})
	md.PlainText("")

	if inferredCount > 0 {
		md.Warningf(
			"%d asset URL(s) were inferred from path conventions and may not exist.",
			inferredCount,
		)
		md.PlainText("")
	}
}

// writeWarnings writes the warnings section.
func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, report *model.ExtractReport) {
	md.H2("Warnings")
	md.PlainText("")

	if !report.HasWarnings() {
		md.Tip("The run completed without warnings.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Warnings))
	for i, warning := range report.Warnings {
		rows[i] = []string{
			warning.Stage,
			truncateString(warning.URL, 60),
			truncateString(warning.Message, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Stage", "URL", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	md.Notef("%d recoverable problem(s) occurred; results may be partial.", len(report.Warnings))
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [stacwalk](https://github.com/nao1215/stacwalk)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
