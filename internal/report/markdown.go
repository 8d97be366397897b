package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// MarkdownWriter outputs runs in Markdown format, suitable for CI job
// summaries and pull request comments.
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

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeRecords(md, report)
	w.writeRenderErrors(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Aurora Image Comparison")
	md.PlainText("")

	rows := [][]string{
		{"Renderer", "`" + report.Renderer + "`"},
		{"Scenes", "`" + report.ScenesFile + "`"},
		{"Report file", "`" + report.ReportFile + "`"},
		{"Host", report.Host.String()},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Status", w.getStatusText(report)},
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.Report) string {
	if report.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the status table, chart and verdict.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Summary")
	md.PlainText("")

	summary := report.Summary()
	rows := make([][]string, 0, len(model.AllStatuses)+1)
	for _, s := range model.AllStatuses {
		rows = append(rows, []string{statusIcon(s) + " " + s.Label(), strconv.Itoa(summary.Count(s))})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Images"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of the status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Status Distribution"),
		piechart.WithShowData(true),
	)

	for _, s := range model.AllStatuses {
		if n := summary.Count(s); n > 0 {
			chart.LabelAndIntValue(s.Label(), uint64(n)) //nolint:gosec // Counts are never negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes the verdict as a GitHub alert.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary model.Summary) {
	switch {
	case summary.Count(model.StatusError) > 0:
		md.Cautionf("%d image(s) could not be compared.", summary.Count(model.StatusError))
	case summary.Count(model.StatusFail) > 0:
		md.Warningf("%d image(s) differ from their baseline.", summary.Count(model.StatusFail))
	case summary.Count(model.StatusNoBaseline) > 0:
		md.Importantf("%d image(s) have no baseline.", summary.Count(model.StatusNoBaseline))
	case summary.Count(model.StatusWarning) > 0:
		md.Note("All images are within the failure limit, some with warnings.")
	default:
		md.Tip("All images match within tolerance.")
	}
	md.PlainText("")
}

// writeRecords writes one table row per record.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, report *model.Report) {
	md.H2("Images")
	md.PlainText("")

	if len(report.Records) == 0 {
		md.PlainText("No images were compared.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Records))
	for i, rec := range report.Records {
		rows[i] = []string{
			rec.Title,
			statusIcon(rec.Status) + " " + rec.Status.Label(),
			escapeCell(firstLine(rec.Message)),
			formatDurations(rec.DurationsMS),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Image", "Status", "Message", "Render time"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, rec := range report.Records {
		if rec.Metrics == nil || rec.Status == model.StatusMatch {
			continue
		}
		m := rec.Metrics
		md.Details(rec.Title, fmt.Sprintf(
			"%dx%d, %d failing (%.2f%%), %d warning (%.2f%%), mean %.6g, RMS %.6g, max %.6g, PSNR %.6g dB",
			m.Width, m.Height, m.FailCount, m.FailPercent, m.WarnCount, m.WarnPercent,
			m.MeanError, m.RMSError, m.MaxError, float64(m.PSNR)))
	}
	md.PlainText("")
}

// writeRenderErrors lists scenes the renderer failed on.
func (w *MarkdownWriter) writeRenderErrors(md *markdown.Markdown, report *model.Report) {
	if len(report.RenderErrors) == 0 {
		return
	}

	md.H2("Render Errors")
	md.PlainText("")

	items := make([]string, 0, len(report.RenderErrors))
	for _, name := range sortedKeys(report.RenderErrors) {
		items = append(items, fmt.Sprintf("**%s**: %s", name, report.RenderErrors[name]))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by aurorareport*")
}

// formatDurations returns "1234 ms" style text, or "-" without durations.
func formatDurations(durations []int64) string {
	if len(durations) == 0 {
		return "-"
	}
	parts := make([]string, len(durations))
	for i, d := range durations {
		parts[i] = strconv.FormatInt(d, 10) + " ms"
	}
	return strings.Join(parts, ", ")
}

// escapeCell keeps a message from breaking the table layout.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
