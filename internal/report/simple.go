package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// ruleWidth is the width of section separators.
const ruleWidth = 70

// SimpleWriter outputs a human-readable run summary for the terminal.
//
// Design decision: We use plain text with ASCII markers rather than ANSI
// colors because CI logs often strip or garble escape sequences.
type SimpleWriter struct {
	baseWriter

	// verbose lists every record, not only the ones needing attention.
	verbose bool

	// htmlPath is shown in the header when set.
	htmlPath string
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists matching records too.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithHTMLPath shows where the HTML report was written.
func WithHTMLPath(path string) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.htmlPath = path
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeRecords(&sb, report)
	w.writeRenderErrors(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      AURORA IMAGE COMPARISON\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Renderer:     %s\n", report.Renderer)
	fmt.Fprintf(sb, "Scenes:       %s\n", report.ScenesFile)
	fmt.Fprintf(sb, "Report file:  %s\n", report.ReportFile)
	fmt.Fprintf(sb, "Host:         %s\n", report.Host)
	fmt.Fprintf(sb, "Started:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration:     %s\n", d.Round(time.Millisecond))
	}
	if w.htmlPath != "" {
		fmt.Fprintf(sb, "HTML report:  %s\n", w.htmlPath)
	}

	switch {
	case report.Cancelled:
		sb.WriteString("Status:       CANCELLED (partial results)\n")
	case report.ErrorMessage != "":
		fmt.Fprintf(sb, "Status:       ERROR - %s\n", report.ErrorMessage)
	default:
		sb.WriteString("Status:       Complete\n")
	}
	sb.WriteString("\n")
}

// writeSummary writes the per-status counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "SUMMARY")

	summary := report.Summary()
	for _, s := range model.AllStatuses {
		fmt.Fprintf(sb, "  %-12s %d\n", strings.ToUpper(s.Label())+":", summary.Count(s))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:       %d images\n", summary.Total)
	sb.WriteString("\n")
}

// writeRecords lists records needing attention, or all of them when verbose.
func (w *SimpleWriter) writeRecords(sb *strings.Builder, report *model.Report) {
	var records []model.Record
	for _, rec := range report.Records {
		if w.verbose || rec.Status != model.StatusMatch {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return
	}

	writeSection(sb, "RECORDS")
	for _, rec := range records {
		fmt.Fprintf(sb, "[%s] %s\n", statusIndicator(rec.Status), rec.Title)
		if msg := firstLine(rec.Message); msg != "" {
			fmt.Fprintf(sb, "    %s\n", msg)
		}
		if w.verbose {
			fmt.Fprintf(sb, "    Candidate: %s\n", rec.Candidate)
			if rec.HasBaseline() {
				fmt.Fprintf(sb, "    Baseline:  %s\n", rec.Baseline)
			}
		}
	}
	sb.WriteString("\n")
}

// writeRenderErrors lists scenes the renderer failed on.
func (w *SimpleWriter) writeRenderErrors(sb *strings.Builder, report *model.Report) {
	if len(report.RenderErrors) == 0 {
		return
	}

	writeSection(sb, "RENDER ERRORS")
	for _, name := range sortedKeys(report.RenderErrors) {
		fmt.Fprintf(sb, "  * %s: %s\n", name, report.RenderErrors[name])
	}
	sb.WriteString("\n")
}

// writeFooter writes the final verdict.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.Report) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	if summary := report.Summary(); summary.Passed() {
		sb.WriteString("RESULT: PASSED\n")
	} else {
		fmt.Fprintf(sb, "RESULT: FAILED (%d of %d images)\n", summary.Failures(), summary.Total)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// statusIndicator returns a short ASCII marker for a status.
func statusIndicator(s model.Status) string {
	switch s {
	case model.StatusMatch:
		return "ok"
	case model.StatusWarning:
		return "~"
	case model.StatusNoBaseline:
		return "?"
	case model.StatusFail:
		return "!!"
	case model.StatusError:
		return "x"
	default:
		return "-"
	}
}
