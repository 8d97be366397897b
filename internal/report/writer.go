package report

import (
	"io"
	"slices"
	"strings"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface so the command picks an output
// format once and the rest of the code writes reports the same way.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusIcon returns the marker shown next to a status in text and Markdown output.
func statusIcon(s model.Status) string {
	switch s {
	case model.StatusMatch:
		return "✅"
	case model.StatusWarning:
		return "🟡"
	case model.StatusNoBaseline:
		return "⚪"
	case model.StatusFail:
		return "🔴"
	case model.StatusError:
		return "❌"
	default:
		return "?"
	}
}

// firstLine returns the first non-empty line of a message, trimmed.
func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// sortedKeys returns the keys of m in sorted order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
