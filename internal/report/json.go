package report

import (
	"encoding/json"
	"io"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// JSONWriter outputs runs in JSON format for tool integration.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the history database stores the same encoding and
// the two must agree.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is the aurorareport version recorded in the output.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport wraps a run with its summary.
type JSONReport struct {
	// Version is the aurorareport version that generated this report.
	Version string `json:"version,omitempty"`

	// Passed is true when no record failed or errored.
	Passed bool `json:"passed"`

	// Summary holds the per-status counts.
	Summary model.Summary `json:"summary"`

	// Report is the full run.
	Report *model.Report `json:"report"`
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	summary := report.Summary()
	return w.writeJSON(JSONReport{
		Version: w.version,
		Passed:  summary.Passed(),
		Summary: summary,
		Report:  report,
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
