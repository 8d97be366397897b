// Package report renders report-generation runs.
//
// RenderHTML produces the static HTML page that shows every candidate image
// beside its baseline. The console writers summarize a run:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown for CI job summaries and pull requests
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) so that output formats can be added
// without modifying the core data structures.
package report
