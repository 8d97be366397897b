package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/aurora-tools/aurorareport/internal/config"
	"github.com/aurora-tools/aurorareport/internal/database"
	"github.com/aurora-tools/aurorareport/internal/model"
)

// Directions of a run comparison.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
)

// NewHistoryCmd creates the history command.
// This command lists stored runs and compares two of them.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs and compare them",
		Long: `History shows how images changed between report-generation runs.

Every run is saved to the history database unless --no-history is given.
By default the latest run is compared with the run before it and shows:
- Images that started failing
- Images that were fixed
- Other status changes
- Images whose output changed although their status did not
- Images that were added or removed

Examples:
  # Compare the latest two runs
  aurorareport history

  # List stored runs
  aurorareport history --list

  # Compare the latest run with run 5
  aurorareport history --with-run-id 5

  # Show the status of one image across runs
  aurorareport history --title "CTP Sponza"

  # Output the comparison in JSON format
  aurorareport history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored runs")
	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs or entries to list (0 lists all)")
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with a specific run (use --list to see available IDs)")
	cmd.Flags().StringP("title", "t", "",
		"Show the history of the image with this title")
	cmd.Flags().Int64("delete", 0,
		"Delete the run with this ID")
	cmd.Flags().String("history-dir", "",
		"Directory of the history database (default: XDG data directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// historyOptions are the parsed history command flags.
type historyOptions struct {
	list      bool
	limit     int
	withRunID int64
	title     string
	deleteID  int64
	dbDir     string
	json      bool
	markdown  bool
}

// parseHistoryFlags reads the history command flags.
func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.withRunID, err = flags.GetInt64("with-run-id"); err != nil {
		return opts, err
	}
	if opts.title, err = flags.GetString("title"); err != nil {
		return opts, err
	}
	if opts.deleteID, err = flags.GetInt64("delete"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("history-dir"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}

	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	if opts.limit < 0 {
		return opts, errors.New("limit must not be negative")
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no run history in %s (runs are saved unless --no-history is given)", opts.dbDir)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.deleteID > 0:
		if err := db.DeleteRun(ctx, opts.deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %d\n", opts.deleteID)
		return nil
	case opts.list:
		return listRuns(ctx, out, db, opts)
	case opts.title != "":
		return showTitleHistory(ctx, out, db, opts)
	default:
		return compareRuns(ctx, out, db, opts)
	}
}

// listRuns lists stored runs, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		return nil
	}

	if opts.markdown {
		rows := make([][]string, len(runs))
		for i, r := range runs {
			rows[i] = []string{
				strconv.FormatInt(r.ID, 10),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Hostname,
				strconv.Itoa(r.Total),
				strconv.Itoa(r.Failures),
				formatStatusCounts(r.StatusCounts),
			}
		}
		md := markdown.NewMarkdown(out)
		md.H1("Run History").
			PlainText("").
			Table(markdown.TableSet{
				Header: []string{"ID", "Date", "Host", "Images", "Failures", "Statuses"},
				Rows:   rows,
			})
		return md.Build()
	}

	fmt.Fprintf(out, "Run history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-7s  %-8s  %s\n", "ID", "Date", "Images", "Failures", "Statuses")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-6d  %-19s  %-7d  %-8d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Total,
			r.Failures,
			formatStatusCounts(r.StatusCounts),
		)
	}

	fmt.Fprintln(out, "\nUse 'aurorareport history' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'aurorareport history --with-run-id <id>' to compare with a specific run.")
	return nil
}

// formatStatusCounts formats non-zero status counts as "match:3 fail:1".
func formatStatusCounts(counts map[string]int) string {
	var parts []string
	for _, s := range model.AllStatuses {
		if n := counts[s.String()]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", s, n))
		}
	}
	if len(parts) == 0 {
		return "no images"
	}
	return strings.Join(parts, " ")
}

// showTitleHistory prints the outcomes of one image across runs.
func showTitleHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	entries, err := db.GetTitleHistory(ctx, opts.title, opts.limit)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "No history found for %q\n", opts.title)
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.FormatInt(e.RunID, 10),
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Status.String(),
			formatDuration(e.DurationMS),
			shortDigest(e.CandidateDigest),
		}
	}

	if opts.markdown {
		md := markdown.NewMarkdown(out)
		md.H1("History of " + opts.title).
			PlainText("").
			Table(markdown.TableSet{
				Header: []string{"Run", "Date", "Status", "Render time", "Output"},
				Rows:   rows,
			})
		return md.Build()
	}

	fmt.Fprintf(out, "History of %s (%d runs):\n\n", opts.title, len(entries))
	fmt.Fprintf(out, "  %-6s  %-19s  %-11s  %-11s  %s\n", "Run", "Date", "Status", "Render time", "Output")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 65))
	for _, row := range rows {
		fmt.Fprintf(out, "  %-6s  %-19s  %-11s  %-11s  %s\n", row[0], row[1], row[2], row[3], row[4])
	}
	return nil
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return strconv.FormatInt(*ms, 10) + " ms"
}

func shortDigest(d string) string {
	if d == "" {
		return "-"
	}
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// compareRuns compares the latest run with the previous run or with
// opts.withRunID.
func compareRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, opts historyOptions) error {
	latest, err := db.GetLatestRuns(ctx, 2)
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		return errors.New("no runs found in the history database")
	}

	current := latest[0]
	var previous database.StoredRun

	switch {
	case opts.withRunID > 0:
		if opts.withRunID == current.ID {
			return fmt.Errorf("run %d is the latest run; choose an earlier run to compare with", opts.withRunID)
		}
		report, err := db.GetRun(ctx, opts.withRunID)
		if err != nil {
			return err
		}
		previous = database.StoredRun{ID: opts.withRunID, Report: report}
	case len(latest) < 2:
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(latest))
	default:
		previous = latest[1]
	}

	comparison := compareReports(previous, current)

	switch {
	case opts.json:
		return writeJSON(out, comparison)
	case opts.markdown:
		return writeComparisonMarkdown(out, comparison)
	default:
		writeComparisonText(out, comparison)
		return nil
	}
}

// RunComparison holds the result of comparing two runs record by record.
type RunComparison struct {
	// PreviousRun describes the older run.
	PreviousRun RunInfo `json:"previous_run"`

	// CurrentRun describes the newer run.
	CurrentRun RunInfo `json:"current_run"`

	// NewlyFailing are images that fail now but did not before.
	NewlyFailing []RecordChange `json:"newly_failing,omitempty"`

	// Fixed are images that failed before but do not now.
	Fixed []RecordChange `json:"fixed,omitempty"`

	// StatusChanged are other status changes, e.g. match to warning.
	StatusChanged []RecordChange `json:"status_changed,omitempty"`

	// OutputChanged are images with an unchanged status whose output file differs.
	OutputChanged []RecordChange `json:"output_changed,omitempty"`

	// Added are images only present in the current run.
	Added []RecordChange `json:"added,omitempty"`

	// Removed are images only present in the previous run.
	Removed []RecordChange `json:"removed,omitempty"`

	// UnchangedCount is the number of images without any change.
	UnchangedCount int `json:"unchanged_count"`

	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`
}

// RunInfo contains metadata about a run for comparison display.
type RunInfo struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Host      string    `json:"host"`
	Total     int       `json:"total"`
	Failures  int       `json:"failures"`
}

// RecordChange describes how one image changed between two runs.
type RecordChange struct {
	Title          string        `json:"title"`
	PreviousStatus *model.Status `json:"previous_status,omitempty"`
	CurrentStatus  *model.Status `json:"current_status,omitempty"`
	Message        string        `json:"message,omitempty"`
}

func newRunInfo(run database.StoredRun) RunInfo {
	summary := run.Report.Summary()
	return RunInfo{
		ID:        run.ID,
		StartedAt: run.Report.StartedAt,
		Host:      run.Report.Host.String(),
		Total:     summary.Total,
		Failures:  summary.Failures(),
	}
}

// recordKeys returns one key per record. Titles repeat when a report file
// lists the same image twice, so repeats get their occurrence number.
func recordKeys(records []model.Record) []string {
	seen := make(map[string]int, len(records))
	keys := make([]string, len(records))
	for i, rec := range records {
		n := seen[rec.Title]
		seen[rec.Title] = n + 1
		if n == 0 {
			keys[i] = rec.Title
		} else {
			keys[i] = rec.Title + "#" + strconv.Itoa(n+1)
		}
	}
	return keys
}

// compareReports compares two runs record by record. Changes are listed in
// record order of the run they come from.
func compareReports(previous, current database.StoredRun) *RunComparison {
	result := &RunComparison{
		PreviousRun: newRunInfo(previous),
		CurrentRun:  newRunInfo(current),
	}

	prevKeys := recordKeys(previous.Report.Records)
	prevByKey := make(map[string]model.Record, len(prevKeys))
	for i, key := range prevKeys {
		prevByKey[key] = previous.Report.Records[i]
	}

	curKeys := recordKeys(current.Report.Records)
	curSeen := make(map[string]bool, len(curKeys))

	for i, key := range curKeys {
		cur := current.Report.Records[i]
		curSeen[key] = true

		prev, ok := prevByKey[key]
		if !ok {
			result.Added = append(result.Added, RecordChange{
				Title:         cur.Title,
				CurrentStatus: statusPtr(cur.Status),
				Message:       cur.Message,
			})
			continue
		}

		change := RecordChange{
			Title:          cur.Title,
			PreviousStatus: statusPtr(prev.Status),
			CurrentStatus:  statusPtr(cur.Status),
			Message:        cur.Message,
		}

		switch {
		case !prev.Status.IsFailure() && cur.Status.IsFailure():
			result.NewlyFailing = append(result.NewlyFailing, change)
		case prev.Status.IsFailure() && !cur.Status.IsFailure():
			result.Fixed = append(result.Fixed, change)
		case prev.Status != cur.Status:
			result.StatusChanged = append(result.StatusChanged, change)
		case prev.CandidateDigest != "" && cur.CandidateDigest != "" && prev.CandidateDigest != cur.CandidateDigest:
			result.OutputChanged = append(result.OutputChanged, change)
		default:
			result.UnchangedCount++
		}
	}

	for i, key := range prevKeys {
		if curSeen[key] {
			continue
		}
		prev := previous.Report.Records[i]
		result.Removed = append(result.Removed, RecordChange{
			Title:          prev.Title,
			PreviousStatus: statusPtr(prev.Status),
			Message:        prev.Message,
		})
	}

	switch {
	case result.CurrentRun.Failures > result.PreviousRun.Failures:
		result.Direction = directionWorsened
	case result.CurrentRun.Failures < result.PreviousRun.Failures:
		result.Direction = directionImproved
	default:
		result.Direction = directionUnchanged
	}

	return result
}

func statusPtr(s model.Status) *model.Status {
	return &s
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatDirection formats the comparison direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (fewer failures)"
	case directionWorsened:
		return "WORSENED (more failures)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

// formatTransition returns "match -> fail" style text.
func formatTransition(c RecordChange) string {
	switch {
	case c.PreviousStatus != nil && c.CurrentStatus != nil:
		return c.PreviousStatus.String() + " -> " + c.CurrentStatus.String()
	case c.CurrentStatus != nil:
		return c.CurrentStatus.String()
	case c.PreviousStatus != nil:
		return c.PreviousStatus.String()
	default:
		return ""
	}
}

// changeSection is one titled list of changes in the comparison output.
type changeSection struct {
	heading string
	marker  string
	changes []RecordChange
}

// changeSections returns the non-empty change lists with their headings.
func changeSections(result *RunComparison) []changeSection {
	all := []changeSection{
		{"Newly Failing", "[!]", result.NewlyFailing},
		{"Fixed", "[+]", result.Fixed},
		{"Status Changed", "[~]", result.StatusChanged},
		{"Output Changed", "[*]", result.OutputChanged},
		{"Added", "[>]", result.Added},
		{"Removed", "[<]", result.Removed},
	}

	var sections []changeSection
	for _, s := range all {
		if len(s.changes) > 0 {
			sections = append(sections, s)
		}
	}
	return sections
}

// writeComparisonText outputs the comparison in human-readable text format.
func writeComparisonText(out io.Writer, result *RunComparison) {
	fmt.Fprintf(out, "Run Comparison: #%d -> #%d\n", result.PreviousRun.ID, result.CurrentRun.ID)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(result.Direction))

	fmt.Fprintf(out, "\nPrevious run: %s on %s\n",
		result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04:05"), result.PreviousRun.Host)
	fmt.Fprintf(out, "Current run:  %s on %s\n",
		result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04:05"), result.CurrentRun.Host)

	fmt.Fprintf(out, "\n  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Images",
		result.PreviousRun.Total, result.CurrentRun.Total,
		formatDelta(result.CurrentRun.Total-result.PreviousRun.Total))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Failures",
		result.PreviousRun.Failures, result.CurrentRun.Failures,
		formatDelta(result.CurrentRun.Failures-result.PreviousRun.Failures))

	for _, section := range changeSections(result) {
		fmt.Fprintf(out, "\n%s (%d):\n", section.heading, len(section.changes))
		for _, c := range section.changes {
			fmt.Fprintf(out, "  %s %s (%s)\n", section.marker, c.Title, formatTransition(c))
		}
	}

	fmt.Fprintf(out, "\nUnchanged: %d images\n", result.UnchangedCount)
}

// writeComparisonMarkdown outputs the comparison in Markdown format.
func writeComparisonMarkdown(out io.Writer, result *RunComparison) error {
	md := markdown.NewMarkdown(out)

	md.H1(fmt.Sprintf("Run Comparison: #%d -> #%d", result.PreviousRun.ID, result.CurrentRun.ID))
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(result.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{
				"Date",
				result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04"),
				result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04"),
				"-",
			},
			{
				"Images",
				strconv.Itoa(result.PreviousRun.Total),
				strconv.Itoa(result.CurrentRun.Total),
				formatDelta(result.CurrentRun.Total - result.PreviousRun.Total),
			},
			{
				"Failures",
				strconv.Itoa(result.PreviousRun.Failures),
				strconv.Itoa(result.CurrentRun.Failures),
				formatDelta(result.CurrentRun.Failures - result.PreviousRun.Failures),
			},
		},
	})
	md.PlainText("")

	if len(result.NewlyFailing) > 0 {
		md.Warningf("%d image(s) started failing.", len(result.NewlyFailing))
		md.PlainText("")
	}

	for _, section := range changeSections(result) {
		md.H2(fmt.Sprintf("%s (%d)", section.heading, len(section.changes)))
		md.PlainText("")
		items := make([]string, len(section.changes))
		for i, c := range section.changes {
			items[i] = fmt.Sprintf("**%s** (%s)", c.Title, formatTransition(c))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*%d images unchanged*", result.UnchangedCount)

	return md.Build()
}
