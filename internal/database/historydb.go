package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aurora-tools/aurorareport/internal/model"
)

// FileName is the name of the history database file inside the data directory.
const FileName = "history.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores report-generation runs.
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

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// wrapping os.ErrNotExist is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("history database not available at %s: %w", dbPath, err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	-- One row per report-generation run; the full run is kept as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		renderer TEXT NOT NULL,
		scenes_file TEXT,
		report_file TEXT,
		hostname TEXT,
		total INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		status_counts TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Records are duplicated out of report_json for per-image queries
	CREATE TABLE IF NOT EXISTS run_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		candidate TEXT,
		candidate_digest TEXT,
		duration_ms INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_records_run ON run_records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_title ON run_records(title);
	`

	_, err := hdb.db.ExecContext(ctx, schema)
	return err
}

// RunMetadata contains summary information about a stored run.
// This is used for listing runs without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64 `json:"id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Renderer is the renderer executable of the run.
	Renderer string `json:"renderer"`

	// Hostname is the machine the run happened on.
	Hostname string `json:"hostname,omitempty"`

	// Total is the number of records.
	Total int `json:"total"`

	// Failures is the number of failing or errored records.
	Failures int `json:"failures"`

	// StatusCounts maps status names to record counts.
	StatusCounts map[string]int `json:"status_counts"`
}

// StoredRun is a run loaded from the database with its ID.
type StoredRun struct {
	ID     int64
	Report *model.Report
}

// SaveRun stores a finished run and returns its ID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := report.Summary()
	counts := make(map[string]int, len(summary.Counts))
	for status, n := range summary.Counts {
		counts[status.String()] = n
	}
	countsJSON, _ := json.Marshal(counts) //nolint:errcheck,errchkjson // A map of ints always marshals

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, renderer, scenes_file, report_file, hostname, total, failures, status_counts, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.Renderer,
		report.ScenesFile,
		report.ReportFile,
		report.Host.Hostname,
		summary.Total,
		summary.Failures(),
		string(countsJSON),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_records (run_id, position, title, source, status, candidate, candidate_digest, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range report.Records {
		var duration sql.NullInt64
		if n := len(rec.DurationsMS); n > 0 {
			duration = sql.NullInt64{Int64: rec.DurationsMS[n-1], Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			runID, i, rec.Title, string(rec.Source), rec.Status.String(),
			rec.Candidate, rec.CandidateDigest, duration,
		); err != nil {
			return 0, fmt.Errorf("failed to save record %q: %w", rec.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns run metadata, newest first. limit <= 0 returns all runs.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, started_at, renderer, hostname, total, failures, status_counts
	FROM runs
	ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta       RunMetadata
			startedAt  string
			hostname   sql.NullString
			countsJSON sql.NullString
		)
		if err := rows.Scan(&meta.ID, &startedAt, &meta.Renderer, &hostname, &meta.Total, &meta.Failures, &countsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.Hostname = hostname.String
		meta.StatusCounts = make(map[string]int)
		if countsJSON.Valid && countsJSON.String != "" {
			if err := json.Unmarshal([]byte(countsJSON.String), &meta.StatusCounts); err != nil {
				meta.StatusCounts = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun loads the run with the given ID.
// It returns ErrRunNotFound if there is no such run.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*model.Report, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return decodeReport(reportJSON)
}

// GetLatestRuns returns the n most recent runs, newest first.
// Stored runs that can no longer be decoded are skipped.
func (hdb *HistoryDB) GetLatestRuns(ctx context.Context, n int) ([]StoredRun, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, report_json FROM runs
	ORDER BY id DESC
	LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		var (
			id         int64
			reportJSON string
		)
		if err := rows.Scan(&id, &reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		report, err := decodeReport(reportJSON)
		if err != nil {
			continue // Skip malformed runs
		}
		runs = append(runs, StoredRun{ID: id, Report: report})
	}

	return runs, rows.Err()
}

// TitleHistoryEntry is the outcome of one image in one run.
type TitleHistoryEntry struct {
	RunID           int64        `json:"run_id"`
	StartedAt       time.Time    `json:"started_at"`
	Status          model.Status `json:"status"`
	CandidateDigest string       `json:"candidate_digest,omitempty"`
	DurationMS      *int64       `json:"duration_ms,omitempty"`
}

// GetTitleHistory returns the outcomes of the record titled title across
// runs, newest first. limit <= 0 returns all of them.
func (hdb *HistoryDB) GetTitleHistory(ctx context.Context, title string, limit int) ([]TitleHistoryEntry, error) {
	query := `
	SELECT r.id, r.started_at, rr.status, rr.candidate_digest, rr.duration_ms
	FROM run_records rr
	JOIN runs r ON r.id = rr.run_id
	WHERE rr.title = ?
	ORDER BY r.id DESC, rr.position
	`
	args := []any{title}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history of %q: %w", title, err)
	}
	defer rows.Close()

	var entries []TitleHistoryEntry
	for rows.Next() {
		var (
			entry     TitleHistoryEntry
			startedAt string
			status    string
			digest    sql.NullString
			duration  sql.NullInt64
		)
		if err := rows.Scan(&entry.RunID, &startedAt, &status, &digest, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		entry.StartedAt = parseTimestamp(startedAt)
		if entry.Status, err = model.ParseStatus(status); err != nil {
			return nil, err
		}
		entry.CandidateDigest = digest.String
		if duration.Valid {
			d := duration.Int64
			entry.DurationMS = &d
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteRun removes a run and its records.
func (hdb *HistoryDB) DeleteRun(ctx context.Context, id int64) error {
	res, err := hdb.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

func decodeReport(reportJSON string) (*model.Report, error) {
	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats runs may be stored with.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by SaveRun
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
