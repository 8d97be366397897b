package logscan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aurora-tools/aurorareport/internal/config"
	"github.com/aurora-tools/aurorareport/internal/imagediff"
	"github.com/aurora-tools/aurorareport/internal/model"
)

var (
	failurePattern         = regexp.MustCompile(`Failed \(Comparing ([^ ]+) to ([^ ]+), Failing pixels:(\d+)%`)
	missingBaselinePattern = regexp.MustCompile(`No baseline image \(Comparing ([^ ]+)`)
)

// Message fragments. Trailing spaces and newlines are part of the report text.
const (
	msgNoBaseline   = "No baseline image. \n"
	msgMatch        = "Images match within tolerance. "
	msgCompareError = "comparison failed: "
)

// Scanner turns report lines into records.
type Scanner struct {
	workDir        string
	baselineDir    string
	primaryMarker  string
	fallbackMarker string
	usingFallback  string
	stripPrefixes  []string
	failThreshold  float64
	warnThreshold  float64
	limits         imagediff.Limits
	comparer       imagediff.Comparer
	logger         *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithComparer sets the image comparer used for fallback baselines.
func WithComparer(c imagediff.Comparer) Option {
	return func(s *Scanner) {
		s.comparer = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner from resolved configuration.
// cfg.WorkDir and cfg.BaselineDir are expected to be absolute.
func New(cfg *config.Config, opts ...Option) *Scanner {
	s := &Scanner{
		workDir:        cfg.WorkDir,
		baselineDir:    cfg.BaselineDir,
		primaryMarker:  cfg.PrimaryMarker,
		fallbackMarker: cfg.FallbackMarker,
		usingFallback:  "No baseline image, using " + cfg.FallbackLabel + " instead. \n",
		stripPrefixes:  cfg.StripPrefixes,
		failThreshold:  cfg.FailThreshold,
		warnThreshold:  cfg.WarnThreshold,
		limits: imagediff.Limits{
			Fail:      cfg.FailLimit,
			Warn:      cfg.WarnLimit,
			Normalize: cfg.NormalizeLimits,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.comparer == nil {
		s.comparer = imagediff.NewPixelComparer()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ScanFile opens the report at path and scans it.
func (s *Scanner) ScanFile(ctx context.Context, path string) ([]model.Record, error) {
	f, err := os.Open(path) //nolint:gosec // Report path is given on the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()

	return s.Scan(ctx, f)
}

// Scan reads r line by line and returns one record per recognized line.
// Lines longer than MaxLineSize are skipped like any other unrecognized
// line. Cancellation is checked between lines.
func (s *Scanner) Scan(ctx context.Context, r io.Reader) ([]model.Record, error) {
	records := make([]model.Record, 0)

	sc := NewLineScanner(r)

	lineNo := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		lineNo++

		rec, ok := s.ParseLine(sc.Text())
		if !ok {
			continue
		}
		s.logger.Debug("report line matched",
			"line", lineNo,
			"title", rec.Title,
			"status", rec.Status,
		)
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("failed to read report file: %w", err)
	}

	return records, nil
}

// ParseLine converts one report line into a record.
// It returns false when the line matches neither pattern.
func (s *Scanner) ParseLine(line string) (model.Record, bool) {
	if m := failurePattern.FindStringSubmatch(line); m != nil {
		return s.failureRecord(m[1], m[2], m[3]), true
	}
	if m := missingBaselinePattern.FindStringSubmatch(line); m != nil {
		return s.missingBaselineRecord(m[1]), true
	}
	return model.Record{}, false
}

func (s *Scanner) failureRecord(candidate, baseline, percent string) model.Record {
	return model.Record{
		Title:     filepath.Base(candidate),
		Message:   fmt.Sprintf("Comparing to %s baseline image. Failing pixels: %s%%.", s.primaryMarker, percent),
		Candidate: s.resolve(candidate),
		Baseline:  s.resolve(baseline),
		Status:    model.StatusFail,
		Source:    model.SourceReport,
	}
}

func (s *Scanner) missingBaselineRecord(candidate string) model.Record {
	rec := model.Record{
		Title:     filepath.Base(candidate),
		Candidate: s.resolve(candidate),
		Source:    model.SourceReport,
	}

	fallback := s.FallbackPath(candidate)
	if !isRegularFile(fallback) {
		rec.Baseline = rec.Candidate
		rec.Message = msgNoBaseline
		rec.Status = model.StatusNoBaseline
		return rec
	}

	rec.Baseline = fallback
	result, err := imagediff.CompareFiles(s.comparer, rec.Candidate, fallback, s.failThreshold, s.warnThreshold)
	if err != nil {
		s.logger.Warn("fallback comparison failed",
			"candidate", rec.Candidate,
			"baseline", fallback,
			"error", err,
		)
		rec.Message = s.usingFallback + msgCompareError + err.Error()
		rec.Status = model.StatusError
		return rec
	}

	rec.Metrics = result.Metrics()
	// Only the fail limit decides fallback comparisons.
	if s.limits.FailWithin(result) {
		rec.Message = s.usingFallback + msgMatch
		rec.Status = model.StatusMatch
		return rec
	}

	rec.Message = s.usingFallback + fmt.Sprintf("Failing pixels: %.2f%%. Warning pixels: %.2f%%. ",
		result.FailPercent(), result.WarnPercent())
	rec.Status = model.StatusFail
	return rec
}

// FallbackPath derives the alternate baseline for a candidate path as it
// appears in the report: the primary marker is replaced by the fallback
// marker, the strip prefixes are removed and the result is rooted under the
// baseline directory.
func (s *Scanner) FallbackPath(candidate string) string {
	p := candidate
	if s.primaryMarker != "" {
		p = strings.ReplaceAll(p, s.primaryMarker, s.fallbackMarker)
	}
	for _, prefix := range s.stripPrefixes {
		if prefix != "" {
			p = strings.ReplaceAll(p, prefix, "")
		}
	}
	return filepath.Join(s.baselineDir, p)
}

func (s *Scanner) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.workDir, p)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
