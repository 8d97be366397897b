package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aurora-tools/aurorareport/internal/config"
	"github.com/aurora-tools/aurorareport/internal/imagediff"
	"github.com/aurora-tools/aurorareport/internal/model"
	"github.com/aurora-tools/aurorareport/internal/render"
)

// Messages of the scene comparison pass. Trailing spaces are part of the
// report text.
const (
	msgMatch        = "Images match within tolerance. "
	msgCompareError = "comparison failed: "
)

// SceneRenderer renders one scene. render.Runner implements it.
type SceneRenderer interface {
	Run(ctx context.Context, scene config.Scene) error
}

// ReportScanner turns a text report into records. logscan.Scanner implements it.
type ReportScanner interface {
	ScanFile(ctx context.Context, path string) ([]model.Record, error)
}

// HostInfoStep records the machine the run happens on.
// Failing queries are logged and leave fields empty.
type HostInfoStep struct {
	collect func(context.Context) (model.HostInfo, error)
	logger  *slog.Logger
}

// NewHostInfoStep creates a host info step using collect, usually hostinfo.Collect.
func NewHostInfoStep(collect func(context.Context) (model.HostInfo, error), logger *slog.Logger) *HostInfoStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &HostInfoStep{collect: collect, logger: logger}
}

// Name returns the step name.
func (s *HostInfoStep) Name() string {
	return "host_info"
}

// Do executes the host info step.
func (s *HostInfoStep) Do(ctx context.Context, report *model.Report) error {
	info, err := s.collect(ctx)
	if err != nil {
		s.logger.Warn("incomplete host information", "error", err)
	}
	report.Host = info
	return nil
}

// RenderStep runs the renderer for every scene, one at a time.
//
// Design decision: renderer failures do not stop the run. They are logged
// and recorded per scene, and the comparison pass reports them next to
// whatever output the renderer left behind.
type RenderStep struct {
	renderer SceneRenderer
	scenes   []config.Scene
	logger   *slog.Logger
}

// RenderStepOption configures a RenderStep.
type RenderStepOption func(*RenderStep)

// WithRenderLogger sets a custom logger for the render step.
func WithRenderLogger(logger *slog.Logger) RenderStepOption {
	return func(s *RenderStep) {
		s.logger = logger
	}
}

// NewRenderStep creates a render step for scenes.
func NewRenderStep(renderer SceneRenderer, scenes []config.Scene, opts ...RenderStepOption) *RenderStep {
	s := &RenderStep{
		renderer: renderer,
		scenes:   scenes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *RenderStep) Name() string {
	return "render"
}

// Do executes the render step.
func (s *RenderStep) Do(ctx context.Context, report *model.Report) error {
	for i, scene := range s.scenes {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.Info("rendering scene",
			"scene", scene.Name,
			"index", i+1,
			"total", len(s.scenes),
		)

		if err := s.renderer.Run(ctx, scene); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("render failed",
				"scene", scene.Name,
				"error", err,
			)
			report.RecordRenderError(scene.Name, err)
		}
	}
	return nil
}

// CompareStep compares every scene output with its reference.
type CompareStep struct {
	scenes        []config.Scene
	comparer      imagediff.Comparer
	batch         *BatchComparer
	failThreshold float64
	warnThreshold float64
	limits        imagediff.Limits
	logger        *slog.Logger
}

// CompareStepOption configures a CompareStep.
type CompareStepOption func(*CompareStep)

// WithComparer sets the image comparer.
func WithComparer(c imagediff.Comparer) CompareStepOption {
	return func(s *CompareStep) {
		s.comparer = c
	}
}

// WithCompareLogger sets a custom logger for the compare step.
func WithCompareLogger(logger *slog.Logger) CompareStepOption {
	return func(s *CompareStep) {
		s.logger = logger
	}
}

// NewCompareStep creates a compare step from cfg. Comparisons run with
// cfg.Jobs concurrency.
func NewCompareStep(cfg *config.Config, opts ...CompareStepOption) *CompareStep {
	s := &CompareStep{
		scenes:        cfg.Scenes,
		failThreshold: cfg.FailThreshold,
		warnThreshold: cfg.WarnThreshold,
		limits: imagediff.Limits{
			Fail:      cfg.FailLimit,
			Warn:      cfg.WarnLimit,
			Normalize: cfg.NormalizeLimits,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.comparer == nil {
		s.comparer = imagediff.NewPixelComparer()
	}
	s.batch = NewBatchComparer(WithConcurrency(cfg.Jobs), WithBatchLogger(s.logger))
	return s
}

// Name returns the step name.
func (s *CompareStep) Name() string {
	return "compare"
}

// Do executes the compare step.
func (s *CompareStep) Do(ctx context.Context, report *model.Report) error {
	// Copied so the comparison goroutines never share the report's map.
	renderErrors := make(map[string]string, len(report.RenderErrors))
	for k, v := range report.RenderErrors {
		renderErrors[k] = v
	}

	records, err := s.batch.CompareAll(ctx, s.scenes, func(_ context.Context, scene config.Scene) model.Record {
		return s.compareScene(scene, renderErrors[scene.Name])
	})
	report.AddRecords(records...)
	return err
}

// compareScene builds the record of one scene. It never fails: problems
// end up in the record's status and message.
func (s *CompareStep) compareScene(scene config.Scene, renderErr string) model.Record {
	rec := model.Record{
		Title:     "CTP " + scene.Name,
		Candidate: scene.Output,
		Baseline:  scene.Reference,
		Source:    model.SourceCTP,
	}

	var message string
	if renderErr != "" {
		message = "Render failed: " + renderErr + ". "
	}

	result, err := imagediff.CompareFiles(s.comparer, scene.Output, scene.Reference, s.failThreshold, s.warnThreshold)
	if err != nil {
		s.logger.Warn("comparison failed",
			"scene", scene.Name,
			"error", err,
		)
		rec.Status = model.StatusError
		message += msgCompareError + err.Error()
	} else {
		rec.Metrics = result.Metrics()
		rec.Status = s.limits.Classify(result)
		if rec.Status == model.StatusMatch {
			message += msgMatch
		} else {
			// Counts print as floats ("3.0 failures") to keep messages
			// identical to older reports.
			message += fmt.Sprintf("%.1f failures, %.1f warnings. Average error was %s. RMS error was %s. PSNR was %s. ",
				float64(result.FailCount), float64(result.WarnCount),
				formatFloat(result.MeanError), formatFloat(result.RMSError), formatFloat(result.PSNR))
		}

		if digest, err := imagediff.Digest(scene.Output); err == nil {
			rec.CandidateDigest = digest
		}
	}

	durations, err := render.ParseDurationFile(scene.Stdout)
	if err != nil {
		s.logger.Warn("scene log unavailable",
			"scene", scene.Name,
			"log", scene.Stdout,
			"found", len(durations),
			"error", err,
		)
	}
	// A log that broke off mid-read still reports the runs it recorded.
	if len(durations) > 0 {
		rec.DurationsMS = durations
		message += render.FormatDurations(durations)
	}

	rec.Message = message
	return rec
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// ReportFileStep turns the external text report into records.
// A missing or unreadable report fails the step.
type ReportFileStep struct {
	scanner ReportScanner
	path    string
	logger  *slog.Logger
}

// NewReportFileStep creates a report-file step for the report at path.
func NewReportFileStep(scanner ReportScanner, path string, logger *slog.Logger) *ReportFileStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportFileStep{scanner: scanner, path: path, logger: logger}
}

// Name returns the step name.
func (s *ReportFileStep) Name() string {
	return "report_file"
}

// Do executes the report-file step.
func (s *ReportFileStep) Do(ctx context.Context, report *model.Report) error {
	records, err := s.scanner.ScanFile(ctx, s.path)
	if err != nil {
		return err
	}
	s.logger.Debug("report file scanned",
		"path", s.path,
		"records", len(records),
	)
	report.AddRecords(records...)
	return nil
}
