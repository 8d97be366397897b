package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aurora-tools/aurorareport/internal/config"
	"github.com/aurora-tools/aurorareport/internal/database"
	"github.com/aurora-tools/aurorareport/internal/hostinfo"
	"github.com/aurora-tools/aurorareport/internal/logscan"
	"github.com/aurora-tools/aurorareport/internal/model"
	"github.com/aurora-tools/aurorareport/internal/pipeline"
	"github.com/aurora-tools/aurorareport/internal/render"
	"github.com/aurora-tools/aurorareport/internal/report"
)

// addGenerateFlags registers the report-generation flags on cmd.
func addGenerateFlags(cmd *cobra.Command) {
	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"HTML report path (overwritten if it exists)")
	cmd.Flags().String("title", report.DefaultHTMLTitle,
		"Title of the HTML report")
	cmd.Flags().Bool("relative-paths", false,
		"Embed image paths relative to the HTML report's directory")

	// Pipeline flags
	cmd.Flags().Bool("render", true,
		"Run the renderer on every scene before comparing")
	cmd.Flags().Int("spp", config.DefaultOutputSPP,
		"Samples per pixel passed to the renderer")
	cmd.Flags().Duration("render-timeout", config.DefaultRenderTimeout,
		"Timeout of a single renderer invocation (0 disables it)")
	cmd.Flags().Int("jobs", config.DefaultJobs,
		"Number of image comparisons run at the same time")
	cmd.Flags().Bool("keep-going", false,
		"Write the report from the finished steps even when a step fails")

	// Path flags
	cmd.Flags().String("baseline-dir", "",
		"Root of the fallback baseline images (default: <tool dir>/../Tests/Aurora/BaselineImages)")
	cmd.Flags().String("work-dir", "",
		"Directory relative report-file paths are resolved against (default: renderer directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .aurorareport in current or home directory)")

	// Summary flags
	cmd.Flags().BoolP("json", "j", false,
		"Print the summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the summary as Markdown (mutually exclusive with --json)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not save this run to the history database")
	cmd.Flags().String("history-dir", "",
		"Directory of the history database (default: XDG data directory)")
}

// runGenerateCmd executes the report generation.
func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := buildConfig(cmd, args, cwd, toolDir())
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	if err := cfg.CheckRenderer(); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.ReportPath); err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}

	scenes, err := config.LoadScenes(cfg.ScenesPath, cwd)
	if err != nil {
		return err
	}
	cfg.Scenes = scenes

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	title, err := cmd.Flags().GetString("title")
	if err != nil {
		return err
	}

	return generate(ctx, cfg, title, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// toolDir returns the directory of the running executable, or "." if it
// cannot be determined.
func toolDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags, in that order of precedence, and resolves every path.
//
// Design decision: flags only override the configuration file when they
// were given explicitly, since every flag has a default.
func buildConfig(cmd *cobra.Command, args []string, cwd, toolDir string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.RendererPath = args[0]
	cfg.ScenesPath = args[1]
	cfg.ReportPath = args[2]
	cfg.Verbose = getVerboseFlag(cmd)

	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file, it must exist.
	// Otherwise the defaults are used when no file is found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		absConfig, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		if err := cf.Apply(cfg, filepath.Dir(absConfig)); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("output") {
		if cfg.OutputPath, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if cfg.RelativePaths, err = flags.GetBool("relative-paths"); err != nil {
		return nil, err
	}
	if cfg.Render, err = flags.GetBool("render"); err != nil {
		return nil, err
	}
	if cfg.ContinueOnError, err = flags.GetBool("keep-going"); err != nil {
		return nil, err
	}
	if flags.Changed("spp") {
		if cfg.OutputSPP, err = flags.GetInt("spp"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("render-timeout") {
		if cfg.RenderTimeout, err = flags.GetDuration("render-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("jobs") {
		if cfg.Jobs, err = flags.GetInt("jobs"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("baseline-dir") {
		if cfg.BaselineDir, err = flags.GetString("baseline-dir"); err != nil {
			return nil, err
		}
	}
	if cfg.WorkDir, err = flags.GetString("work-dir"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	historyDir, err := flags.GetString("history-dir")
	if err != nil {
		return nil, err
	}
	if historyDir != "" {
		cfg.DBDir = historyDir
	}

	if err := cfg.ResolvePaths(cwd, toolDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPipeline builds the report-generation steps for cfg.
func newPipeline(cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(cfg.ContinueOnError),
	)

	p.AddStep(pipeline.NewHostInfoStep(hostinfo.Collect, logger))
	if cfg.Render {
		runner := render.NewRunner(cfg, render.WithLogger(logger))
		p.AddStep(pipeline.NewRenderStep(runner, cfg.Scenes, pipeline.WithRenderLogger(logger)))
	}
	p.AddSteps(
		pipeline.NewCompareStep(cfg, pipeline.WithCompareLogger(logger)),
		pipeline.NewReportFileStep(logscan.New(cfg, logscan.WithLogger(logger)), cfg.ReportPath, logger),
	)

	return p
}

// generate runs the pipeline, writes the HTML report and the summary, and
// saves the run to the history database.
// Nothing is written when the pipeline fails.
func generate(ctx context.Context, cfg *config.Config, title string, out io.Writer, logger *slog.Logger) error {
	run := model.NewReport(cfg.RendererPath, cfg.ScenesPath, cfg.ReportPath)

	logger.Info("starting report generation",
		"renderer", cfg.RendererPath,
		"scenes", len(cfg.Scenes),
		"report", cfg.ReportPath,
		"render", cfg.Render,
		"jobs", cfg.Jobs,
	)

	p := newPipeline(cfg, logger)
	logger.Debug("pipeline ready",
		"steps", p.StepNames(),
		"count", p.StepCount(),
		"keep_going", cfg.ContinueOnError,
	)

	if err := p.Execute(ctx, run); err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}
	if run.ErrorMessage != "" {
		logger.Warn("report is incomplete",
			"performed_steps", run.PerformedSteps,
			"error", run.ErrorMessage,
		)
	}

	if err := writeHTML(cfg, title, run); err != nil {
		return err
	}
	logger.Info("HTML report written", "path", cfg.OutputPath, "records", len(run.Records))

	if err := writeSummary(out, cfg, run); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if cfg.SaveHistory {
		if err := saveRun(ctx, cfg.DBDir, run, logger); err != nil {
			// The report is already written; a history failure must not hide it.
			logger.Warn("failed to save run to history", "error", err)
		}
	}

	return nil
}

// writeHTML writes the HTML report to cfg.OutputPath, replacing any existing file.
func writeHTML(cfg *config.Config, title string, run *model.Report) error {
	dir := filepath.Dir(cfg.OutputPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	opts := []report.HTMLOption{report.WithTitle(title)}
	if cfg.RelativePaths {
		opts = append(opts, report.WithBaseDir(dir))
	}

	// The report only references images that are already on disk, so it is
	// world-readable like the images themselves.
	f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // Output path is user-provided
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := report.NewHTMLWriter(f, opts...).Write(run); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	return nil
}

// writeSummary writes the console summary in the configured format.
func writeSummary(out io.Writer, cfg *config.Config, run *model.Report) error {
	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out,
			report.WithVerbose(cfg.Verbose),
			report.WithHTMLPath(cfg.OutputPath),
		)
	}

	_, err := w.Write(run)
	return err
}

// saveRun stores run in the history database in dbDir.
func saveRun(ctx context.Context, dbDir string, run *model.Report, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, run)
	if err != nil {
		return err
	}

	logger.Info("run saved to history", "id", id, "path", db.Path())
	return nil
}
