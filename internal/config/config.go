package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Thresholds and limits match the values the regression suite has always
// used, so pass/fail outcomes stay comparable with older reports.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "aurorareport"

	// DefaultOutputFile is the HTML report written to the working directory.
	DefaultOutputFile = "aurora_report.html"

	// DefaultFailThreshold is the per-channel error above which a pixel fails.
	DefaultFailThreshold = 0.1

	// DefaultWarnThreshold is the per-channel error above which a pixel warns.
	DefaultWarnThreshold = 0.025

	// DefaultFailLimit is the largest failing-pixel figure still classified as a match.
	// It is compared against raw pixel counts unless NormalizeLimits is set.
	DefaultFailLimit = 0.05

	// DefaultWarnLimit is the largest warning-pixel figure still classified as a match.
	DefaultWarnLimit = 0.2

	// DefaultOutputSPP is the sample count passed to the renderer via --output_spp.
	DefaultOutputSPP = 1000

	// DefaultRenderTimeout bounds a single renderer invocation.
	// A stuck renderer otherwise blocks the whole run indefinitely.
	DefaultRenderTimeout = 30 * time.Minute

	// DefaultJobs keeps comparisons strictly sequential.
	DefaultJobs = 1

	// DefaultPrimaryMarker names the baseline set the report file refers to.
	DefaultPrimaryMarker = "HGI"

	// DefaultFallbackMarker names the baseline set used when the primary is missing.
	DefaultFallbackMarker = "DirectX"

	// DefaultFallbackLabel is the short name of the fallback set in report messages.
	DefaultFallbackLabel = "DX"
)

// DefaultStripPrefixes are removed from a candidate path when deriving its
// fallback baseline path. Order matters: the longer prefix goes first.
var DefaultStripPrefixes = []string{"./OutputImages/", "./"}

// Config holds all configuration options for one report-generation run.
// It is populated from defaults, the settings file and CLI flags, and is
// passed explicitly to every component instead of reading process state.
//
// Design decision: every path is resolved to an absolute path once, in
// ResolvePaths, so that downstream components never depend on the current
// working directory.
type Config struct {
	// RendererPath is the renderer executable under test.
	RendererPath string

	// ScenesPath is the JSON file describing the benchmark scenes.
	ScenesPath string

	// ReportPath is the text report produced by the external test runner.
	// A relative path is resolved against WorkDir.
	ReportPath string

	// WorkDir is the directory relative report-file paths are resolved against.
	// It defaults to the directory containing the renderer executable.
	WorkDir string

	// BaselineDir is the root of the fallback baseline images.
	BaselineDir string

	// OutputPath is where the HTML report is written. Existing files are overwritten.
	OutputPath string

	// Render enables the render pass before comparison.
	Render bool

	// OutputSPP is the sample count passed to the renderer.
	OutputSPP int

	// RenderTimeout bounds each renderer invocation. Zero disables the timeout.
	RenderTimeout time.Duration

	// Jobs is the number of concurrent image comparisons.
	Jobs int

	// ContinueOnError keeps running the remaining steps after one fails, so
	// a report is still written from whatever the run produced.
	ContinueOnError bool

	// FailThreshold and WarnThreshold are per-channel error tolerances in [0, 1].
	FailThreshold float64
	WarnThreshold float64

	// FailLimit and WarnLimit decide whether a comparison is a match.
	FailLimit float64
	WarnLimit float64

	// NormalizeLimits applies FailLimit and WarnLimit to percentages of the
	// total pixel count instead of raw pixel counts.
	NormalizeLimits bool

	// PrimaryMarker is replaced by FallbackMarker when deriving fallback baselines.
	PrimaryMarker  string
	FallbackMarker string

	// FallbackLabel names the fallback set in messages, as in
	// "No baseline image, using DX instead.".
	FallbackLabel string

	// StripPrefixes are removed from candidate paths when deriving fallback baselines.
	StripPrefixes []string

	// JSONReport prints the console summary as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the console summary as Markdown.
	MarkdownReport bool

	// RelativePaths embeds image paths relative to the HTML file's directory.
	RelativePaths bool

	// SaveHistory stores the run in the history database under DBDir.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string

	// ConfigFilePath is the settings file path given with --config.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool

	// Scenes are the benchmark scenes in file order.
	Scenes []Scene
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputPath:     DefaultOutputFile,
		Render:         true,
		OutputSPP:      DefaultOutputSPP,
		RenderTimeout:  DefaultRenderTimeout,
		Jobs:           DefaultJobs,
		FailThreshold:  DefaultFailThreshold,
		WarnThreshold:  DefaultWarnThreshold,
		FailLimit:      DefaultFailLimit,
		WarnLimit:      DefaultWarnLimit,
		PrimaryMarker:  DefaultPrimaryMarker,
		FallbackMarker: DefaultFallbackMarker,
		FallbackLabel:  DefaultFallbackLabel,
		StripPrefixes:  append([]string(nil), DefaultStripPrefixes...),
		SaveHistory:    true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for aurorareport.
// On Linux: ~/.local/share/aurorareport
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for aurorareport.
// On Linux: ~/.config/aurorareport
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultBaselineDir returns the fallback baseline directory for a tool
// installed in toolDir: <toolDir>/../Tests/Aurora/BaselineImages.
func DefaultBaselineDir(toolDir string) string {
	return filepath.Join(toolDir, "..", "Tests", "Aurora", "BaselineImages")
}

// ResolvePaths turns every configured path into an absolute path.
// Relative CLI paths are resolved against cwd; the report path is resolved
// against the renderer's directory, which also becomes WorkDir unless set.
// An empty BaselineDir is derived from toolDir.
func (c *Config) ResolvePaths(cwd, toolDir string) error {
	if !filepath.IsAbs(cwd) {
		return fmt.Errorf("working directory must be absolute: %s", cwd)
	}

	c.RendererPath = absJoin(cwd, c.RendererPath)
	c.ScenesPath = absJoin(cwd, c.ScenesPath)

	if c.WorkDir == "" {
		c.WorkDir = filepath.Dir(c.RendererPath)
	} else {
		c.WorkDir = absJoin(cwd, c.WorkDir)
	}

	if c.ReportPath != "" {
		c.ReportPath = absJoin(c.WorkDir, c.ReportPath)
	}

	if c.BaselineDir == "" {
		c.BaselineDir = DefaultBaselineDir(toolDir)
	} else {
		c.BaselineDir = absJoin(cwd, c.BaselineDir)
	}

	if c.OutputPath != "" {
		c.OutputPath = absJoin(cwd, c.OutputPath)
	}

	return nil
}

// absJoin returns p unchanged if it is absolute, otherwise base/p, cleaned.
func absJoin(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// CheckRenderer verifies that RendererPath names an existing regular file.
func (c *Config) CheckRenderer() error {
	info, err := os.Stat(c.RendererPath)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w at: %s", ErrRendererNotFound, c.RendererPath)
	}
	return nil
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.FailThreshold <= 0 || c.FailThreshold > 1 ||
		c.WarnThreshold <= 0 || c.WarnThreshold > c.FailThreshold {
		return ErrInvalidThreshold
	}

	if c.FailLimit < 0 || c.WarnLimit < 0 {
		return ErrInvalidLimit
	}

	if c.Jobs <= 0 {
		return ErrInvalidJobs
	}

	if c.OutputSPP <= 0 {
		return ErrInvalidSamples
	}

	if c.RenderTimeout < 0 {
		return ErrInvalidRenderTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.OutputPath == "" {
		return ErrNoOutput
	}

	return nil
}
