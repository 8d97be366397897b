package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and the loaders, and provide
// specific information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrRendererNotFound is returned when the renderer executable does not exist
	// or is not a regular file.
	ErrRendererNotFound = errors.New("renderer not found")

	// ErrInvalidThreshold is returned when a per-pixel error threshold is outside (0, 1]
	// or the warn threshold is larger than the fail threshold.
	ErrInvalidThreshold = errors.New("invalid threshold: fail and warn thresholds must be in (0, 1] with warn <= fail")

	// ErrInvalidLimit is returned when a classification limit is negative.
	ErrInvalidLimit = errors.New("invalid limit: fail and warn limits must be non-negative")

	// ErrInvalidJobs is returned when the comparison concurrency is not positive.
	ErrInvalidJobs = errors.New("invalid jobs: must be positive")

	// ErrInvalidSamples is returned when the renderer sample count is not positive.
	ErrInvalidSamples = errors.New("invalid output samples: must be positive")

	// ErrInvalidRenderTimeout is returned when the render timeout is negative.
	// Use 0 to disable the timeout.
	ErrInvalidRenderTimeout = errors.New("invalid render timeout: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one summary format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoOutput is returned when the HTML output path is empty.
	ErrNoOutput = errors.New("no output path specified for the HTML report")

	// ErrNoScenes is returned when the scenes file is not a JSON object.
	ErrNoScenes = errors.New("scenes file must contain a JSON object of named scenes")

	// ErrDuplicateScene is returned when the same scene name appears twice.
	ErrDuplicateScene = errors.New("duplicate scene name")

	// ErrMissingSceneField is returned when a scene entry lacks a required key.
	ErrMissingSceneField = errors.New("scene entry is missing a required field")
)
