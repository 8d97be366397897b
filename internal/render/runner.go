package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aurora-tools/aurorareport/internal/config"
	"github.com/aurora-tools/aurorareport/internal/log"
)

var (
	// ErrRenderFailed is returned when the renderer exits with a non-zero status.
	ErrRenderFailed = errors.New("renderer exited with error")

	// ErrRenderTimeout is returned when the renderer exceeds the render timeout.
	ErrRenderTimeout = errors.New("renderer timed out")
)

// logFileMode is the permission of newly created scene logs.
const logFileMode = 0o644

// stderrTail is how much renderer stderr is kept for error messages.
const stderrTail = 2048

// waitDelay bounds how long Wait blocks on output after the renderer exits
// or is killed.
const waitDelay = 5 * time.Second

// Runner starts the renderer for one scene at a time.
type Runner struct {
	renderer string
	spp      int
	timeout  time.Duration
	env      []string
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithEnv replaces the environment passed to the renderer.
// By default the renderer gets a copy of the process environment.
func WithEnv(env []string) Option {
	return func(r *Runner) {
		r.env = append([]string(nil), env...)
	}
}

// NewRunner creates a Runner for cfg.RendererPath.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		renderer: cfg.RendererPath,
		spp:      cfg.OutputSPP,
		timeout:  cfg.RenderTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.env == nil {
		r.env = os.Environ()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Args returns the renderer arguments for scene.
func (r *Runner) Args(scene config.Scene) []string {
	return []string{
		"--scene", scene.File,
		"--output", scene.Output,
		"--camera", scene.Camera,
		"--output_spp", strconv.Itoa(r.spp),
	}
}

// Run renders scene and appends the renderer's standard output to the
// scene log, creating the log if needed. It blocks until the renderer exits.
// A missing executable, a non-zero exit and a timeout are all returned as
// errors; stderr output is included in the message.
func (r *Runner) Run(ctx context.Context, scene config.Scene) error {
	logFile, err := os.OpenFile(scene.Stdout, os.O_WRONLY|os.O_APPEND|os.O_CREATE, logFileMode) //nolint:gosec // Log path comes from the scenes file
	if err != nil {
		return fmt.Errorf("failed to open scene log: %w", err)
	}
	defer logFile.Close()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.renderer, r.Args(scene)...)
	cmd.Env = r.env
	cmd.Stdout = logFile
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Debug("starting renderer",
		"scene", scene.Name,
		"args", r.Args(scene),
		slog.Group("env", log.EnvAttrs(r.env)...),
	)

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case r.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return fmt.Errorf("%w after %s", ErrRenderTimeout, r.timeout)
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.As(err, &exitErr):
			return fmt.Errorf("%w: %v%s", ErrRenderFailed, err, formatStderr(stderr.String()))
		default:
			return fmt.Errorf("failed to start renderer: %w", err)
		}
	}

	r.logger.Debug("renderer finished",
		"scene", scene.Name,
		"elapsed", elapsed,
	)
	return nil
}

func formatStderr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return ": " + s
}
