package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aurora-tools/aurorareport/internal/config"
	"github.com/aurora-tools/aurorareport/internal/model"
)

// CompareFunc compares one scene and returns its record.
type CompareFunc func(ctx context.Context, scene config.Scene) model.Record

// BatchComparer runs scene comparisons with bounded concurrency.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Results are written to a preallocated slice by index, so the output
// order is the scene order whatever the completion order.
type BatchComparer struct {
	// concurrency is the maximum number of concurrent comparisons.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchComparer.
type BatchOption func(*BatchComparer)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchComparer) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent comparisons.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchComparer) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchComparer creates a BatchComparer. It is sequential unless
// WithConcurrency says otherwise.
func NewBatchComparer(opts ...BatchOption) *BatchComparer {
	b := &BatchComparer{
		concurrency: config.DefaultJobs,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// CompareAll calls compare for every scene and returns the records in
// scene order. When ctx is cancelled, scenes not yet started are skipped
// and the records completed so far are returned with the context error.
func (b *BatchComparer) CompareAll(ctx context.Context, scenes []config.Scene, compare CompareFunc) ([]model.Record, error) {
	b.logger.Debug("starting comparisons",
		"scenes", len(scenes),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	results := make([]model.Record, len(scenes))
	done := make([]bool, len(scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, scene := range scenes {
		// Stop scheduling once cancelled; SetLimit makes Go block.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			b.logger.Info("comparing scene",
				"scene", scene.Name,
				"index", i+1,
				"total", len(scenes),
			)

			// Each goroutine owns its own index; no lock needed.
			results[i] = compare(gctx, scene)
			done[i] = true
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	b.logger.Debug("comparisons complete",
		"scenes", len(scenes),
		"elapsed", time.Since(startTime),
	)

	if err != nil {
		completed := make([]model.Record, 0, len(results))
		for i, rec := range results {
			if done[i] {
				completed = append(completed, rec)
			}
		}
		return completed, err
	}
	return results, nil
}
