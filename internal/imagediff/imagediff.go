package imagediff

import (
	"errors"
	"fmt"
	"image"

	"github.com/aurora-tools/aurorareport/internal/model"
)

var (
	// ErrDimensionMismatch is returned when the two images differ in size.
	ErrDimensionMismatch = errors.New("image dimensions differ")

	// ErrNilImage is returned when Compare receives a nil image.
	ErrNilImage = errors.New("nil image")
)

// Comparer is the image-comparison capability used by the pipeline.
type Comparer interface {
	// Load reads and decodes the image at path.
	Load(path string) (image.Image, error)

	// Compare computes the pixel-difference summary of candidate against baseline.
	Compare(candidate, baseline image.Image, failThreshold, warnThreshold float64) (*Result, error)

	// Metadata returns the dimensions of the image at path without decoding pixels.
	Metadata(path string) (Metadata, error)
}

// Metadata describes an image file.
type Metadata struct {
	Width  int
	Height int
	Format string
}

// Result is the pixel-difference summary of one comparison.
type Result struct {
	Width     int
	Height    int
	FailCount int
	WarnCount int
	MeanError float64
	RMSError  float64
	MaxError  float64
	PSNR      float64
}

// TotalPixels returns the number of compared pixels.
func (r *Result) TotalPixels() int {
	return r.Width * r.Height
}

// FailPercent returns failing pixels as a percentage of all pixels, in [0, 100].
func (r *Result) FailPercent() float64 {
	return percent(r.FailCount, r.TotalPixels())
}

// WarnPercent returns warning pixels as a percentage of all pixels, in [0, 100].
func (r *Result) WarnPercent() float64 {
	return percent(r.WarnCount, r.TotalPixels())
}

func percent(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// Metrics converts the result into its report representation.
func (r *Result) Metrics() *model.Metrics {
	return &model.Metrics{
		Width:       r.Width,
		Height:      r.Height,
		FailCount:   r.FailCount,
		WarnCount:   r.WarnCount,
		FailPercent: r.FailPercent(),
		WarnPercent: r.WarnPercent(),
		MeanError:   r.MeanError,
		RMSError:    r.RMSError,
		MaxError:    r.MaxError,
		PSNR:        model.Decibels(r.PSNR),
	}
}

// Limits decide whether a comparison result is a match.
//
// Design decision: the limits default to being applied to raw pixel
// counts, which is how the regression suite has always classified its
// scenes, even though the report messages show percentages. Normalize
// switches to percentages; it is opt-in so existing outcomes do not change
// silently.
type Limits struct {
	// Fail is the largest failing-pixel figure still accepted.
	Fail float64

	// Warn is the largest warning-pixel figure still accepted.
	Warn float64

	// Normalize applies the limits to percentages instead of counts.
	Normalize bool
}

// FailWithin reports whether the failing pixels are within the fail limit.
func (l Limits) FailWithin(r *Result) bool {
	return l.figure(r.FailCount, r.FailPercent()) <= l.Fail
}

// WarnWithin reports whether the warning pixels are within the warn limit.
func (l Limits) WarnWithin(r *Result) bool {
	return l.figure(r.WarnCount, r.WarnPercent()) <= l.Warn
}

func (l Limits) figure(count int, pct float64) float64 {
	if l.Normalize {
		return pct
	}
	return float64(count)
}

// Classify returns StatusMatch when both figures are within their limits,
// StatusWarning when only the warn limit is exceeded, and StatusFail otherwise.
func (l Limits) Classify(r *Result) model.Status {
	switch {
	case !l.FailWithin(r):
		return model.StatusFail
	case !l.WarnWithin(r):
		return model.StatusWarning
	default:
		return model.StatusMatch
	}
}

// CompareFiles loads both images with c and compares them.
// Errors name the file that could not be used.
func CompareFiles(c Comparer, candidatePath, baselinePath string, failThreshold, warnThreshold float64) (*Result, error) {
	candidate, err := c.Load(candidatePath)
	if err != nil {
		return nil, err
	}
	baseline, err := c.Load(baselinePath)
	if err != nil {
		return nil, err
	}

	result, err := c.Compare(candidate, baseline, failThreshold, warnThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s to %s: %w", candidatePath, baselinePath, err)
	}
	return result, nil
}
