package imagediff

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// solidImage returns a w x h image filled with c.
func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// writePNG encodes img as a PNG file at path.
func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
}

var gray = color.NRGBA{R: 100, G: 100, B: 100, A: 255}

func TestPixelComparer_Compare(t *testing.T) {
	t.Parallel()

	c := NewPixelComparer()

	t.Run("identical images", func(t *testing.T) {
		t.Parallel()
		result, err := c.Compare(solidImage(8, 4, gray), solidImage(8, 4, gray), 0.1, 0.025)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FailCount != 0 || result.WarnCount != 0 {
			t.Errorf("expected no differing pixels, got %d/%d", result.FailCount, result.WarnCount)
		}
		if result.MeanError != 0 || result.RMSError != 0 {
			t.Errorf("expected zero errors, got %v/%v", result.MeanError, result.RMSError)
		}
		if !math.IsInf(result.PSNR, 1) {
			t.Errorf("expected +Inf PSNR, got %v", result.PSNR)
		}
		if result.TotalPixels() != 32 {
			t.Errorf("expected 32 pixels, got %d", result.TotalPixels())
		}
	})

	t.Run("one failing pixel", func(t *testing.T) {
		t.Parallel()
		candidate := solidImage(10, 10, gray)
		candidate.SetNRGBA(3, 3, color.NRGBA{R: 228, G: 100, B: 100, A: 255})

		result, err := c.Compare(candidate, solidImage(10, 10, gray), 0.1, 0.025)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FailCount != 1 || result.WarnCount != 0 {
			t.Errorf("expected 1 fail / 0 warn, got %d/%d", result.FailCount, result.WarnCount)
		}
		if math.Abs(result.MaxError-128.0/255.0) > 1e-9 {
			t.Errorf("unexpected max error %v", result.MaxError)
		}
		if result.FailPercent() != 1 {
			t.Errorf("expected 1%% failing, got %v", result.FailPercent())
		}
		if math.IsInf(result.PSNR, 0) || result.PSNR <= 0 {
			t.Errorf("expected finite positive PSNR, got %v", result.PSNR)
		}
	})

	t.Run("one warning pixel", func(t *testing.T) {
		t.Parallel()
		candidate := solidImage(10, 10, gray)
		candidate.SetNRGBA(0, 0, color.NRGBA{R: 113, G: 100, B: 100, A: 255})

		result, err := c.Compare(candidate, solidImage(10, 10, gray), 0.1, 0.025)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FailCount != 0 || result.WarnCount != 1 {
			t.Errorf("expected 0 fail / 1 warn, got %d/%d", result.FailCount, result.WarnCount)
		}
	})

	t.Run("non-zero origin is handled", func(t *testing.T) {
		t.Parallel()
		sub := solidImage(20, 20, gray).SubImage(image.Rect(5, 5, 15, 15))
		result, err := c.Compare(sub, solidImage(10, 10, gray), 0.1, 0.025)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FailCount != 0 {
			t.Errorf("expected match, got %d failing", result.FailCount)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := c.Compare(solidImage(10, 10, gray), solidImage(10, 11, gray), 0.1, 0.025)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("nil image", func(t *testing.T) {
		t.Parallel()
		_, err := c.Compare(nil, solidImage(1, 1, gray), 0.1, 0.025)
		if !errors.Is(err, ErrNilImage) {
			t.Errorf("expected ErrNilImage, got %v", err)
		}
	})
}

func TestPixelComparer_LoadAndMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, solidImage(6, 3, gray))

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0600); err != nil {
		t.Fatalf("write bad image: %v", err)
	}

	c := NewPixelComparer()

	t.Run("metadata", func(t *testing.T) {
		t.Parallel()
		meta, err := c.Metadata(good)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Width != 6 || meta.Height != 3 || meta.Format != "png" {
			t.Errorf("unexpected metadata %+v", meta)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := c.Load(filepath.Join(dir, "missing.png"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("undecodable file", func(t *testing.T) {
		t.Parallel()
		if _, err := c.Load(bad); err == nil {
			t.Error("expected decode error")
		}
		if _, err := c.Metadata(bad); err == nil {
			t.Error("expected header error")
		}
	})

	t.Run("compare files", func(t *testing.T) {
		t.Parallel()
		result, err := CompareFiles(c, good, good, 0.1, 0.025)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FailCount != 0 {
			t.Errorf("expected match, got %d failing", result.FailCount)
		}
		if _, err := CompareFiles(c, good, bad, 0.1, 0.025); err == nil {
			t.Error("expected error for undecodable baseline")
		}
	})
}

func TestLimitsClassify(t *testing.T) {
	t.Parallel()

	raw := Limits{Fail: 0.05, Warn: 0.2}

	tests := []struct {
		name   string
		limits Limits
		result Result
		want   model.Status
	}{
		{"clean", raw, Result{Width: 10, Height: 10}, model.StatusMatch},
		{"one warning pixel", raw, Result{Width: 10, Height: 10, WarnCount: 1}, model.StatusWarning},
		{"one failing pixel", raw, Result{Width: 10, Height: 10, FailCount: 1}, model.StatusFail},
		{
			"normalized percentages within limits",
			Limits{Fail: 5, Warn: 20, Normalize: true},
			Result{Width: 100, Height: 10, FailCount: 30, WarnCount: 100},
			model.StatusMatch,
		},
		{
			"same counts fail on raw limits",
			Limits{Fail: 5, Warn: 20},
			Result{Width: 100, Height: 10, FailCount: 30, WarnCount: 100},
			model.StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.limits.Classify(&tt.result); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResultPercentages(t *testing.T) {
	t.Parallel()

	empty := &Result{}
	if empty.FailPercent() != 0 || empty.WarnPercent() != 0 {
		t.Error("expected zero percentages for empty result")
	}

	r := &Result{Width: 4, Height: 5, FailCount: 20, WarnCount: 5, PSNR: 30}
	if r.FailPercent() != 100 || r.WarnPercent() != 25 {
		t.Errorf("unexpected percentages %v/%v", r.FailPercent(), r.WarnPercent())
	}

	m := r.Metrics()
	if m.FailPercent != 100 || m.WarnCount != 5 || float64(m.PSNR) != 30 {
		t.Errorf("unexpected metrics %+v", m)
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	c := filepath.Join(dir, "c.png")
	writePNG(t, a, solidImage(4, 4, gray))
	writePNG(t, b, solidImage(4, 4, gray))
	writePNG(t, c, solidImage(4, 4, color.NRGBA{A: 255}))

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db, err := Digest(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dc, err := Digest(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(da) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(da))
	}
	if da != db {
		t.Error("expected identical files to have identical digests")
	}
	if da == dc {
		t.Error("expected different files to have different digests")
	}

	if _, err := Digest(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
