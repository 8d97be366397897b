package imagediff

import (
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// channelMax is the largest 16-bit channel value.
const channelMax = 0xffff

// PixelComparer is the default Comparer. It decodes images with the
// registered image decoders and compares them channel by channel.
type PixelComparer struct{}

// NewPixelComparer creates a PixelComparer.
func NewPixelComparer() *PixelComparer {
	return &PixelComparer{}
}

// Load reads and decodes the image at path.
func (c *PixelComparer) Load(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // Image paths come from the run configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Metadata returns the dimensions and format of the image at path.
func (c *PixelComparer) Metadata(path string) (Metadata, error) {
	f, err := os.Open(path) //nolint:gosec // Image paths come from the run configuration
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read image header %s: %w", path, err)
	}
	return Metadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Compare computes the pixel-difference summary of candidate against baseline.
func (c *PixelComparer) Compare(candidate, baseline image.Image, failThreshold, warnThreshold float64) (*Result, error) {
	if candidate == nil || baseline == nil {
		return nil, ErrNilImage
	}

	cb, bb := candidate.Bounds(), baseline.Bounds()
	if cb.Dx() != bb.Dx() || cb.Dy() != bb.Dy() {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, cb.Dx(), cb.Dy(), bb.Dx(), bb.Dy())
	}

	a := toNRGBA64(candidate)
	b := toNRGBA64(baseline)

	result := &Result{Width: cb.Dx(), Height: cb.Dy()}

	var sum, sumSq float64
	for y := 0; y < result.Height; y++ {
		ra := a.Pix[y*a.Stride : y*a.Stride+result.Width*8]
		rb := b.Pix[y*b.Stride : y*b.Stride+result.Width*8]

		for x := 0; x < result.Width; x++ {
			var pixelMax float64
			for ch := 0; ch < 4; ch++ {
				i := x*8 + ch*2
				va := int(ra[i])<<8 | int(ra[i+1])
				vb := int(rb[i])<<8 | int(rb[i+1])

				d := math.Abs(float64(va-vb)) / channelMax
				sum += d
				sumSq += d * d
				if d > pixelMax {
					pixelMax = d
				}
			}

			if pixelMax > result.MaxError {
				result.MaxError = pixelMax
			}
			switch {
			case pixelMax > failThreshold:
				result.FailCount++
			case pixelMax > warnThreshold:
				result.WarnCount++
			}
		}
	}

	samples := float64(result.TotalPixels() * 4)
	if samples > 0 {
		result.MeanError = sum / samples
		result.RMSError = math.Sqrt(sumSq / samples)
	}
	if result.RMSError == 0 {
		result.PSNR = math.Inf(1)
	} else {
		result.PSNR = 20 * math.Log10(1/result.RMSError)
	}

	return result, nil
}

// toNRGBA64 converts img into a zero-origin, non-premultiplied 16-bit image.
// Straight alpha matches what PNG renderer outputs store.
func toNRGBA64(img image.Image) *image.NRGBA64 {
	if n, ok := img.(*image.NRGBA64); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
