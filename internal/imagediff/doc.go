// Package imagediff compares a rendered image against its baseline.
//
// The Comparer interface is the narrow contract the rest of the tool depends
// on: load an image, compare two images against fail and warn thresholds,
// and read image dimensions. PixelComparer is the default pure Go
// implementation; any image-diff library can be substituted behind the
// interface without touching parsing or report assembly.
//
// # Error model
//
// Each channel value is normalized to [0, 1]. A pixel fails when its largest
// channel error exceeds the fail threshold, and warns when it exceeds the
// warn threshold without failing. Mean and RMS error are taken over every
// channel sample; PSNR is 20*log10(1/RMS) and is +Inf for identical images.
//
// Supported formats are PNG, JPEG and GIF from the standard library plus
// BMP, TIFF and WebP from golang.org/x/image.
package imagediff
