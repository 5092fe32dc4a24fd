// Package sptx reads and writes tile collections: JSON manifests that
// describe multi-dimensional microscopy acquisitions, plus the per-tile
// pixel payloads they point at. A collection maps field-of-view names to
// tile sets; a tile set addresses each tile by its integer indices along
// the declared axes and records its physical extent.
package sptx

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ImageFormat selects the on-disk encoding of tile pixel data.
type ImageFormat string

const (
	// FormatPNG stores tiles as 16-bit grayscale PNG. Values are quantized
	// to 1/65535 steps, so the encoding is lossy for arbitrary floats.
	FormatPNG ImageFormat = "png"
	// FormatF32 stores tiles as gzip-compressed little-endian float32,
	// preserving intensities to single precision.
	FormatF32 ImageFormat = "f32"
)

// ParseImageFormat maps a manifest or CLI name to its ImageFormat.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch f := ImageFormat(s); f {
	case FormatPNG, FormatF32:
		return f, nil
	}
	return "", fmt.Errorf("sptx: unknown image format %q", s)
}

// Ext returns the file extension for tiles of this format, without a
// leading dot.
func (f ImageFormat) Ext() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatF32:
		return "f32.gz"
	}
	return string(f)
}

// Encode writes one tile's pixel data, given row-major with x varying
// fastest and values in [0, 1].
func (f ImageFormat) Encode(w io.Writer, data []float64, width, height int) error {
	if len(data) != width*height {
		return fmt.Errorf("sptx: %d pixels for a %dx%d tile", len(data), width, height)
	}
	switch f {
	case FormatPNG:
		return png.Encode(w, grayFromFloat(data, width, height))
	case FormatF32:
		return encodeF32(w, data)
	}
	return fmt.Errorf("sptx: unknown image format %q", string(f))
}

// Decode reads one tile's pixel data and verifies it matches the expected
// tile shape.
func (f ImageFormat) Decode(r io.Reader, width, height int) ([]float64, error) {
	switch f {
	case FormatPNG:
		img, err := png.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("sptx: decoding png tile: %w", err)
		}
		b := img.Bounds()
		if b.Dx() != width || b.Dy() != height {
			return nil, fmt.Errorf("sptx: tile is %dx%d, manifest says %dx%d", b.Dx(), b.Dy(), width, height)
		}
		return floatFromImage(img), nil
	case FormatF32:
		return decodeF32(r, width*height)
	}
	return nil, fmt.Errorf("sptx: unknown image format %q", string(f))
}

// grayFromFloat converts unit-range intensities to a 16-bit grayscale
// image, clamping anything outside [0, 1].
func grayFromFloat(data []float64, width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := data[y*width+x]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v*65535 + 0.5)})
		}
	}
	return img
}

// floatFromImage converts any grayscale-decodable image back to unit-range
// intensities.
func floatFromImage(img image.Image) []float64 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y*width+x] = float64(r) / 65535.0
		}
	}
	return out
}

func encodeF32(w io.Writer, data []float64) error {
	buf := make([]float32, len(data))
	for i, v := range data {
		buf[i] = float32(v)
	}
	gz := gzip.NewWriter(w)
	if err := binary.Write(gz, binary.LittleEndian, buf); err != nil {
		gz.Close()
		return fmt.Errorf("sptx: writing float32 tile: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("sptx: closing float32 tile: %w", err)
	}
	return nil
}

func decodeF32(r io.Reader, n int) ([]float64, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("sptx: opening float32 tile: %w", err)
	}
	defer gz.Close()

	buf := make([]float32, n)
	if err := binary.Read(gz, binary.LittleEndian, buf); err != nil {
		return nil, fmt.Errorf("sptx: reading float32 tile: %w", err)
	}
	out := make([]float64, n)
	for i, v := range buf {
		out[i] = float64(v)
	}
	return out, nil
}
