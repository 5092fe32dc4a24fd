package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"fishstack/pkg/axes"
	"fishstack/pkg/codebook"
	"fishstack/pkg/imagestack"
)

// Spot is one decoded signal: its pixel position in the stack, its physical
// position, and the codebook target whose codeword best matched the pixel's
// intensity trace across rounds and channels.
type Spot struct {
	// X, Y, Z are the pixel indices inside the stack. Z is 0 for planar
	// stacks.
	X, Y, Z int

	// Xc, Yc, Zc are the physical coordinates of the pixel, taken from the
	// stack's coordinate arrays.
	Xc, Yc, Zc float64

	// Target is the matched codebook target.
	Target string

	// Intensity is the pixel's peak value across all rounds and channels.
	Intensity float64

	// Quality is the cosine similarity between the pixel's trace and the
	// matched codeword, in [0, 1] for non-negative data.
	Quality float64
}

// PixelDecoder turns a processed image stack into decoded spots using the
// experiment's codebook.
type PixelDecoder interface {
	Decode(st *imagestack.Stack, cb *codebook.Codebook) ([]Spot, error)
}

// ThresholdDecoder decodes every pixel whose peak intensity across rounds
// and channels clears a threshold. Each passing pixel is assigned the
// codebook target with the highest cosine similarity to its trace.
type ThresholdDecoder struct {
	// Threshold is the minimum peak intensity a pixel must reach to be
	// considered a spot.
	Threshold float64
}

// Decode implements PixelDecoder.
func (d *ThresholdDecoder) Decode(st *imagestack.Stack, cb *codebook.Codebook) ([]Spot, error) {
	for _, a := range []axes.Axis{axes.Round, axes.Ch, axes.Y, axes.X} {
		if !st.HasAxis(a) {
			return nil, fmt.Errorf("pipeline: decoding needs axis %q, stack is %s", a, st)
		}
	}
	if len(cb.Mappings) == 0 {
		return nil, fmt.Errorf("pipeline: codebook has no mappings")
	}

	rounds, _ := st.AxisSize(axes.Round)
	chs, _ := st.AxisSize(axes.Ch)
	height, _ := st.AxisSize(axes.Y)
	width, _ := st.AxisSize(axes.X)
	volumetric := st.HasAxis(axes.ZPlane)
	zCount := 1
	if volumetric {
		zCount, _ = st.AxisSize(axes.ZPlane)
	}

	codes, err := cb.Matrix(rounds, chs)
	if err != nil {
		return nil, err
	}
	targets := cb.Targets()
	norms := make([]float64, len(targets))
	for i := range targets {
		norms[i] = floats.Norm(codes.RawRowView(i), 2)
	}

	xc := st.Coords(axes.CoordX)
	yc := st.Coords(axes.CoordY)
	zc := st.Coords(axes.CoordZ)

	var spots []Spot
	trace := make([]float64, rounds*chs)
	sel := axes.Selector{}
	for z := 0; z < zCount; z++ {
		if volumetric {
			sel[axes.ZPlane] = z
		}
		for y := 0; y < height; y++ {
			sel[axes.Y] = y
			for x := 0; x < width; x++ {
				sel[axes.X] = x
				for r := 0; r < rounds; r++ {
					sel[axes.Round] = r
					for c := 0; c < chs; c++ {
						sel[axes.Ch] = c
						v, err := st.At(sel)
						if err != nil {
							return nil, err
						}
						trace[r*chs+c] = v
					}
				}

				peak := floats.Max(trace)
				if peak < d.Threshold {
					continue
				}
				best, quality := matchTrace(codes, norms, trace)
				if best < 0 {
					continue
				}

				spot := Spot{
					X: x, Y: y, Z: z,
					Target:    targets[best],
					Intensity: peak,
					Quality:   quality,
				}
				if xc != nil {
					spot.Xc = xc[x]
				}
				if yc != nil {
					spot.Yc = yc[y]
				}
				if volumetric && zc != nil {
					spot.Zc = zc[z]
				}
				spots = append(spots, spot)
			}
		}
	}
	return spots, nil
}

// matchTrace returns the row of codes most similar to trace by cosine
// similarity, or -1 when no comparison is possible.
func matchTrace(codes *mat.Dense, norms, trace []float64) (int, float64) {
	traceNorm := floats.Norm(trace, 2)
	best, bestScore := -1, 0.0
	for i, n := range norms {
		denom := n * traceNorm
		if denom == 0 {
			continue
		}
		score := floats.Dot(codes.RawRowView(i), trace) / denom
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// WriteSpotsCSV writes decoded spots as a CSV table, one row per spot.
func WriteSpotsCSV(path string, spots []Spot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pipeline: creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "z", "xc", "yc", "zc", "target", "intensity", "quality"}); err != nil {
		f.Close()
		return err
	}
	for _, s := range spots {
		row := []string{
			strconv.Itoa(s.X),
			strconv.Itoa(s.Y),
			strconv.Itoa(s.Z),
			strconv.FormatFloat(s.Xc, 'g', -1, 64),
			strconv.FormatFloat(s.Yc, 'g', -1, 64),
			strconv.FormatFloat(s.Zc, 'g', -1, 64),
			s.Target,
			strconv.FormatFloat(s.Intensity, 'g', -1, 64),
			strconv.FormatFloat(s.Quality, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("pipeline: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pipeline: closing %s: %w", path, err)
	}
	return nil
}
