// Package fixture provides deterministic tile sources for tests and demo
// builds: every pixel derives from the tile's position, so builds are
// reproducible and assertions can predict any value.
package fixture

import (
	"fmt"

	"fishstack/pkg/axes"
	"fishstack/pkg/experiment"
	"fishstack/pkg/sptx"
)

// Tile encodes its (fov, r, c, z) position into its pixels. Every pixel of
// an indexed tile carries the base value; a gradient tile adds an in-plane
// ramp on top. Base values stay below 1 for fovs under 5 and index labels
// under 10, which covers the demo geometries this package is meant for.
type Tile struct {
	FOV, Round, Ch, Z int
	Width, Height     int
	Ramp              bool
}

// BaseValue is the constant part of the tile's pixels, unique per position.
func (t *Tile) BaseValue() float64 {
	return float64(t.FOV*1000+t.Round*100+t.Ch*10+t.Z) / 10000
}

// PixelValue returns the value at in-plane position (x, y).
func (t *Tile) PixelValue(x, y int) float64 {
	v := t.BaseValue()
	if t.Ramp {
		v += 0.5 * float64(y*t.Width+x) / float64(t.Width*t.Height)
	}
	return v
}

// Shape implements experiment.FetchedTile.
func (t *Tile) Shape() map[axes.Axis]int {
	return map[axes.Axis]int{axes.Y: t.Height, axes.X: t.Width}
}

// Coordinates places each field of view on its own x interval and each
// z-plane at the point coordinate z.
func (t *Tile) Coordinates() map[axes.Coord]sptx.CoordRange {
	return map[axes.Coord]sptx.CoordRange{
		axes.CoordX: {Min: float64(t.FOV) * 0.5, Max: float64(t.FOV)*0.5 + 0.4},
		axes.CoordY: {Min: 0, Max: 0.4},
		axes.CoordZ: {Min: float64(t.Z), Max: float64(t.Z)},
	}
}

// Data implements experiment.FetchedTile.
func (t *Tile) Data() ([]float64, error) {
	out := make([]float64, t.Width*t.Height)
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			out[y*t.Width+x] = t.PixelValue(x, y)
		}
	}
	return out, nil
}

// Extras implements experiment.FetchedTile.
func (t *Tile) Extras() map[string]any {
	return map[string]any{"source": "fixture"}
}

// Provenance implements experiment.Provenancer.
func (t *Tile) Provenance() string {
	return fmt.Sprintf("fixture:%d/%d/%d/%d", t.FOV, t.Round, t.Ch, t.Z)
}

// NewIndexedFetcher supplies constant-valued tiles whose value encodes
// their position.
func NewIndexedFetcher(width, height int) experiment.TileFetcher {
	return experiment.TileFetcherFunc(func(fov, r, c, z int) (experiment.FetchedTile, error) {
		return &Tile{FOV: fov, Round: r, Ch: c, Z: z, Width: width, Height: height}, nil
	})
}

// NewGradientFetcher supplies tiles with an in-plane intensity ramp on top
// of the positional base value.
func NewGradientFetcher(width, height int) experiment.TileFetcher {
	return experiment.TileFetcherFunc(func(fov, r, c, z int) (experiment.FetchedTile, error) {
		return &Tile{FOV: fov, Round: r, Ch: c, Z: z, Width: width, Height: height, Ramp: true}, nil
	})
}
