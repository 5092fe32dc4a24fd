package sptx

import (
	"encoding/json"
	"fmt"

	"fishstack/pkg/axes"
)

// CoordRange is the physical extent of a tile along one coordinate axis.
// It serializes as a two-element JSON array [min, max].
type CoordRange struct {
	Min float64
	Max float64
}

// MarshalJSON renders the range as [min, max].
func (r CoordRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

// UnmarshalJSON accepts [min, max].
func (r *CoordRange) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("sptx: coordinate range must be [min, max]: %w", err)
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// Mid returns the midpoint of the range.
func (r CoordRange) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Tile is one 2-D image plane addressed by integer indices along the tile
// set's axes and located in space by per-axis coordinate ranges.
type Tile struct {
	// Indices addresses the tile along the index axes, e.g. r, c and
	// optionally z.
	Indices axes.Selector
	// Coordinates is the tile's physical extent; xc and yc are required,
	// zc is present for volumetric acquisitions.
	Coordinates map[axes.Coord]CoordRange
	// Shape is the pixel size of the tile along y and x.
	Shape map[axes.Axis]int
	// Extras carries free-form per-tile metadata.
	Extras map[string]any
	// Provenance records where the tile's pixels came from, when the data
	// source chooses to say.
	Provenance string

	data []float64
}

// NewTile validates the addressing metadata and builds a tile without pixel
// data; call SetData before writing it out.
func NewTile(indices axes.Selector, coords map[axes.Coord]CoordRange, shape map[axes.Axis]int, extras map[string]any) (*Tile, error) {
	if _, ok := indices[axes.Round]; !ok {
		return nil, fmt.Errorf("sptx: tile is missing a round index")
	}
	if _, ok := indices[axes.Ch]; !ok {
		return nil, fmt.Errorf("sptx: tile is missing a channel index")
	}
	for a := range indices {
		switch a {
		case axes.Round, axes.Ch, axes.ZPlane:
		default:
			return nil, fmt.Errorf("sptx: %q is not a tile index axis", a)
		}
	}
	for _, a := range []axes.Axis{axes.Y, axes.X} {
		if shape[a] < 1 {
			return nil, fmt.Errorf("sptx: tile shape needs a positive %q size", a)
		}
	}
	for _, c := range []axes.Coord{axes.CoordX, axes.CoordY} {
		if _, ok := coords[c]; !ok {
			return nil, fmt.Errorf("sptx: tile is missing its %q coordinate range", c)
		}
	}
	return &Tile{
		Indices:     indices.Clone(),
		Coordinates: cloneCoords(coords),
		Shape:       map[axes.Axis]int{axes.Y: shape[axes.Y], axes.X: shape[axes.X]},
		Extras:      extras,
	}, nil
}

// SetData attaches the tile's pixels, row-major with x varying fastest.
func (t *Tile) SetData(data []float64) error {
	if want := t.Shape[axes.Y] * t.Shape[axes.X]; len(data) != want {
		return fmt.Errorf("sptx: %d pixels for a %dx%d tile", len(data), t.Shape[axes.X], t.Shape[axes.Y])
	}
	t.data = data
	return nil
}

// Data returns the tile's pixels, or nil if none were attached.
func (t *Tile) Data() []float64 {
	return t.data
}

// Width returns the tile's pixel size along x.
func (t *Tile) Width() int {
	return t.Shape[axes.X]
}

// Height returns the tile's pixel size along y.
func (t *Tile) Height() int {
	return t.Shape[axes.Y]
}

func cloneCoords(coords map[axes.Coord]CoordRange) map[axes.Coord]CoordRange {
	out := make(map[axes.Coord]CoordRange, len(coords))
	for c, r := range coords {
		out[c] = r
	}
	return out
}
