package sptx

import (
	"errors"
	"fmt"

	"fishstack/pkg/axes"
)

var (
	// ErrIncompleteTileSet is returned when a tile set does not hold exactly
	// one tile per position in its declared index space.
	ErrIncompleteTileSet = errors.New("sptx: incomplete tile set")
	// ErrDuplicateTile is returned when two tiles claim the same indices.
	ErrDuplicateTile = errors.New("sptx: duplicate tile")
)

// TileSet is the collection of tiles for one field of view. It declares the
// dimension names present on its tiles, the cardinality of each index axis,
// and the encoding tiles are stored with. Tiles keep their insertion order.
type TileSet struct {
	// Dimensions lists every dimension name appearing on tiles, index and
	// coordinate axes alike.
	Dimensions []string
	// Shape gives the cardinality of each index axis (r, c and optionally z).
	Shape map[axes.Axis]int
	// DefaultTileShape, when set, is the pixel shape shared by all tiles.
	DefaultTileShape map[axes.Axis]int
	// Format is the pixel encoding used when the tile set is written.
	Format ImageFormat
	// Extras carries free-form per-tile-set metadata.
	Extras map[string]any

	tiles []*Tile
	seen  map[string]bool
}

// NewTileSet builds an empty tile set. Shape must carry positive
// cardinalities for r and c; a z entry makes the set volumetric.
func NewTileSet(dimensions []string, shape map[axes.Axis]int, defaultTileShape map[axes.Axis]int, format ImageFormat) (*TileSet, error) {
	if shape[axes.Round] < 1 || shape[axes.Ch] < 1 {
		return nil, fmt.Errorf("sptx: tile set shape needs positive r and c cardinalities, got %v", shape)
	}
	if z, ok := shape[axes.ZPlane]; ok && z < 1 {
		return nil, fmt.Errorf("sptx: tile set z cardinality must be positive, got %d", z)
	}
	for a := range shape {
		switch a {
		case axes.Round, axes.Ch, axes.ZPlane:
		default:
			return nil, fmt.Errorf("sptx: %q is not a tile set index axis", a)
		}
	}
	shapeCopy := make(map[axes.Axis]int, len(shape))
	for a, n := range shape {
		shapeCopy[a] = n
	}
	var dtsCopy map[axes.Axis]int
	if defaultTileShape != nil {
		dtsCopy = map[axes.Axis]int{axes.Y: defaultTileShape[axes.Y], axes.X: defaultTileShape[axes.X]}
	}
	return &TileSet{
		Dimensions:       append([]string(nil), dimensions...),
		Shape:            shapeCopy,
		DefaultTileShape: dtsCopy,
		Format:           format,
		seen:             make(map[string]bool),
	}, nil
}

// AddTile appends a tile, checking that its indices fall inside the declared
// index space and that the position is not already taken.
func (ts *TileSet) AddTile(t *Tile) error {
	for a, n := range ts.Shape {
		v, ok := t.Indices[a]
		if !ok {
			return fmt.Errorf("sptx: tile %v is missing the %q index", t.Indices, a)
		}
		if v < 0 || v >= n {
			return fmt.Errorf("sptx: tile index %s=%d outside the declared cardinality %d", a, v, n)
		}
	}
	for a := range t.Indices {
		if _, ok := ts.Shape[a]; !ok {
			return fmt.Errorf("sptx: tile carries an index for undeclared axis %q", a)
		}
	}
	key := t.Indices.String()
	if ts.seen[key] {
		return fmt.Errorf("%w: %s", ErrDuplicateTile, key)
	}
	ts.seen[key] = true
	ts.tiles = append(ts.tiles, t)
	return nil
}

// Tiles returns the tiles in insertion order. The backing tiles are shared;
// the slice is a copy.
func (ts *TileSet) Tiles() []*Tile {
	return append([]*Tile(nil), ts.tiles...)
}

// Len returns the number of tiles added so far.
func (ts *TileSet) Len() int {
	return len(ts.tiles)
}

// Volumetric reports whether the tile set declares a z axis.
func (ts *TileSet) Volumetric() bool {
	_, ok := ts.Shape[axes.ZPlane]
	return ok
}

// Complete verifies the set holds exactly one tile per declared position.
func (ts *TileSet) Complete() error {
	want := 1
	for _, n := range ts.Shape {
		want *= n
	}
	if len(ts.tiles) != want {
		return fmt.Errorf("%w: have %d tiles, want %d", ErrIncompleteTileSet, len(ts.tiles), want)
	}
	return nil
}

// TileShape returns the pixel shape a tile claims, falling back to the
// set-wide default.
func (ts *TileSet) TileShape(t *Tile) (width, height int, err error) {
	if t.Shape[axes.Y] > 0 && t.Shape[axes.X] > 0 {
		return t.Shape[axes.X], t.Shape[axes.Y], nil
	}
	if ts.DefaultTileShape != nil {
		return ts.DefaultTileShape[axes.X], ts.DefaultTileShape[axes.Y], nil
	}
	return 0, 0, fmt.Errorf("sptx: tile %v has no shape and the tile set has no default", t.Indices)
}
