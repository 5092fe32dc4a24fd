package experiment

import (
	"fishstack/pkg/axes"
	"fishstack/pkg/sptx"
)

// FetchedTile is one tile's worth of image data handed to the builder by a
// TileFetcher. Pixel reads are deferred until Data is called, so fetchers
// backed by slow storage pay nothing for tiles that are never written.
type FetchedTile interface {
	// Shape is the tile's pixel size along y and x. A nil shape defers to
	// the build's default tile shape.
	Shape() map[axes.Axis]int
	// Coordinates is the tile's physical extent; xc and yc are required,
	// zc optional.
	Coordinates() map[axes.Coord]sptx.CoordRange
	// Data returns the pixels, row-major with x varying fastest.
	Data() ([]float64, error)
	// Extras is free-form per-tile metadata carried into the manifest.
	Extras() map[string]any
}

// Provenancer is an optional interface for fetched tiles that can say where
// their pixels came from; the builder records it in the tile manifest.
type Provenancer interface {
	Provenance() string
}

// TileFetcher supplies tiles for every (fov, round, ch, zplane) the builder
// enumerates.
type TileFetcher interface {
	GetTile(fov, r, c, z int) (FetchedTile, error)
}

// TileFetcherFunc adapts a function to the TileFetcher interface.
type TileFetcherFunc func(fov, r, c, z int) (FetchedTile, error)

// GetTile calls f.
func (f TileFetcherFunc) GetTile(fov, r, c, z int) (FetchedTile, error) {
	return f(fov, r, c, z)
}
