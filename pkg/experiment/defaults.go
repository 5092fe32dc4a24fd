package experiment

import (
	"fmt"
	"math/rand"

	"fishstack/pkg/axes"
	"fishstack/pkg/sptx"
)

// defaultNoiseTileSize is the pixel size of generated noise tiles when no
// default tile shape is configured.
const defaultNoiseTileSize = 256

// noiseTile fills its plane with uniform noise from a generator seeded by
// the tile's position, so rebuilding an experiment reproduces it bit for
// bit.
type noiseTile struct {
	fov, r, c, z int
	seed         int64
	shape        map[axes.Axis]int
}

func (n *noiseTile) Shape() map[axes.Axis]int {
	return n.shape
}

func (n *noiseTile) Coordinates() map[axes.Coord]sptx.CoordRange {
	return map[axes.Coord]sptx.CoordRange{
		axes.CoordX: {Min: 0, Max: 0.0001},
		axes.CoordY: {Min: 0, Max: 0.0001},
		axes.CoordZ: {Min: 0, Max: 0.0001},
	}
}

func (n *noiseTile) Data() ([]float64, error) {
	rng := rand.New(rand.NewSource(n.seed ^ tileSeed(n.fov, n.r, n.c, n.z)))
	data := make([]float64, n.shape[axes.Y]*n.shape[axes.X])
	for i := range data {
		data[i] = rng.Float64()
	}
	return data, nil
}

func (n *noiseTile) Extras() map[string]any {
	return nil
}

func (n *noiseTile) Provenance() string {
	return fmt.Sprintf("noise:%d/%d/%d/%d", n.fov, n.r, n.c, n.z)
}

// tileSeed mixes a tile position into a seed offset, spreading the indices
// across separate bit ranges so nearby tiles never collide.
func tileSeed(fov, r, c, z int) int64 {
	return int64(fov)<<48 | int64(r)<<32 | int64(c)<<16 | int64(z)
}

// NewRandomNoiseFetcher returns a fetcher producing deterministic uniform
// noise tiles, the stand-in data source for skeleton experiments. A nil
// shape falls back to 256x256 tiles.
func NewRandomNoiseFetcher(seed int64, shape map[axes.Axis]int) TileFetcher {
	if shape == nil {
		shape = map[axes.Axis]int{axes.Y: defaultNoiseTileSize, axes.X: defaultNoiseTileSize}
	}
	fixed := map[axes.Axis]int{axes.Y: shape[axes.Y], axes.X: shape[axes.X]}
	return TileFetcherFunc(func(fov, r, c, z int) (FetchedTile, error) {
		return &noiseTile{fov: fov, r: r, c: c, z: z, seed: seed, shape: fixed}, nil
	})
}
