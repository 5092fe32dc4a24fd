package experiment

import (
	"fmt"

	"fishstack/pkg/axes"
	"fishstack/pkg/sptx"
)

// FOVName renders the canonical partition name of a field of view,
// e.g. FOVName(3) == "fov_003".
func FOVName(fov int) string {
	return fmt.Sprintf("fov_%03d", fov)
}

// BuildImage assembles one image collection: a partition per field of view,
// each holding one tile per (round, ch, zplane) combination, fetched in the
// priority given by order (nil means z, then round, then channel). A nil
// zplanes builds a planar collection whose tiles carry no z index; the
// fetcher still sees z=0 for every tile. Tile data is fetched eagerly so a
// broken source fails the whole build rather than leaving a partial
// collection behind.
func BuildImage(fovs, rounds, chs, zplanes []int, fetcher TileFetcher, defaultShape map[axes.Axis]int, order []axes.Axis) (*sptx.Collection, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("experiment: BuildImage needs a tile fetcher")
	}
	if len(fovs) == 0 {
		return nil, fmt.Errorf("experiment: BuildImage needs at least one field of view")
	}
	if order == nil {
		order = axes.DefaultDimensionOrder
	}

	volumetric := zplanes != nil
	shape := map[axes.Axis]int{
		axes.Round: len(rounds),
		axes.Ch:    len(chs),
	}
	var dimensions []string
	if volumetric {
		shape[axes.ZPlane] = len(zplanes)
		dimensions = []string{
			string(axes.CoordX), string(axes.CoordY), string(axes.CoordZ),
			string(axes.ZPlane), string(axes.Round), string(axes.Ch),
			string(axes.X), string(axes.Y),
		}
	} else {
		zplanes = []int{0}
		dimensions = []string{
			string(axes.CoordX), string(axes.CoordY),
			string(axes.Round), string(axes.Ch),
			string(axes.X), string(axes.Y),
		}
	}

	joined, err := JoinAxesLabels(order, rounds, chs, zplanes)
	if err != nil {
		return nil, err
	}

	collection := sptx.NewCollection()
	for _, fov := range fovs {
		ts, err := sptx.NewTileSet(dimensions, shape, defaultShape, sptx.FormatPNG)
		if err != nil {
			return nil, err
		}
		for sel := range OrderedIterator(joined) {
			tile, err := fetchTile(fetcher, fov, sel, volumetric, defaultShape)
			if err != nil {
				return nil, err
			}
			if err := ts.AddTile(tile); err != nil {
				return nil, fmt.Errorf("experiment: %s in %s: %w", sel, FOVName(fov), err)
			}
		}
		if err := collection.AddPartition(FOVName(fov), ts); err != nil {
			return nil, err
		}
	}
	return collection, nil
}

func fetchTile(fetcher TileFetcher, fov int, sel axes.Selector, volumetric bool, defaultShape map[axes.Axis]int) (*sptx.Tile, error) {
	r, c, z := sel[axes.Round], sel[axes.Ch], sel[axes.ZPlane]
	fetched, err := fetcher.GetTile(fov, r, c, z)
	if err != nil {
		return nil, fmt.Errorf("experiment: fetching tile %s of %s: %w", sel, FOVName(fov), err)
	}

	indices := axes.Selector{axes.Round: r, axes.Ch: c}
	if volumetric {
		indices[axes.ZPlane] = z
	}
	shape := fetched.Shape()
	if shape == nil {
		shape = defaultShape
	}
	if shape == nil {
		return nil, fmt.Errorf("experiment: tile %s of %s has no shape and the build has no default", sel, FOVName(fov))
	}

	tile, err := sptx.NewTile(indices, fetched.Coordinates(), shape, fetched.Extras())
	if err != nil {
		return nil, fmt.Errorf("experiment: tile %s of %s: %w", sel, FOVName(fov), err)
	}
	data, err := fetched.Data()
	if err != nil {
		return nil, fmt.Errorf("experiment: reading tile %s of %s: %w", sel, FOVName(fov), err)
	}
	if err := tile.SetData(data); err != nil {
		return nil, fmt.Errorf("experiment: tile %s of %s: %w", sel, FOVName(fov), err)
	}
	if p, ok := fetched.(Provenancer); ok {
		tile.Provenance = p.Provenance()
	}
	return tile, nil
}
