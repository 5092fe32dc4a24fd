package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"fishstack/pkg/axes"
	"fishstack/pkg/imagestack"
	"fishstack/pkg/sptx"
)

// StackFromTileSet assembles a complete tile set into a dense image stack
// with canonical dimension order (r, c, z, y, x), or (r, c, y, x) for
// planar sets. Physical coordinates come from the tile manifests: per-pixel
// positions interpolate the shared xc/yc ranges, and each z-plane takes the
// midpoint of its zc range. Tiles must agree on pixel shape and in-plane
// coordinate ranges.
func StackFromTileSet(ts *sptx.TileSet) (*imagestack.Stack, error) {
	if err := ts.Complete(); err != nil {
		return nil, err
	}
	tiles := ts.Tiles()
	rounds := ts.Shape[axes.Round]
	chs := ts.Shape[axes.Ch]
	zCount, volumetric := ts.Shape[axes.ZPlane]
	if !volumetric {
		zCount = 1
	}

	width, height, err := ts.TileShape(tiles[0])
	if err != nil {
		return nil, err
	}
	planeSize := width * height
	data := make([]float64, rounds*chs*zCount*planeSize)

	xRange := tiles[0].Coordinates[axes.CoordX]
	yRange := tiles[0].Coordinates[axes.CoordY]
	zRanges := make([]sptx.CoordRange, zCount)
	zSeen := make([]bool, zCount)

	for _, t := range tiles {
		w, h, err := ts.TileShape(t)
		if err != nil {
			return nil, err
		}
		if w != width || h != height {
			return nil, fmt.Errorf("experiment: tile %s is %dx%d but the set started with %dx%d",
				t.Indices, w, h, width, height)
		}
		if t.Data() == nil {
			return nil, fmt.Errorf("experiment: tile %s has no pixel data", t.Indices)
		}
		if xr := t.Coordinates[axes.CoordX]; xr != xRange {
			return nil, fmt.Errorf("experiment: tile %s has xc %v, other tiles have %v", t.Indices, xr, xRange)
		}
		if yr := t.Coordinates[axes.CoordY]; yr != yRange {
			return nil, fmt.Errorf("experiment: tile %s has yc %v, other tiles have %v", t.Indices, yr, yRange)
		}

		r, c, z := t.Indices[axes.Round], t.Indices[axes.Ch], t.Indices[axes.ZPlane]
		if volumetric {
			zr, ok := t.Coordinates[axes.CoordZ]
			if !ok {
				return nil, fmt.Errorf("experiment: tile %s is missing its zc range", t.Indices)
			}
			if zSeen[z] && zr != zRanges[z] {
				return nil, fmt.Errorf("experiment: tiles at z=%d disagree on zc: %v vs %v", z, zr, zRanges[z])
			}
			zRanges[z] = zr
			zSeen[z] = true
		}
		base := ((r*chs+c)*zCount + z) * planeSize
		copy(data[base:base+planeSize], t.Data())
	}

	var dims []axes.Axis
	var shape []int
	if volumetric {
		dims = []axes.Axis{axes.Round, axes.Ch, axes.ZPlane, axes.Y, axes.X}
		shape = []int{rounds, chs, zCount, height, width}
	} else {
		dims = []axes.Axis{axes.Round, axes.Ch, axes.Y, axes.X}
		shape = []int{rounds, chs, height, width}
	}

	coords := map[axes.Coord][]float64{
		axes.CoordX: coordSpan(xRange.Min, xRange.Max, width),
		axes.CoordY: coordSpan(yRange.Min, yRange.Max, height),
	}
	if volumetric {
		zc := make([]float64, zCount)
		for i, zr := range zRanges {
			zc[i] = zr.Mid()
		}
		coords[axes.CoordZ] = zc
	}
	return imagestack.New(dims, shape, data, coords)
}

// CollectionFromStack is the inverse of StackFromTileSet: it splits a stack
// back into one tile per (r, c, z) under a single partition, so processed
// stacks can be written in the same format they were read from. Collapsed
// or planar z is handled naturally; each tile's coordinate ranges span the
// stack's coordinate arrays, with z-planes written as point ranges.
func CollectionFromStack(partition string, st *imagestack.Stack, format sptx.ImageFormat) (*sptx.Collection, error) {
	for _, a := range []axes.Axis{axes.Round, axes.Ch, axes.Y, axes.X} {
		if !st.HasAxis(a) {
			return nil, fmt.Errorf("experiment: stack %s is missing axis %q", st, a)
		}
	}
	rounds, _ := st.AxisSize(axes.Round)
	chs, _ := st.AxisSize(axes.Ch)
	width, _ := st.AxisSize(axes.X)
	height, _ := st.AxisSize(axes.Y)
	volumetric := st.HasAxis(axes.ZPlane)

	shape := map[axes.Axis]int{axes.Round: rounds, axes.Ch: chs}
	outer := []axes.Axis{axes.Round, axes.Ch}
	var dimensions []string
	if volumetric {
		z, _ := st.AxisSize(axes.ZPlane)
		shape[axes.ZPlane] = z
		outer = append(outer, axes.ZPlane)
		dimensions = []string{
			string(axes.CoordX), string(axes.CoordY), string(axes.CoordZ),
			string(axes.ZPlane), string(axes.Round), string(axes.Ch),
			string(axes.X), string(axes.Y),
		}
	} else {
		dimensions = []string{
			string(axes.CoordX), string(axes.CoordY),
			string(axes.Round), string(axes.Ch),
			string(axes.X), string(axes.Y),
		}
	}

	xc := st.Coords(axes.CoordX)
	yc := st.Coords(axes.CoordY)
	baseCoords := map[axes.Coord]sptx.CoordRange{
		axes.CoordX: {Min: xc[0], Max: xc[len(xc)-1]},
		axes.CoordY: {Min: yc[0], Max: yc[len(yc)-1]},
	}
	zc := st.Coords(axes.CoordZ)

	ts, err := sptx.NewTileSet(dimensions, shape, map[axes.Axis]int{axes.Y: height, axes.X: width}, format)
	if err != nil {
		return nil, err
	}
	for sel := range st.IterAxes(outer) {
		plane, err := st.GetSlice(sel)
		if err != nil {
			return nil, err
		}
		coords := map[axes.Coord]sptx.CoordRange{
			axes.CoordX: baseCoords[axes.CoordX],
			axes.CoordY: baseCoords[axes.CoordY],
		}
		if volumetric {
			v := zc[sel[axes.ZPlane]]
			coords[axes.CoordZ] = sptx.CoordRange{Min: v, Max: v}
		}
		tile, err := sptx.NewTile(sel, coords, map[axes.Axis]int{axes.Y: height, axes.X: width}, nil)
		if err != nil {
			return nil, err
		}
		if err := tile.SetData(plane.Data()); err != nil {
			return nil, err
		}
		if err := ts.AddTile(tile); err != nil {
			return nil, err
		}
	}

	c := sptx.NewCollection()
	if err := c.AddPartition(partition, ts); err != nil {
		return nil, err
	}
	return c, nil
}

// coordSpan interpolates n per-pixel positions across a physical range,
// endpoints inclusive.
func coordSpan(min, max float64, n int) []float64 {
	if n == 1 {
		return []float64{min}
	}
	return floats.Span(make([]float64, n), min, max)
}
