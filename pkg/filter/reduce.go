package filter

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"fishstack/pkg/axes"
	"fishstack/pkg/imagestack"
)

var (
	// ErrAxisNotInStack is returned when a reduction names an axis the input
	// stack does not carry.
	ErrAxisNotInStack = errors.New("filter: axis not present in stack")
	// ErrCoordinateConflict is returned when the intermediate reduction
	// unexpectedly carries a coordinate for a collapsed axis, which would
	// collide with the recomputed one.
	ErrCoordinateConflict = errors.New("filter: coordinate already present for collapsed axis")
)

// Reduce collapses one or more named axes of an image stack with an
// aggregation function drawn from a registered source, then restores the
// original dimension order with collapsed axes kept as singletons. A Reduce
// is immutable after construction and safe to reuse across stacks.
type Reduce struct {
	dims []axes.Axis
	fn   AggFunc
	clip imagestack.ClipMethod
}

// NewReduce resolves funcName in source and builds the reduction over dims.
// Resolution failures surface here, before any stack is processed.
// Duplicate axes in dims collapse to one.
func NewReduce(dims []axes.Axis, funcName string, source FunctionSource, clip imagestack.ClipMethod) (*Reduce, error) {
	fn, err := Resolve(source, funcName)
	if err != nil {
		return nil, err
	}
	seen := make(map[axes.Axis]bool, len(dims))
	unique := make([]axes.Axis, 0, len(dims))
	for _, a := range dims {
		if seen[a] {
			continue
		}
		seen[a] = true
		unique = append(unique, a)
	}
	return &Reduce{dims: unique, fn: fn, clip: clip}, nil
}

// Dims returns the axes the reduction collapses.
func (r *Reduce) Dims() []axes.Axis {
	return append([]axes.Axis(nil), r.dims...)
}

// Run reduces st and returns a brand-new stack; the input is never mutated.
// The result has the same dimension order as the input with every collapsed
// axis kept as size 1. Pixel values are normalized back into [0, 1] under
// the configured clip method, and each collapsed physical axis gets a single
// representative coordinate: the mean of the input's coordinate array.
func (r *Reduce) Run(st *imagestack.Stack) (*imagestack.Stack, error) {
	for _, a := range r.dims {
		if !st.HasAxis(a) {
			return nil, fmt.Errorf("%w: %q in %s", ErrAxisNotInStack, a, st)
		}
	}

	reduced, err := st.ReduceAxes(r.fn, r.dims)
	if err != nil {
		return nil, err
	}

	imagestack.PreserveFloatRange(reduced.Data(), r.clip == imagestack.ClipScaleByImage)

	collapsed := make(map[axes.Axis]bool, len(r.dims))
	for _, a := range r.dims {
		collapsed[a] = true
	}

	coords := make(map[axes.Coord][]float64)
	pairs := []struct {
		axis  axes.Axis
		coord axes.Coord
	}{
		{axes.X, axes.CoordX},
		{axes.Y, axes.CoordY},
		{axes.ZPlane, axes.CoordZ},
	}
	for _, p := range pairs {
		if !st.HasAxis(p.axis) {
			continue
		}
		if collapsed[p.axis] {
			if reduced.Coords(p.coord) != nil {
				return nil, fmt.Errorf("%w: %s", ErrCoordinateConflict, p.coord)
			}
			coords[p.coord] = []float64{stat.Mean(st.Coords(p.coord), nil)}
		} else {
			coords[p.coord] = reduced.Coords(p.coord)
		}
	}

	return imagestack.New(reduced.Dims(), reduced.Shape(), reduced.Data(), coords)
}
