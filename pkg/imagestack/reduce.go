package imagestack

import (
	"errors"
	"fmt"

	"fishstack/pkg/axes"
)

// ReduceAxes collapses the given axes to size 1, aggregating each fiber of
// values along the collapsed axes with agg. The dimension order of the
// result is identical to the receiver's; collapsed axes stay in place as
// singletons. Coordinates of surviving axes are carried over unchanged,
// while collapsed physical axes lose their coordinate array entirely —
// recomputing a representative coordinate is the caller's concern.
//
// Reducing over zero axes returns an unmodified deep copy. The receiver is
// never mutated.
func (s *Stack) ReduceAxes(agg func([]float64) float64, over []axes.Axis) (*Stack, error) {
	if agg == nil {
		return nil, errors.New("imagestack: nil aggregation function")
	}
	collapse := make(map[axes.Axis]bool, len(over))
	for _, a := range over {
		if s.axisIndex(a) < 0 {
			return nil, fmt.Errorf("imagestack: cannot reduce over absent axis %q", a)
		}
		collapse[a] = true
	}
	if len(collapse) == 0 {
		return s.Clone(), nil
	}

	outShape := append([]int(nil), s.shape...)
	var collapsedIdx, keptIdx []int
	for i, d := range s.dims {
		if collapse[d] {
			outShape[i] = 1
			collapsedIdx = append(collapsedIdx, i)
		} else {
			keptIdx = append(keptIdx, i)
		}
	}

	strides := s.strides()
	colShape := make([]int, len(collapsedIdx))
	fiberLen := 1
	for j, i := range collapsedIdx {
		colShape[j] = s.shape[i]
		fiberLen *= s.shape[i]
	}

	outData := make([]float64, product(outShape))
	fiber := make([]float64, fiberLen)
	outIdx := make([]int, len(outShape))
	colIdx := make([]int, len(collapsedIdx))
	for o := range outData {
		base := 0
		for _, i := range keptIdx {
			base += outIdx[i] * strides[i]
		}
		for j := range colIdx {
			colIdx[j] = 0
		}
		for f := 0; f < fiberLen; f++ {
			off := base
			for j, i := range collapsedIdx {
				off += colIdx[j] * strides[i]
			}
			fiber[f] = s.data[off]
			increment(colIdx, colShape)
		}
		outData[o] = agg(fiber)
		increment(outIdx, outShape)
	}

	coords := make(map[axes.Coord][]float64)
	for c, vals := range s.coords {
		if a, _ := axes.AxisOf(c); collapse[a] {
			continue
		}
		coords[c] = append([]float64(nil), vals...)
	}
	return newNoFill(append([]axes.Axis(nil), s.dims...), outShape, outData, coords), nil
}
