package imagestack

import (
	"fmt"
	"iter"

	"fishstack/pkg/axes"
)

// At returns the value at a fully specified position. The selector must
// carry every axis of the stack.
func (s *Stack) At(sel axes.Selector) (float64, error) {
	if len(sel) != len(s.dims) {
		return 0, fmt.Errorf("imagestack: selector %v does not address every axis of %s", sel, s)
	}
	flat, err := s.flatIndex(sel)
	if err != nil {
		return 0, err
	}
	return s.data[flat], nil
}

// GetSlice fixes the axes named by sel and returns the sub-stack over the
// remaining axes, preserving their order and coordinates. The result owns
// its own data.
func (s *Stack) GetSlice(sel axes.Selector) (*Stack, error) {
	fixed := make([]int, len(s.dims))
	isFixed := make([]bool, len(s.dims))
	for a, v := range sel {
		idx := s.axisIndex(a)
		if idx < 0 {
			return nil, fmt.Errorf("imagestack: cannot slice on absent axis %q", a)
		}
		if v < 0 || v >= s.shape[idx] {
			return nil, fmt.Errorf("imagestack: index %d out of range for axis %q (size %d)", v, a, s.shape[idx])
		}
		fixed[idx] = v
		isFixed[idx] = true
	}

	var outDims []axes.Axis
	var outShape []int
	var freeIdx []int
	for i, d := range s.dims {
		if isFixed[i] {
			continue
		}
		outDims = append(outDims, d)
		outShape = append(outShape, s.shape[i])
		freeIdx = append(freeIdx, i)
	}

	strides := s.strides()
	base := 0
	for i, v := range fixed {
		if isFixed[i] {
			base += v * strides[i]
		}
	}

	outData := make([]float64, product(outShape))
	outIdx := make([]int, len(outShape))
	for o := range outData {
		off := base
		for j, i := range freeIdx {
			off += outIdx[j] * strides[i]
		}
		outData[o] = s.data[off]
		increment(outIdx, outShape)
	}

	coords := make(map[axes.Coord][]float64)
	for _, d := range outDims {
		c, ok := axes.CoordOf(d)
		if !ok {
			continue
		}
		if vals := s.coords[c]; vals != nil {
			coords[c] = append([]float64(nil), vals...)
		}
	}
	return newNoFill(outDims, outShape, outData, coords), nil
}

// SetSlice writes sub into the positions addressed by sel, mutating the
// receiver. The sub-stack's dims must equal the receiver's remaining axes in
// the same order.
func (s *Stack) SetSlice(sel axes.Selector, sub *Stack) error {
	fixed := make([]int, len(s.dims))
	isFixed := make([]bool, len(s.dims))
	for a, v := range sel {
		idx := s.axisIndex(a)
		if idx < 0 {
			return fmt.Errorf("imagestack: cannot slice on absent axis %q", a)
		}
		if v < 0 || v >= s.shape[idx] {
			return fmt.Errorf("imagestack: index %d out of range for axis %q (size %d)", v, a, s.shape[idx])
		}
		fixed[idx] = v
		isFixed[idx] = true
	}

	var freeIdx []int
	var wantDims []axes.Axis
	var wantShape []int
	for i, d := range s.dims {
		if isFixed[i] {
			continue
		}
		freeIdx = append(freeIdx, i)
		wantDims = append(wantDims, d)
		wantShape = append(wantShape, s.shape[i])
	}
	if len(sub.dims) != len(wantDims) {
		return fmt.Errorf("imagestack: sub-stack %s does not match remaining axes %v", sub, wantDims)
	}
	for i, d := range wantDims {
		if sub.dims[i] != d || sub.shape[i] != wantShape[i] {
			return fmt.Errorf("imagestack: sub-stack %s does not match remaining axes %v %v", sub, wantDims, wantShape)
		}
	}

	strides := s.strides()
	base := 0
	for i, v := range fixed {
		if isFixed[i] {
			base += v * strides[i]
		}
	}
	subIdx := make([]int, len(wantShape))
	for o := range sub.data {
		off := base
		for j, i := range freeIdx {
			off += subIdx[j] * strides[i]
		}
		s.data[off] = sub.data[o]
		increment(subIdx, wantShape)
	}
	return nil
}

// IterAxes yields one selector per combination of labels of the given axes,
// in row-major order with the last axis varying fastest. Iterating zero axes
// yields a single empty selector. Each yielded selector is a fresh copy.
func (s *Stack) IterAxes(over []axes.Axis) iter.Seq[axes.Selector] {
	return func(yield func(axes.Selector) bool) {
		sizes := make([]int, len(over))
		for i, a := range over {
			idx := s.axisIndex(a)
			if idx < 0 {
				panic(fmt.Sprintf("imagestack: IterAxes over absent axis %q", a))
			}
			sizes[i] = s.shape[idx]
		}
		idx := make([]int, len(over))
		for {
			sel := make(axes.Selector, len(over))
			for i, a := range over {
				sel[a] = idx[i]
			}
			if !yield(sel) {
				return
			}
			if !increment(idx, sizes) {
				return
			}
		}
	}
}

func (s *Stack) flatIndex(sel axes.Selector) (int, error) {
	strides := s.strides()
	flat := 0
	for a, v := range sel {
		idx := s.axisIndex(a)
		if idx < 0 {
			return 0, fmt.Errorf("imagestack: axis %q not present", a)
		}
		if v < 0 || v >= s.shape[idx] {
			return 0, fmt.Errorf("imagestack: index %d out of range for axis %q (size %d)", v, a, s.shape[idx])
		}
		flat += v * strides[idx]
	}
	return flat, nil
}

// increment advances idx through shape in row-major order. It reports false
// once the index wraps back to all zeros.
func increment(idx, shape []int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return true
		}
		idx[i] = 0
	}
	return false
}
