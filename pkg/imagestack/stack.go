// Package imagestack holds the in-memory representation of a field of view:
// a dense float64 tensor with named axes and per-axis physical coordinates.
// All pixel data is stored row-major with the last axis varying fastest.
package imagestack

import (
	"fmt"
	"strings"

	"fishstack/pkg/axes"
)

// Stack is a labeled n-dimensional image tensor. A fully assembled field of
// view carries the five canonical axes (r, c, z, y, x); slicing and
// reduction produce stacks with fewer or singleton axes. The physical axes
// x, y and z each carry a coordinate array with one entry per plane.
type Stack struct {
	dims   []axes.Axis
	shape  []int
	data   []float64
	coords map[axes.Coord][]float64
}

// New builds a stack over the given dims and shape, taking ownership of
// data. Coordinate arrays may be supplied for the physical axes; any that
// are omitted default to 0..n-1. The dims must be unique, every shape entry
// must be positive, and len(data) must equal the product of the shape.
func New(dims []axes.Axis, shape []int, data []float64, coords map[axes.Coord][]float64) (*Stack, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("imagestack: %d dims but %d shape entries", len(dims), len(shape))
	}
	seen := make(map[axes.Axis]bool, len(dims))
	for i, d := range dims {
		if seen[d] {
			return nil, fmt.Errorf("imagestack: duplicate axis %q", d)
		}
		seen[d] = true
		if shape[i] < 1 {
			return nil, fmt.Errorf("imagestack: axis %q has non-positive size %d", d, shape[i])
		}
	}
	if n := product(shape); len(data) != n {
		return nil, fmt.Errorf("imagestack: data length %d does not match shape volume %d", len(data), n)
	}

	st := &Stack{
		dims:   append([]axes.Axis(nil), dims...),
		shape:  append([]int(nil), shape...),
		data:   data,
		coords: make(map[axes.Coord][]float64, 3),
	}
	for c, vals := range coords {
		a, ok := axes.AxisOf(c)
		if !ok {
			return nil, fmt.Errorf("imagestack: unknown coordinate %q", c)
		}
		idx := st.axisIndex(a)
		if idx < 0 {
			return nil, fmt.Errorf("imagestack: coordinate %q given but axis %q is not present", c, a)
		}
		if len(vals) != st.shape[idx] {
			return nil, fmt.Errorf("imagestack: coordinate %q has %d entries, axis %q has size %d",
				c, len(vals), a, st.shape[idx])
		}
		st.coords[c] = append([]float64(nil), vals...)
	}
	// Physical axes without an explicit coordinate get a default index ramp.
	for i, d := range st.dims {
		c, ok := axes.CoordOf(d)
		if !ok {
			continue
		}
		if _, have := st.coords[c]; have {
			continue
		}
		ramp := make([]float64, st.shape[i])
		for j := range ramp {
			ramp[j] = float64(j)
		}
		st.coords[c] = ramp
	}
	return st, nil
}

// newNoFill is the internal constructor used by operations that must control
// the coordinate map exactly, without the default ramp fill. Inputs are
// trusted and retained.
func newNoFill(dims []axes.Axis, shape []int, data []float64, coords map[axes.Coord][]float64) *Stack {
	if coords == nil {
		coords = make(map[axes.Coord][]float64)
	}
	return &Stack{dims: dims, shape: shape, data: data, coords: coords}
}

// Dims returns the axis order of the stack.
func (s *Stack) Dims() []axes.Axis {
	return append([]axes.Axis(nil), s.dims...)
}

// Shape returns the per-axis sizes, in dimension order.
func (s *Stack) Shape() []int {
	return append([]int(nil), s.shape...)
}

// Size returns the total number of pixels.
func (s *Stack) Size() int {
	return len(s.data)
}

// Data returns the live backing array in row-major order. Callers that need
// an independent copy should Clone the stack first.
func (s *Stack) Data() []float64 {
	return s.data
}

// HasAxis reports whether the stack carries the given axis.
func (s *Stack) HasAxis(a axes.Axis) bool {
	return s.axisIndex(a) >= 0
}

// AxisSize returns the size of the given axis.
func (s *Stack) AxisSize(a axes.Axis) (int, error) {
	idx := s.axisIndex(a)
	if idx < 0 {
		return 0, fmt.Errorf("imagestack: axis %q not present", a)
	}
	return s.shape[idx], nil
}

// Coords returns the coordinate array for a physical axis, or nil if the
// stack does not carry it. The returned slice is live; treat it as read-only.
func (s *Stack) Coords(c axes.Coord) []float64 {
	return s.coords[c]
}

// Clone returns a deep copy of the stack.
func (s *Stack) Clone() *Stack {
	coords := make(map[axes.Coord][]float64, len(s.coords))
	for c, vals := range s.coords {
		coords[c] = append([]float64(nil), vals...)
	}
	return newNoFill(
		append([]axes.Axis(nil), s.dims...),
		append([]int(nil), s.shape...),
		append([]float64(nil), s.data...),
		coords,
	)
}

// String renders the stack's dims and shape, e.g. "Stack(r=2 c=2 z=3 y=10 x=10)".
func (s *Stack) String() string {
	var b strings.Builder
	b.WriteString("Stack(")
	for i, d := range s.dims {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", d, s.shape[i])
	}
	b.WriteByte(')')
	return b.String()
}

func (s *Stack) axisIndex(a axes.Axis) int {
	for i, d := range s.dims {
		if d == a {
			return i
		}
	}
	return -1
}

// strides returns the row-major stride of every axis.
func (s *Stack) strides() []int {
	out := make([]int, len(s.shape))
	stride := 1
	for i := len(s.shape) - 1; i >= 0; i-- {
		out[i] = stride
		stride *= s.shape[i]
	}
	return out
}

func product(shape []int) int {
	n := 1
	for _, v := range shape {
		n *= v
	}
	return n
}
