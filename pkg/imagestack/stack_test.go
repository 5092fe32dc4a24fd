package imagestack

import (
	"testing"

	"fishstack/pkg/axes"
)

// newTestStack builds a stack with default coordinates, failing the test on
// any constructor error.
func newTestStack(t *testing.T, dims []axes.Axis, shape []int, data []float64) *Stack {
	t.Helper()
	st, err := New(dims, shape, data, nil)
	if err != nil {
		t.Fatalf("New(%v, %v) failed: %v", dims, shape, err)
	}
	return st
}

// ramp returns [0, 1, ..., n-1] as float64s.
func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		dims   []axes.Axis
		shape  []int
		data   []float64
		coords map[axes.Coord][]float64
	}{
		{
			name:  "dims and shape length mismatch",
			dims:  []axes.Axis{axes.Y, axes.X},
			shape: []int{2},
			data:  ramp(2),
		},
		{
			name:  "duplicate axis",
			dims:  []axes.Axis{axes.Y, axes.Y},
			shape: []int{2, 2},
			data:  ramp(4),
		},
		{
			name:  "zero-sized axis",
			dims:  []axes.Axis{axes.Y, axes.X},
			shape: []int{0, 2},
			data:  nil,
		},
		{
			name:  "data length mismatch",
			dims:  []axes.Axis{axes.Y, axes.X},
			shape: []int{2, 2},
			data:  ramp(3),
		},
		{
			name:   "coordinate length mismatch",
			dims:   []axes.Axis{axes.Y, axes.X},
			shape:  []int{2, 2},
			data:   ramp(4),
			coords: map[axes.Coord][]float64{axes.CoordX: {0.0}},
		},
		{
			name:   "coordinate for absent axis",
			dims:   []axes.Axis{axes.Y, axes.X},
			shape:  []int{2, 2},
			data:   ramp(4),
			coords: map[axes.Coord][]float64{axes.CoordZ: {0.0}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.dims, tc.shape, tc.data, tc.coords); err == nil {
				t.Errorf("New should have failed for %s", tc.name)
			}
		})
	}
}

func TestNewDefaultCoordinates(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.ZPlane, axes.Y, axes.X}, []int{3, 2, 2}, ramp(12))

	zc := st.Coords(axes.CoordZ)
	if len(zc) != 3 {
		t.Fatalf("default zc has %d entries, want 3", len(zc))
	}
	for i, v := range zc {
		if v != float64(i) {
			t.Errorf("default zc[%d] = %v, want %v", i, v, float64(i))
		}
	}
	if st.Coords(axes.CoordY) == nil || st.Coords(axes.CoordX) == nil {
		t.Error("default yc/xc coordinates were not filled in")
	}
}

func TestNewExplicitCoordinates(t *testing.T) {
	coords := map[axes.Coord][]float64{
		axes.CoordZ: {1.5, 2.5},
	}
	st, err := New([]axes.Axis{axes.ZPlane, axes.Y, axes.X}, []int{2, 2, 2}, ramp(8), coords)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	zc := st.Coords(axes.CoordZ)
	if zc[0] != 1.5 || zc[1] != 2.5 {
		t.Errorf("explicit zc not preserved: got %v", zc)
	}
	// The stack must own an independent copy.
	coords[axes.CoordZ][0] = 99
	if st.Coords(axes.CoordZ)[0] != 1.5 {
		t.Error("stack aliases the caller's coordinate slice")
	}
}

func TestAt(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Round, axes.Y, axes.X}, []int{2, 2, 3}, ramp(12))

	cases := []struct {
		sel  axes.Selector
		want float64
	}{
		{axes.Selector{axes.Round: 0, axes.Y: 0, axes.X: 0}, 0},
		{axes.Selector{axes.Round: 0, axes.Y: 1, axes.X: 2}, 5},
		{axes.Selector{axes.Round: 1, axes.Y: 0, axes.X: 1}, 7},
		{axes.Selector{axes.Round: 1, axes.Y: 1, axes.X: 2}, 11},
	}
	for _, tc := range cases {
		got, err := st.At(tc.sel)
		if err != nil {
			t.Errorf("At(%v) failed: %v", tc.sel, err)
			continue
		}
		if got != tc.want {
			t.Errorf("At(%v) = %v, want %v", tc.sel, got, tc.want)
		}
	}

	if _, err := st.At(axes.Selector{axes.Round: 0}); err == nil {
		t.Error("At with a partial selector should fail")
	}
	if _, err := st.At(axes.Selector{axes.Round: 5, axes.Y: 0, axes.X: 0}); err == nil {
		t.Error("At with an out-of-range index should fail")
	}
}

func TestGetSlice(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Round, axes.Y, axes.X}, []int{2, 2, 2}, ramp(8))

	sub, err := st.GetSlice(axes.Selector{axes.Round: 1})
	if err != nil {
		t.Fatalf("GetSlice failed: %v", err)
	}

	wantDims := []axes.Axis{axes.Y, axes.X}
	gotDims := sub.Dims()
	if len(gotDims) != len(wantDims) {
		t.Fatalf("slice dims = %v, want %v", gotDims, wantDims)
	}
	for i := range wantDims {
		if gotDims[i] != wantDims[i] {
			t.Fatalf("slice dims = %v, want %v", gotDims, wantDims)
		}
	}
	want := []float64{4, 5, 6, 7}
	for i, v := range sub.Data() {
		if v != want[i] {
			t.Errorf("slice data[%d] = %v, want %v", i, v, want[i])
		}
	}
	if sub.Coords(axes.CoordY) == nil || sub.Coords(axes.CoordX) == nil {
		t.Error("slice lost the coordinates of its surviving axes")
	}

	if _, err := st.GetSlice(axes.Selector{axes.ZPlane: 0}); err == nil {
		t.Error("GetSlice on an absent axis should fail")
	}
	if _, err := st.GetSlice(axes.Selector{axes.Round: 2}); err == nil {
		t.Error("GetSlice with an out-of-range index should fail")
	}
}

func TestSetSliceRoundTrip(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Round, axes.Y, axes.X}, []int{2, 2, 2}, make([]float64, 8))

	plane := newTestStack(t, []axes.Axis{axes.Y, axes.X}, []int{2, 2}, []float64{1, 2, 3, 4})
	if err := st.SetSlice(axes.Selector{axes.Round: 1}, plane); err != nil {
		t.Fatalf("SetSlice failed: %v", err)
	}

	back, err := st.GetSlice(axes.Selector{axes.Round: 1})
	if err != nil {
		t.Fatalf("GetSlice failed: %v", err)
	}
	for i, v := range back.Data() {
		if v != plane.Data()[i] {
			t.Errorf("round-tripped data[%d] = %v, want %v", i, v, plane.Data()[i])
		}
	}

	// The untouched partition must still be zero.
	other, _ := st.GetSlice(axes.Selector{axes.Round: 0})
	for i, v := range other.Data() {
		if v != 0 {
			t.Errorf("untouched slice data[%d] = %v, want 0", i, v)
		}
	}
}

func TestSetSliceShapeMismatch(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Round, axes.Y, axes.X}, []int{2, 2, 2}, make([]float64, 8))
	wrong := newTestStack(t, []axes.Axis{axes.Y, axes.X}, []int{2, 3}, make([]float64, 6))
	if err := st.SetSlice(axes.Selector{axes.Round: 0}, wrong); err == nil {
		t.Error("SetSlice with a mismatched sub-stack should fail")
	}
}

func TestIterAxesOrder(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Round, axes.Ch, axes.Y, axes.X}, []int{2, 2, 1, 1}, make([]float64, 4))

	var got []axes.Selector
	for sel := range st.IterAxes([]axes.Axis{axes.Round, axes.Ch}) {
		got = append(got, sel)
	}

	want := []axes.Selector{
		{axes.Round: 0, axes.Ch: 0},
		{axes.Round: 0, axes.Ch: 1},
		{axes.Round: 1, axes.Ch: 0},
		{axes.Round: 1, axes.Ch: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("IterAxes yielded %d selectors, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i][axes.Round] != want[i][axes.Round] || got[i][axes.Ch] != want[i][axes.Ch] {
			t.Errorf("selector %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIterAxesEmpty(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Y, axes.X}, []int{2, 2}, make([]float64, 4))
	count := 0
	for sel := range st.IterAxes(nil) {
		if len(sel) != 0 {
			t.Errorf("empty iteration yielded a non-empty selector: %v", sel)
		}
		count++
	}
	if count != 1 {
		t.Errorf("iterating zero axes yielded %d selectors, want 1", count)
	}
}

func TestCloneIndependence(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Y, axes.X}, []int{2, 2}, ramp(4))
	dup := st.Clone()
	dup.Data()[0] = 42
	if st.Data()[0] != 0 {
		t.Errorf("mutating a clone changed the original: got %v, want 0", st.Data()[0])
	}
	dup.Coords(axes.CoordY)[0] = 42
	if st.Coords(axes.CoordY)[0] != 0 {
		t.Error("clone aliases the original's coordinates")
	}
}

func TestStackString(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.Round, axes.Ch, axes.ZPlane, axes.Y, axes.X},
		[]int{2, 2, 3, 10, 10}, make([]float64, 1200))
	if got, want := st.String(), "Stack(r=2 c=2 z=3 y=10 x=10)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAxisSize(t *testing.T) {
	st := newTestStack(t, []axes.Axis{axes.ZPlane, axes.Y, axes.X}, []int{3, 4, 5}, make([]float64, 60))
	n, err := st.AxisSize(axes.ZPlane)
	if err != nil || n != 3 {
		t.Errorf("AxisSize(z) = (%d, %v), want (3, nil)", n, err)
	}
	if _, err := st.AxisSize(axes.Round); err == nil {
		t.Error("AxisSize on an absent axis should fail")
	}
	if st.Size() != 60 {
		t.Errorf("Size() = %d, want 60", st.Size())
	}
}
