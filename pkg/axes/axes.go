// Package axes defines the labeled dimensions of a spatial imaging
// experiment: the index axes that address tiles (imaging round, channel,
// z-plane and the in-plane pixel axes) and the physical coordinate axes
// that locate those tiles in space.
package axes

import (
	"fmt"
	"strings"
)

// Axis is one of the closed set of index axes an image stack can carry.
// The string values are the dimension names used in tile set manifests.
type Axis string

const (
	// Round is the imaging round (hybridization) axis.
	Round Axis = "r"
	// Ch is the fluorescence channel axis.
	Ch Axis = "c"
	// ZPlane is the focal plane axis.
	ZPlane Axis = "z"
	// Y is the in-plane row axis.
	Y Axis = "y"
	// X is the in-plane column axis.
	X Axis = "x"
)

// DefaultDimensionOrder is the axis priority used when enumerating tiles
// for a build: the z-plane varies slowest and the channel fastest.
var DefaultDimensionOrder = []Axis{ZPlane, Round, Ch}

// StackOrder is the canonical dimension order of an assembled image stack.
var StackOrder = []Axis{Round, Ch, ZPlane, Y, X}

// ParseAxis maps a dimension name from a manifest or CLI flag to its Axis.
func ParseAxis(s string) (Axis, error) {
	switch a := Axis(s); a {
	case Round, Ch, ZPlane, Y, X:
		return a, nil
	}
	return "", fmt.Errorf("axes: unknown axis %q", s)
}

func (a Axis) String() string {
	return string(a)
}

// Coord is a physical coordinate axis. The string values are the coordinate
// names used in tile set manifests.
type Coord string

const (
	// CoordX is the physical coordinate along Axis X, in experiment units.
	CoordX Coord = "xc"
	// CoordY is the physical coordinate along Axis Y.
	CoordY Coord = "yc"
	// CoordZ is the physical coordinate along Axis ZPlane.
	CoordZ Coord = "zc"
)

// ParseCoord maps a coordinate name to its Coord.
func ParseCoord(s string) (Coord, error) {
	switch c := Coord(s); c {
	case CoordX, CoordY, CoordZ:
		return c, nil
	}
	return "", fmt.Errorf("axes: unknown coordinate %q", s)
}

func (c Coord) String() string {
	return string(c)
}

// CoordOf returns the physical coordinate paired with an index axis.
// Round and Ch are pure index axes and have no physical pairing.
func CoordOf(a Axis) (Coord, bool) {
	switch a {
	case X:
		return CoordX, true
	case Y:
		return CoordY, true
	case ZPlane:
		return CoordZ, true
	}
	return "", false
}

// AxisOf is the inverse of CoordOf.
func AxisOf(c Coord) (Axis, bool) {
	switch c {
	case CoordX:
		return X, true
	case CoordY:
		return Y, true
	case CoordZ:
		return ZPlane, true
	}
	return "", false
}

// Selector addresses a single position in index space: one integer label per
// axis. Selectors yielded by iterators are fresh copies, so callers may
// retain them.
type Selector map[Axis]int

// Clone returns an independent copy of the selector.
func (s Selector) Clone() Selector {
	out := make(Selector, len(s))
	for a, v := range s {
		out[a] = v
	}
	return out
}

// String renders the selector in canonical stack order, e.g. "r=0 c=1 z=2".
func (s Selector) String() string {
	var b strings.Builder
	for _, a := range StackOrder {
		v, ok := s[a]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", a, v)
	}
	return b.String()
}
