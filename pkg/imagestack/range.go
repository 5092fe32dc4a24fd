package imagestack

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ClipMethod selects how pixel values are forced back into the unit range
// after an operation that may push them outside it.
type ClipMethod int

const (
	// ClipClamp clamps values below 0 to 0 and above 1 to 1.
	ClipClamp ClipMethod = iota
	// ClipScaleByImage clamps negatives to 0, then divides every value by
	// the global maximum so the brightest pixel lands exactly on 1.
	ClipScaleByImage
)

// ErrUnknownClipMethod is returned when a clip method name cannot be parsed.
var ErrUnknownClipMethod = errors.New("imagestack: unknown clip method")

// ParseClipMethod maps a manifest or CLI name to its ClipMethod.
func ParseClipMethod(s string) (ClipMethod, error) {
	switch s {
	case "clip":
		return ClipClamp, nil
	case "scale_by_image":
		return ClipScaleByImage, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClipMethod, s)
}

func (m ClipMethod) String() string {
	switch m {
	case ClipClamp:
		return "clip"
	case ClipScaleByImage:
		return "scale_by_image"
	}
	return fmt.Sprintf("ClipMethod(%d)", int(m))
}

// PreserveFloatRange forces data into [0, 1] in place and returns it.
// Negative values always clamp to 0. With rescale false, values above 1
// clamp to 1; with rescale true, all values are divided by the global
// maximum instead, so relative intensities survive. Values already inside
// the unit range are untouched when no rescale applies.
func PreserveFloatRange(data []float64, rescale bool) []float64 {
	if len(data) == 0 {
		return data
	}
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	max := floats.Max(data)
	if rescale {
		if max > 0 {
			floats.Scale(1/max, data)
		}
		return data
	}
	if max > 1 {
		for i, v := range data {
			if v > 1 {
				data[i] = 1
			}
		}
	}
	return data
}
