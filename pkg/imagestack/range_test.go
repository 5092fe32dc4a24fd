package imagestack

import (
	"math"
	"testing"
)

func TestPreserveFloatRangeClamp(t *testing.T) {
	data := []float64{-0.5, 0.0, 0.25, 1.0, 1.75}
	got := PreserveFloatRange(data, false)
	want := []float64{0, 0, 0.25, 1.0, 1.0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("clamped data[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPreserveFloatRangeClampLeavesInRangeAlone(t *testing.T) {
	data := []float64{0.1, 0.5, 0.9}
	got := PreserveFloatRange(data, false)
	want := []float64{0.1, 0.5, 0.9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("in-range data[%d] changed to %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPreserveFloatRangeRescale(t *testing.T) {
	data := []float64{-1.0, 0.2, 0.4}
	got := PreserveFloatRange(data, true)
	want := []float64{0, 0.5, 1.0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("rescaled data[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if max := got[2]; max != 1.0 {
		t.Errorf("rescaled maximum = %v, want exactly 1", max)
	}
}

func TestPreserveFloatRangeRescalePreservesRatios(t *testing.T) {
	data := []float64{1.0, 2.0, 4.0}
	got := PreserveFloatRange(data, true)
	if math.Abs(got[1]/got[0]-2.0) > 1e-12 || math.Abs(got[2]/got[0]-4.0) > 1e-12 {
		t.Errorf("rescale did not preserve relative intensities: %v", got)
	}
}

func TestPreserveFloatRangeRescaleAllZero(t *testing.T) {
	data := []float64{0, 0, 0}
	got := PreserveFloatRange(data, true)
	for i, v := range got {
		if v != 0 {
			t.Errorf("all-zero input changed: data[%d] = %v", i, v)
		}
	}
}

func TestParseClipMethod(t *testing.T) {
	cases := []struct {
		in   string
		want ClipMethod
	}{
		{"clip", ClipClamp},
		{"scale_by_image", ClipScaleByImage},
	}
	for _, tc := range cases {
		got, err := ParseClipMethod(tc.in)
		if err != nil {
			t.Errorf("ParseClipMethod(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClipMethod(%q) = %v, want %v", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tc.in)
		}
	}

	if _, err := ParseClipMethod("truncate"); err == nil {
		t.Error("ParseClipMethod(\"truncate\") should have failed")
	}
}
