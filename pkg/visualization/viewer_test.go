package visualization

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"fishstack/pkg/axes"
	"fishstack/pkg/imagestack"
)

// planeStack builds a (r, c, z, y, x) stack where every plane holds a value
// unique to its (r, c, z) position.
func planeStack(t *testing.T, rounds, chs, zplanes, height, width int) *imagestack.Stack {
	t.Helper()
	dims := []axes.Axis{axes.Round, axes.Ch, axes.ZPlane, axes.Y, axes.X}
	shape := []int{rounds, chs, zplanes, height, width}
	data := make([]float64, rounds*chs*zplanes*height*width)
	plane := height * width
	for i := range data {
		planeIdx := i / plane
		data[i] = float64(planeIdx) / float64(rounds*chs*zplanes)
	}
	st, err := imagestack.New(dims, shape, data, nil)
	if err != nil {
		t.Fatalf("failed to build stack: %v", err)
	}
	return st
}

// TestRenderPlane verifies that planes render to 16-bit grayscale with the
// expected intensities.
func TestRenderPlane(t *testing.T) {
	st := planeStack(t, 2, 2, 3, 5, 4)
	viewer := NewViewer(st)

	sel := axes.Selector{axes.Round: 1, axes.Ch: 0, axes.ZPlane: 2}
	img, err := viewer.RenderPlane(sel)
	if err != nil {
		t.Fatalf("failed to render plane: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 4 || bounds.Dy() != 5 {
		t.Errorf("expected 4x5 plane, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("expected *image.Gray16, got %T", img)
	}

	// Plane (r=1, c=0, z=2) is the 9th of 12; every pixel holds 8/12.
	want, err := st.At(axes.Selector{axes.Round: 1, axes.Ch: 0, axes.ZPlane: 2, axes.Y: 0, axes.X: 0})
	if err != nil {
		t.Fatal(err)
	}
	expected := uint16(math.Max(0, math.Min(65535, want*65535)))
	got := gray.Gray16At(2, 3).Y
	if math.Abs(float64(got)-float64(expected)) > 1 {
		t.Errorf("expected pixel value ~%d, got %d", expected, got)
	}
}

// TestRenderPlaneClamps verifies that out-of-range values clamp instead of
// wrapping.
func TestRenderPlaneClamps(t *testing.T) {
	dims := []axes.Axis{axes.Y, axes.X}
	st, err := imagestack.New(dims, []int{1, 2}, []float64{-0.5, 1.5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	img, err := NewViewer(st).RenderPlane(axes.Selector{})
	if err != nil {
		t.Fatalf("failed to render plane: %v", err)
	}
	gray := img.(*image.Gray16)
	if got := gray.Gray16At(0, 0).Y; got != 0 {
		t.Errorf("expected negative value to clamp to 0, got %d", got)
	}
	if got := gray.Gray16At(1, 0).Y; got != 65535 {
		t.Errorf("expected overrange value to clamp to 65535, got %d", got)
	}
}

// TestRenderPlaneValidation verifies that under-specified selectors are
// rejected.
func TestRenderPlaneValidation(t *testing.T) {
	st := planeStack(t, 2, 2, 3, 5, 4)
	viewer := NewViewer(st)

	// Leaving z unpinned does not select a single (y, x) plane.
	_, err := viewer.RenderPlane(axes.Selector{axes.Round: 0, axes.Ch: 0})
	if err == nil {
		t.Error("expected error for an under-specified selector, got nil")
	}

	// Out-of-range positions are rejected by the slicing layer.
	_, err = viewer.RenderPlane(axes.Selector{axes.Round: 5, axes.Ch: 0, axes.ZPlane: 0})
	if err == nil {
		t.Error("expected error for out-of-range selector, got nil")
	}
}

// TestSavePlaneSequence verifies that every plane lands on disk with its
// position-derived name.
func TestSavePlaneSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "viewer-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	st := planeStack(t, 2, 1, 2, 3, 3)
	viewer := NewViewer(st)

	outputDir := filepath.Join(tempDir, "planes")
	if err := viewer.SavePlaneSequence(outputDir); err != nil {
		t.Fatalf("Failed to save plane sequence: %v", err)
	}

	expected := []string{
		"r0_c0_z0.png", "r0_c0_z1.png",
		"r1_c0_z0.png", "r1_c0_z1.png",
	}
	for _, name := range expected {
		filename := filepath.Join(outputDir, name)
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected plane file does not exist: %s", filename)
		}
	}
}

// TestSavePlaneSequenceSinglePlane verifies the degenerate case of a stack
// that is already a single plane.
func TestSavePlaneSequenceSinglePlane(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "viewer-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	st, err := imagestack.New([]axes.Axis{axes.Y, axes.X}, []int{2, 2}, []float64{0, 0.25, 0.5, 0.75}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewViewer(st).SavePlaneSequence(tempDir); err != nil {
		t.Fatalf("Failed to save plane sequence: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "plane.png")); os.IsNotExist(err) {
		t.Error("Expected plane.png for a bare (y, x) stack")
	}
}
