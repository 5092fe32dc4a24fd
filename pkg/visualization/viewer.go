package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"fishstack/pkg/axes"
	"fishstack/pkg/imagestack"
)

// Viewer renders the (y, x) planes of a labeled image stack as 16-bit
// grayscale images for visual inspection of intermediate processing results.
// Values are treated as normalized intensities: 0 maps to black, 1 to white,
// and anything outside that range is clamped.
type Viewer struct {
	stack *imagestack.Stack
}

// NewViewer creates a viewer over a stack. The stack is not copied; renders
// reflect its state at call time.
func NewViewer(st *imagestack.Stack) *Viewer {
	return &Viewer{stack: st}
}

// RenderPlane renders one (y, x) plane as a 16-bit grayscale image. The
// selector must pin every axis except y and x.
func (v *Viewer) RenderPlane(sel axes.Selector) (image.Image, error) {
	plane, err := v.stack.GetSlice(sel)
	if err != nil {
		return nil, err
	}
	dims := plane.Dims()
	if len(dims) != 2 || dims[0] != axes.Y || dims[1] != axes.X {
		return nil, fmt.Errorf("visualization: selector %s leaves axes %v, want a (y, x) plane", sel, dims)
	}
	height, _ := plane.AxisSize(axes.Y)
	width, _ := plane.AxisSize(axes.X)
	data := plane.Data()

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			value := uint16(math.Max(0, math.Min(65535, data[y*width+x]*65535)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img, nil
}

// SavePlane renders one plane and writes it as a PNG file.
func (v *Viewer) SavePlane(sel axes.Selector, filename string) error {
	img, err := v.RenderPlane(sel)
	if err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SavePlaneSequence renders every (y, x) plane of the stack into outputDir,
// one PNG per combination of the outer axes, named after the plane's
// position, e.g. "r0_c1_z2.png".
func (v *Viewer) SavePlaneSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var outer []axes.Axis
	for _, a := range v.stack.Dims() {
		if a != axes.Y && a != axes.X {
			outer = append(outer, a)
		}
	}
	for sel := range v.stack.IterAxes(outer) {
		filename := filepath.Join(outputDir, planeFileName(sel))
		if err := v.SavePlane(sel, filename); err != nil {
			return err
		}
	}
	return nil
}

// planeFileName names a plane after its outer-axis position, axes in stack
// order. A stack that is a single plane renders to "plane.png".
func planeFileName(sel axes.Selector) string {
	parts := make([]string, 0, len(sel))
	for _, a := range axes.StackOrder {
		if idx, ok := sel[a]; ok {
			parts = append(parts, fmt.Sprintf("%s%d", a, idx))
		}
	}
	if len(parts) == 0 {
		return "plane.png"
	}
	return strings.Join(parts, "_") + ".png"
}
