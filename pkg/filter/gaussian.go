package filter

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"fishstack/pkg/axes"
	"fishstack/pkg/imagestack"
)

// GaussianLowPass blurs every (y, x) plane of a stack with a Gaussian kernel
// of the given standard deviation, applied in the frequency domain with
// circular boundary handling. Planes are processed concurrently.
type GaussianLowPass struct {
	sigma float64
}

// NewGaussianLowPass builds the filter; sigma is in pixels and must be
// positive.
func NewGaussianLowPass(sigma float64) (*GaussianLowPass, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("filter: sigma must be positive, got %v", sigma)
	}
	return &GaussianLowPass{sigma: sigma}, nil
}

// Run returns a blurred copy of st; the input is never mutated.
func (g *GaussianLowPass) Run(st *imagestack.Stack) (*imagestack.Stack, error) {
	return mapPlanes(st, func(plane []float64, w, h int) []float64 {
		blurred := gaussianBlurPlane(plane, w, h, g.sigma)
		return imagestack.PreserveFloatRange(blurred, false)
	})
}

// GaussianHighPass subtracts a Gaussian blur from every (y, x) plane,
// keeping only features smaller than the kernel. Negative residuals clamp
// to zero.
type GaussianHighPass struct {
	sigma float64
}

// NewGaussianHighPass builds the filter; sigma is in pixels and must be
// positive.
func NewGaussianHighPass(sigma float64) (*GaussianHighPass, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("filter: sigma must be positive, got %v", sigma)
	}
	return &GaussianHighPass{sigma: sigma}, nil
}

// Run returns a high-passed copy of st; the input is never mutated.
func (g *GaussianHighPass) Run(st *imagestack.Stack) (*imagestack.Stack, error) {
	return mapPlanes(st, func(plane []float64, w, h int) []float64 {
		blurred := gaussianBlurPlane(plane, w, h, g.sigma)
		residual := make([]float64, len(plane))
		for i := range plane {
			residual[i] = plane[i] - blurred[i]
		}
		return imagestack.PreserveFloatRange(residual, false)
	})
}

// mapPlanes applies fn to every (y, x) plane of st and assembles the results
// into a new stack with the same dims, shape and coordinates. Planes are
// farmed out to one worker per CPU.
func mapPlanes(st *imagestack.Stack, fn func(plane []float64, w, h int) []float64) (*imagestack.Stack, error) {
	if !st.HasAxis(axes.Y) || !st.HasAxis(axes.X) {
		return nil, fmt.Errorf("filter: stack %s has no in-plane axes to filter", st)
	}
	w, _ := st.AxisSize(axes.X)
	h, _ := st.AxisSize(axes.Y)

	var outer []axes.Axis
	for _, d := range st.Dims() {
		if d != axes.Y && d != axes.X {
			outer = append(outer, d)
		}
	}
	var selectors []axes.Selector
	for sel := range st.IterAxes(outer) {
		selectors = append(selectors, sel)
	}

	out := st.Clone()

	type planeResult struct {
		sel  axes.Selector
		data []float64
		err  error
	}
	jobs := make(chan axes.Selector, len(selectors))
	results := make(chan planeResult, len(selectors))

	workers := runtime.NumCPU()
	if workers > len(selectors) {
		workers = len(selectors)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sel := range jobs {
				plane, err := st.GetSlice(sel)
				if err != nil {
					results <- planeResult{sel: sel, err: err}
					continue
				}
				results <- planeResult{sel: sel, data: fn(plane.Data(), w, h)}
			}
		}()
	}
	for _, sel := range selectors {
		jobs <- sel
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	planeDims := []axes.Axis{axes.Y, axes.X}
	planeShape := []int{h, w}
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		plane, err := imagestack.New(planeDims, planeShape, res.data, nil)
		if err != nil {
			return nil, err
		}
		if err := out.SetSlice(res.sel, plane); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// gaussianBlurPlane multiplies the plane's spectrum by a Gaussian transfer
// function. The frequency response of a spatial Gaussian with standard
// deviation sigma is exp(-2 pi^2 sigma^2 f^2).
func gaussianBlurPlane(plane []float64, w, h int, sigma float64) []float64 {
	coefs := fft2D(plane, w, h)
	for fy := 0; fy < h; fy++ {
		ny := fftFreq(fy, h)
		for fx := 0; fx < w; fx++ {
			nx := fftFreq(fx, w)
			hfac := math.Exp(-2 * math.Pi * math.Pi * sigma * sigma * (nx*nx + ny*ny))
			coefs[fy*w+fx] *= complex(hfac, 0)
		}
	}
	return ifft2D(coefs, w, h)
}
