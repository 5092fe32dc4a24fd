package filter

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2D computes the 2-D discrete Fourier transform of a row-major plane of
// width w and height h, transforming rows first and then columns.
func fft2D(data []float64, w, h int) []complex128 {
	out := make([]complex128, len(data))
	for i, v := range data {
		out[i] = complex(v, 0)
	}

	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, out[y*w:(y+1)*w])
		rowFFT.Coefficients(out[y*w:(y+1)*w], row)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	dst := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = out[y*w+x]
		}
		colFFT.Coefficients(dst, col)
		for y := 0; y < h; y++ {
			out[y*w+x] = dst[y]
		}
	}
	return out
}

// ifft2D inverts fft2D, returning the real part of the reconstructed plane.
// gonum's Sequence leaves the w*h normalization in place, so it is divided
// out here.
func ifft2D(coefs []complex128, w, h int) []float64 {
	tmp := make([]complex128, len(coefs))
	copy(tmp, coefs)

	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, tmp[y*w:(y+1)*w])
		rowFFT.Sequence(tmp[y*w:(y+1)*w], row)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	dst := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = tmp[y*w+x]
		}
		colFFT.Sequence(dst, col)
		for y := 0; y < h; y++ {
			tmp[y*w+x] = dst[y]
		}
	}

	out := make([]float64, len(tmp))
	norm := float64(w * h)
	for i, c := range tmp {
		out[i] = real(c) / norm
	}
	return out
}

// fftFreq returns the signed frequency, in cycles per sample, of bin k in an
// n-point transform.
func fftFreq(k, n int) float64 {
	if k > n/2 {
		k -= n
	}
	return float64(k) / float64(n)
}
