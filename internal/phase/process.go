package phase

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// medianStep returns the median sampling interval of times.
func medianStep(times []time.Time) time.Duration {
	steps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		steps = append(steps, float64(times[i].Sub(times[i-1])))
	}
	m, err := stats.Median(steps)
	if err != nil {
		return 0
	}
	return time.Duration(m)
}

// lowPass removes oscillations with periods shorter than cutoff. The line
// joining the end points is removed first so the periodic extension has no
// jump, and restored afterwards.
func lowPass(z []float64, times []time.Time, cutoff time.Duration) []float64 {
	n := len(z)
	step := medianStep(times)
	if n < 4 || step <= 0 || cutoff <= step*2 {
		return append([]float64(nil), z...)
	}

	trend := make([]float64, n)
	detrended := make([]float64, n)
	for i := range z {
		trend[i] = z[0] + (z[n-1]-z[0])*float64(i)/float64(n-1)
		detrended[i] = z[i] - trend[i]
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, detrended)
	maxFreq := float64(step) / float64(cutoff) // cycles per sample
	for i := range coeff {
		if fft.Freq(i) > maxFreq {
			coeff[i] = 0
		}
	}
	out := fft.Sequence(nil, coeff)

	// Sequence is unnormalised.
	for i := range out {
		out[i] = out[i]/float64(n) + trend[i]
	}
	return out
}

// autoWindow returns an odd Savitzky-Golay window close to n/div that is
// wide enough for order, or 0 when the series cannot support one.
func autoWindow(n, div, order int) int {
	w := n / div
	if w%2 == 0 {
		w--
	}
	if w < order+2 || w > n {
		return 0
	}
	return w
}

// forcedWindow is autoWindow widened to the narrowest usable window.
func forcedWindow(n, div, order int) int {
	if w := autoWindow(n, div, order); w > 0 {
		return w
	}
	w := order + 2
	if w%2 == 0 {
		w++
	}
	if w > n {
		return 0
	}
	return w
}

// savgol smooths z with a Savitzky-Golay filter: a least-squares polynomial
// of the given order over each window, evaluated at the window centre. The
// first and last windows are evaluated across their whole span to cover the
// edges.
func savgol(z []float64, window, order int) ([]float64, error) {
	n := len(z)
	if window%2 == 0 || window <= order || window > n {
		return nil, fmt.Errorf("savgol: invalid window %d for order %d and %d samples", window, order, n)
	}
	half := window / 2

	vander := mat.NewDense(window, order+1, nil)
	for r := 0; r < window; r++ {
		x := float64(r - half)
		p := 1.0
		for c := 0; c <= order; c++ {
			vander.Set(r, c, p)
			p *= x
		}
	}
	var qr mat.QR
	qr.Factorize(vander)

	fit := func(lo int) (*mat.VecDense, error) {
		var coef mat.VecDense
		if err := qr.SolveVecTo(&coef, false, mat.NewVecDense(window, append([]float64(nil), z[lo:lo+window]...))); err != nil {
			return nil, fmt.Errorf("savgol: fit at %d: %w", lo, err)
		}
		return &coef, nil
	}
	eval := func(coef *mat.VecDense, x float64) float64 {
		var y float64
		for c := coef.Len() - 1; c >= 0; c-- {
			y = y*x + coef.AtVec(c)
		}
		return y
	}

	out := make([]float64, n)
	for i := half; i < n-half; i++ {
		coef, err := fit(i - half)
		if err != nil {
			return nil, err
		}
		out[i] = coef.AtVec(0)

		if i == half {
			for j := 0; j < half; j++ {
				out[j] = eval(coef, float64(j-half))
			}
		}
		if i == n-half-1 {
			for j := n - half; j < n; j++ {
				out[j] = eval(coef, float64(j-i))
			}
		}
	}
	return out, nil
}

// gradient returns dz/dt in units per hour using central differences in the
// interior and one-sided differences at the ends.
func gradient(z []float64, times []time.Time) []float64 {
	n := len(z)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	hours := func(a, b int) float64 { return times[b].Sub(times[a]).Hours() }

	out[0] = (z[1] - z[0]) / hours(0, 1)
	out[n-1] = (z[n-1] - z[n-2]) / hours(n-2, n-1)
	for i := 1; i < n-1; i++ {
		out[i] = (z[i+1] - z[i-1]) / hours(i-1, i+1)
	}
	return out
}
