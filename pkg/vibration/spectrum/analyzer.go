package spectrum

import (
	"fmt"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/waveform"
)

// MinSamples is the shortest waveform a spectrum can be computed for
const MinSamples = 2

// Analyzer computes display spectra:
//
//	|FFT(window(x - mean(x)))| / N
//
// keeping the N/2 non-negative frequency bins. Mean removal is always
// applied; without it the 0 Hz bin dominates the plot.
type Analyzer struct {
	windowType WindowType
	logger     logging.Logger
}

// NewAnalyzer creates an analyzer using the given window. A rectangular
// window skips tapering at the cost of more leakage between bins.
func NewAnalyzer(windowType WindowType) (*Analyzer, error) {
	kind, err := ParseWindowType(string(windowType))
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		windowType: kind,
		logger: logging.WithFields(logging.Fields{
			"component": "spectral_analyzer",
			"window":    string(kind),
		}),
	}, nil
}

// WindowType returns the configured window
func (a *Analyzer) WindowType() WindowType {
	return a.windowType
}

// Analyze returns the windowed, DC-free magnitude spectrum of w
func (a *Analyzer) Analyze(w *waveform.Waveform) (*Spectrum, error) {
	if w == nil {
		return nil, common.NewFormatError("", "nil waveform", nil)
	}
	n := w.Len()
	if n < MinSamples {
		return nil, common.NewFormatError(w.Label(),
			fmt.Sprintf("spectrum needs at least %d samples, got %d", MinSamples, n), nil)
	}

	centered := RemoveDC(w.View())

	win, err := newWindow(a.windowType, n)
	if err != nil {
		return nil, err
	}
	windowed := win.Apply(centered)

	coeffs := fft.FFTReal(windowed)

	bins := n / 2
	rate := w.SampleRate()
	spec := &Spectrum{
		Frequencies: make([]float64, bins),
		Magnitudes:  make([]float64, bins),
		SampleRate:  rate,
		SampleCount: n,
		Window:      a.windowType,
		DCRemoved:   true,
	}
	for k := 0; k < bins; k++ {
		spec.Frequencies[k] = float64(k) * rate / float64(n)
		spec.Magnitudes[k] = cmplx.Abs(coeffs[k]) / float64(n)
	}

	a.logger.Debug("Spectrum computed", logging.Fields{
		"source":     w.Label(),
		"samples":    n,
		"bins":       bins,
		"resolution": spec.Resolution(),
	})

	return spec, nil
}

// RemoveDC returns a copy of x with its arithmetic mean subtracted
func RemoveDC(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if len(out) == 0 {
		return out
	}
	floats.AddConst(-stat.Mean(out, nil), out)
	return out
}

// OneSided returns the unnormalised magnitude of the real FFT of x, without
// mean removal or windowing: N/2+1 bins from 0 Hz up to and including
// Nyquist for even N.
func OneSided(x []float64, sampleRate float64) (freqs, mags []float64) {
	n := len(x)
	if n == 0 {
		return nil, nil
	}

	coeffs := fft.FFTReal(x)
	bins := n/2 + 1
	freqs = make([]float64, bins)
	mags = make([]float64, bins)
	for k := 0; k < bins; k++ {
		freqs[k] = float64(k) * sampleRate / float64(n)
		mags[k] = cmplx.Abs(coeffs[k])
	}
	return freqs, mags
}
