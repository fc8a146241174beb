// Package features reduces a waveform to the fixed-length vector consumed by
// the trained classifier. The order of Names is the model's input contract
// and must never change between training and inference.
package features

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/spectrum"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/waveform"
)

// Names is the feature order shared by training and inference
var Names = []string{
	"rms",
	"peak",
	"crest_factor",
	"skewness",
	"kurtosis",
	"dominant_frequency",
}

// Count is the feature vector length
const Count = 6

const constantTolerance = 1e-12

// Vector holds the diagnostic features of one waveform
type Vector struct {
	RMS               float64 `json:"rms" yaml:"rms"`
	Peak              float64 `json:"peak" yaml:"peak"`
	CrestFactor       float64 `json:"crest_factor" yaml:"crest_factor"`
	Skewness          float64 `json:"skewness" yaml:"skewness"`
	Kurtosis          float64 `json:"kurtosis" yaml:"kurtosis"`
	DominantFrequency float64 `json:"dominant_frequency" yaml:"dominant_frequency"`
}

// Slice returns the features in Names order
func (v Vector) Slice() []float64 {
	return []float64{
		v.RMS,
		v.Peak,
		v.CrestFactor,
		v.Skewness,
		v.Kurtosis,
		v.DominantFrequency,
	}
}

// FromSlice is the inverse of Vector.Slice
func FromSlice(values []float64) (Vector, error) {
	if len(values) != Count {
		return Vector{}, common.NewFeatureContractError("features",
			fmt.Sprintf("expected %d features, got %d", Count, len(values)), nil)
	}
	return Vector{
		RMS:               values[0],
		Peak:              values[1],
		CrestFactor:       values[2],
		Skewness:          values[3],
		Kurtosis:          values[4],
		DominantFrequency: values[5],
	}, nil
}

// MatchesNames reports whether names is exactly the extractor's feature order
func MatchesNames(names []string) bool {
	return slices.Equal(names, Names)
}

// Extract computes, in order: RMS, peak |x|, crest factor (0 when RMS is 0),
// skewness and excess kurtosis of the amplitude distribution, and the
// frequency of the strongest bin of the raw one-sided spectrum.
func Extract(w *waveform.Waveform) (Vector, error) {
	if w == nil {
		return Vector{}, common.NewFormatError("", "nil waveform", nil)
	}
	if w.Len() < spectrum.MinSamples {
		return Vector{}, common.NewFormatError(w.Label(),
			fmt.Sprintf("feature extraction needs at least %d samples, got %d", spectrum.MinSamples, w.Len()), nil)
	}

	x := w.View()

	var v Vector
	v.RMS = RMS(x)
	v.Peak = Peak(x)
	v.CrestFactor = CrestFactor(v.Peak, v.RMS)
	v.Skewness, v.Kurtosis = Shape(x)
	v.DominantFrequency = DominantFrequency(x, w.SampleRate())

	return v, nil
}

// RMS is sqrt(mean(x^2))
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

// Peak is max(|x|)
func Peak(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Norm(x, math.Inf(1))
}

// CrestFactor is peak/rms, defined as 0 for a silent signal
func CrestFactor(peak, rms float64) float64 {
	if rms == 0 {
		return 0
	}
	return peak / rms
}

// Shape returns the population skewness m3/m2^1.5 and excess kurtosis
// m4/m2^2 - 3 from biased central moments. Both are 0 for a constant signal.
func Shape(x []float64) (skewness, kurtosis float64) {
	if len(x) == 0 {
		return 0, 0
	}
	m2 := stat.Moment(2, x, nil)
	// rounding in the mean leaves a tiny m2 for constant input
	if m2 == 0 || math.Sqrt(m2) <= constantTolerance*Peak(x) {
		return 0, 0
	}
	m3 := stat.Moment(3, x, nil)
	m4 := stat.Moment(4, x, nil)

	skewness = m3 / math.Pow(m2, 1.5)
	kurtosis = m4/(m2*m2) - 3
	return skewness, kurtosis
}

// DominantFrequency returns the frequency of the largest bin of the raw
// one-sided spectrum. The mean is not removed, so a strongly offset signal
// reports 0 Hz.
func DominantFrequency(x []float64, sampleRate float64) float64 {
	freqs, mags := spectrum.OneSided(x, sampleRate)
	if len(mags) == 0 {
		return 0
	}
	return freqs[floats.MaxIdx(mags)]
}
