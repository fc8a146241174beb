package waveform

import (
	"fmt"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

// Waveform is an immutable sequence of amplitude samples taken at a fixed rate
type Waveform struct {
	source     string
	channel    int
	samples    []float64
	sampleRate float64
}

// New creates a waveform from samples. The slice is copied.
func New(samples []float64, sampleRate float64) (*Waveform, error) {
	return newWaveform("", -1, samples, sampleRate)
}

func newWaveform(source string, channel int, samples []float64, sampleRate float64) (*Waveform, error) {
	if sampleRate <= 0 {
		return nil, common.NewConfigurationError(source,
			fmt.Sprintf("sample rate must be positive, got %g", sampleRate), nil)
	}
	if len(samples) == 0 {
		return nil, common.NewFormatError(source, "no numeric samples", nil)
	}

	owned := make([]float64, len(samples))
	copy(owned, samples)

	return &Waveform{
		source:     source,
		channel:    channel,
		samples:    owned,
		sampleRate: sampleRate,
	}, nil
}

// Samples returns a copy of the samples
func (w *Waveform) Samples() []float64 {
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}

// View returns the underlying samples without copying. Callers must not
// modify the returned slice.
func (w *Waveform) View() []float64 {
	return w.samples
}

// Len returns the number of samples
func (w *Waveform) Len() int {
	return len(w.samples)
}

// SampleRate returns the sampling rate in Hz
func (w *Waveform) SampleRate() float64 {
	return w.sampleRate
}

// Duration returns the recording length in seconds
func (w *Waveform) Duration() float64 {
	return float64(len(w.samples)) / w.sampleRate
}

// Source returns the file name or label the waveform was read from
func (w *Waveform) Source() string {
	return w.source
}

// Channel returns the column index the waveform was read from, or -1 for
// single-channel input.
func (w *Waveform) Channel() int {
	return w.channel
}

// Label is a human readable identifier combining source and channel
func (w *Waveform) Label() string {
	name := w.source
	if name == "" {
		name = "waveform"
	}
	if w.channel < 0 {
		return name
	}
	return fmt.Sprintf("%s[%d]", name, w.channel)
}
