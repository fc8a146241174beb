package spectrum

import (
	"math"
	"sort"
)

// Spectrum is a one-sided magnitude spectrum. Frequencies[i] is paired with
// Magnitudes[i] and both lie in [0, SampleRate/2].
type Spectrum struct {
	Frequencies []float64  `json:"frequencies" yaml:"frequencies"`
	Magnitudes  []float64  `json:"magnitudes" yaml:"magnitudes"`
	SampleRate  float64    `json:"sample_rate" yaml:"sample_rate"`
	SampleCount int        `json:"sample_count" yaml:"sample_count"`
	Window      WindowType `json:"window" yaml:"window"`
	DCRemoved   bool       `json:"dc_removed" yaml:"dc_removed"`
}

// Peak is a local maximum of the magnitude spectrum
type Peak struct {
	Bin       int     `json:"bin" yaml:"bin"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
}

// Len returns the number of frequency bins
func (s *Spectrum) Len() int {
	return len(s.Magnitudes)
}

// Resolution returns the bin spacing (sample_rate / N) in Hz. Two
// frequencies closer than this cannot be told apart.
func (s *Spectrum) Resolution() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return s.SampleRate / float64(s.SampleCount)
}

// Nyquist returns half the sample rate
func (s *Spectrum) Nyquist() float64 {
	return s.SampleRate / 2
}

// BinFor returns the index of the bin nearest to freq, clamped to the
// spectrum's range.
func (s *Spectrum) BinFor(freq float64) int {
	if s.Len() == 0 {
		return -1
	}
	res := s.Resolution()
	if res <= 0 || freq <= 0 {
		return 0
	}
	bin := int(math.Round(freq / res))
	return min(bin, s.Len()-1)
}

// MagnitudeAt returns the magnitude of the bin nearest to freq
func (s *Spectrum) MagnitudeAt(freq float64) float64 {
	bin := s.BinFor(freq)
	if bin < 0 {
		return 0
	}
	return s.Magnitudes[bin]
}

// Dominant returns the bin with the largest magnitude
func (s *Spectrum) Dominant() Peak {
	best := Peak{Bin: -1}
	for i, m := range s.Magnitudes {
		if best.Bin < 0 || m > best.Magnitude {
			best = Peak{Bin: i, Frequency: s.Frequencies[i], Magnitude: m}
		}
	}
	return best
}

// Peaks returns up to n local maxima at or below maxFreq, strongest first.
// A maxFreq <= 0 means no upper limit.
func (s *Spectrum) Peaks(n int, maxFreq float64) []Peak {
	if n <= 0 || s.Len() == 0 {
		return nil
	}

	var peaks []Peak
	for i := 1; i < s.Len(); i++ {
		if maxFreq > 0 && s.Frequencies[i] > maxFreq {
			break
		}
		m := s.Magnitudes[i]
		if m <= 0 || m < s.Magnitudes[i-1] {
			continue
		}
		if i+1 < s.Len() && m <= s.Magnitudes[i+1] {
			continue
		}
		peaks = append(peaks, Peak{Bin: i, Frequency: s.Frequencies[i], Magnitude: m})
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})
	if len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks
}

// Band returns a copy of the bins between lo and hi Hz inclusive
func (s *Spectrum) Band(lo, hi float64) *Spectrum {
	out := &Spectrum{
		SampleRate:  s.SampleRate,
		SampleCount: s.SampleCount,
		Window:      s.Window,
		DCRemoved:   s.DCRemoved,
	}
	for i, f := range s.Frequencies {
		if f < lo || f > hi {
			continue
		}
		out.Frequencies = append(out.Frequencies, f)
		out.Magnitudes = append(out.Magnitudes, s.Magnitudes[i])
	}
	return out
}
