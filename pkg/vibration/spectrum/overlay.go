package spectrum

import (
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/frequencies"
)

// MarkerReading is a characteristic frequency placed on a spectrum
type MarkerReading struct {
	frequencies.Marker `yaml:",inline"`

	Bin          int     `json:"bin" yaml:"bin"`
	BinFrequency float64 `json:"bin_frequency" yaml:"bin_frequency"`
	Magnitude    float64 `json:"magnitude" yaml:"magnitude"`

	// InRange is false when the marker lies above Nyquist
	InRange bool `json:"in_range" yaml:"in_range"`
	// Resolvable is false when another marker falls into the same bin
	Resolvable bool `json:"resolvable" yaml:"resolvable"`
}

// Overlay reads the spectrum at every marker of set, in frequency order
func Overlay(spec *Spectrum, set frequencies.Set) []MarkerReading {
	markers := set.Sorted()
	readings := make([]MarkerReading, 0, len(markers))
	if spec == nil || spec.Len() == 0 {
		return readings
	}

	binUse := make(map[int]int, len(markers))
	for _, m := range markers {
		reading := MarkerReading{
			Marker:  m,
			InRange: m.Frequency <= spec.Nyquist(),
		}
		if reading.InRange {
			reading.Bin = spec.BinFor(m.Frequency)
			reading.BinFrequency = spec.Frequencies[reading.Bin]
			reading.Magnitude = spec.Magnitudes[reading.Bin]
			binUse[reading.Bin]++
		} else {
			reading.Bin = -1
		}
		readings = append(readings, reading)
	}

	for i := range readings {
		readings[i].Resolvable = readings[i].InRange && binUse[readings[i].Bin] == 1
	}

	return readings
}

// MarkerDelta compares one marker between a recording and a healthy baseline
type MarkerDelta struct {
	Label     string  `json:"label" yaml:"label"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
	Baseline  float64 `json:"baseline" yaml:"baseline"`
	Delta     float64 `json:"delta" yaml:"delta"`
	// Ratio is Magnitude / Baseline, or 0 when the baseline bin is empty
	Ratio float64 `json:"ratio" yaml:"ratio"`
}

// CompareMarkers reads the same markers from a spectrum and a baseline
// spectrum. The two may differ in length; each is read at its own nearest bin.
func CompareMarkers(spec, baseline *Spectrum, set frequencies.Set) []MarkerDelta {
	current := Overlay(spec, set)
	reference := Overlay(baseline, set)

	byLabel := make(map[string]MarkerReading, len(reference))
	for _, r := range reference {
		byLabel[r.Label] = r
	}

	deltas := make([]MarkerDelta, 0, len(current))
	for _, r := range current {
		ref, ok := byLabel[r.Label]
		if !ok || !r.InRange || !ref.InRange {
			continue
		}
		d := MarkerDelta{
			Label:     r.Label,
			Frequency: r.Frequency,
			Magnitude: r.Magnitude,
			Baseline:  ref.Magnitude,
			Delta:     r.Magnitude - ref.Magnitude,
		}
		if ref.Magnitude > 0 {
			d.Ratio = r.Magnitude / ref.Magnitude
		}
		deltas = append(deltas, d)
	}
	return deltas
}
