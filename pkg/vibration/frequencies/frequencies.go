// Package frequencies derives the mechanical reference markers of a
// belt-driven machine from its nominal speed and drive geometry. The markers
// are overlaid on spectra for interpretation; they are not classifier inputs.
package frequencies

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

// Marker labels
const (
	LabelBelt      = "fr"
	LabelShaft     = "n"
	LabelHalfOrder = "n/2"
)

// BeltHarmonics are the multiples of the belt frequency that are reported
var BeltHarmonics = []int{1, 2, 4, 6, 8}

// MarkerKind groups markers by the mechanism they point at
type MarkerKind string

const (
	KindBelt      MarkerKind = "belt"
	KindShaft     MarkerKind = "shaft"
	KindHalfOrder MarkerKind = "half_order"
)

// Drive describes the nominal operating point and belt geometry. Diameter
// and belt length only need to share a unit.
type Drive struct {
	RPM            float64 `json:"rpm" yaml:"rpm" mapstructure:"rpm"`
	DriverDiameter float64 `json:"driver_diameter" yaml:"driver_diameter" mapstructure:"driver_diameter"`
	BeltLength     float64 `json:"belt_length" yaml:"belt_length" mapstructure:"belt_length"`
}

// DefaultDrive is the fan skid test rig: 2000 rpm, 63 mm driver pulley and
// a 912 mm belt.
func DefaultDrive() Drive {
	return Drive{
		RPM:            2000,
		DriverDiameter: 63,
		BeltLength:     912,
	}
}

// Validate checks the parameters Compute depends on
func (d Drive) Validate() error {
	if !(d.BeltLength > 0) || math.IsInf(d.BeltLength, 0) {
		return common.NewConfigurationError("drive",
			fmt.Sprintf("belt length must be a positive finite value, got %g", d.BeltLength), nil)
	}
	if !(d.RPM >= 0) || math.IsInf(d.RPM, 0) {
		return common.NewConfigurationError("drive",
			fmt.Sprintf("rpm must be a non-negative finite value, got %g", d.RPM), nil)
	}
	if !(d.DriverDiameter >= 0) || math.IsInf(d.DriverDiameter, 0) {
		return common.NewConfigurationError("drive",
			fmt.Sprintf("driver diameter must be a non-negative finite value, got %g", d.DriverDiameter), nil)
	}
	return nil
}

// ShaftHz is the shaft rotation frequency
func (d Drive) ShaftHz() float64 {
	return d.RPM / 60
}

// Set maps marker labels ("fr", "2fr", ..., "n", "n/2") to Hz
type Set map[string]float64

// Marker is a single labelled reference frequency
type Marker struct {
	Label     string     `json:"label" yaml:"label"`
	Frequency float64    `json:"frequency" yaml:"frequency"`
	Kind      MarkerKind `json:"kind" yaml:"kind"`
}

// Compute derives the characteristic frequency set:
//
//	n    = rpm / 60
//	fr   = n * pi * driver_diameter / belt_length
//	k*fr for k in BeltHarmonics
//	n/2
func Compute(d Drive) (Set, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	n := d.ShaftHz()
	fr := n * math.Pi * d.DriverDiameter / d.BeltLength

	set := make(Set, len(BeltHarmonics)+2)
	for _, k := range BeltHarmonics {
		set[HarmonicLabel(k)] = float64(k) * fr
	}
	set[LabelShaft] = n
	set[LabelHalfOrder] = n / 2

	return set, nil
}

// HarmonicLabel returns the label of the k-th belt harmonic
func HarmonicLabel(k int) string {
	if k == 1 {
		return LabelBelt
	}
	return fmt.Sprintf("%d%s", k, LabelBelt)
}

// KindOf reports the mechanism a label belongs to
func KindOf(label string) MarkerKind {
	switch label {
	case LabelShaft:
		return KindShaft
	case LabelHalfOrder:
		return KindHalfOrder
	default:
		return KindBelt
	}
}

// Sorted returns the markers ordered by frequency, then label
func (s Set) Sorted() []Marker {
	markers := make([]Marker, 0, len(s))
	for label, f := range s {
		markers = append(markers, Marker{Label: label, Frequency: f, Kind: KindOf(label)})
	}
	sort.Slice(markers, func(i, j int) bool {
		if markers[i].Frequency != markers[j].Frequency {
			return markers[i].Frequency < markers[j].Frequency
		}
		return markers[i].Label < markers[j].Label
	})
	return markers
}

// Belt returns the fundamental belt frequency
func (s Set) Belt() float64 {
	return s[LabelBelt]
}

// Shaft returns the shaft rotation frequency
func (s Set) Shaft() float64 {
	return s[LabelShaft]
}
