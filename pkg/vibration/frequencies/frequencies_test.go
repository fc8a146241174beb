package frequencies

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

func TestComputeDefaultDrive(t *testing.T) {
	set, err := Compute(DefaultDrive())
	require.NoError(t, err)

	n := 2000.0 / 60
	fr := n * math.Pi * 63 / 912

	assert.Len(t, set, 7)
	assert.InDelta(t, n, set.Shaft(), 1e-12)
	assert.InDelta(t, n/2, set[LabelHalfOrder], 1e-12)
	assert.InDelta(t, fr, set.Belt(), 1e-12)
	assert.InDelta(t, 7.2339, set.Belt(), 1e-3)

	for _, k := range BeltHarmonics {
		assert.InDelta(t, float64(k)*set.Belt(), set[HarmonicLabel(k)], 1e-12, "harmonic %d", k)
	}
	assert.Equal(t, 2*set["fr"], set["2fr"])
}

func TestComputeIsDeterministic(t *testing.T) {
	d := Drive{RPM: 1450, DriverDiameter: 80, BeltLength: 1200}

	a, err := Compute(d)
	require.NoError(t, err)
	b, err := Compute(d)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestComputeZeroSpeed(t *testing.T) {
	set, err := Compute(Drive{RPM: 0, DriverDiameter: 63, BeltLength: 912})
	require.NoError(t, err)

	for label, f := range set {
		assert.Zero(t, f, label)
	}
}

func TestDriveValidation(t *testing.T) {
	tests := []struct {
		name  string
		drive Drive
	}{
		{"zero belt length", Drive{RPM: 2000, DriverDiameter: 63, BeltLength: 0}},
		{"negative belt length", Drive{RPM: 2000, DriverDiameter: 63, BeltLength: -1}},
		{"nan belt length", Drive{RPM: 2000, DriverDiameter: 63, BeltLength: math.NaN()}},
		{"negative rpm", Drive{RPM: -10, DriverDiameter: 63, BeltLength: 912}},
		{"infinite diameter", Drive{RPM: 2000, DriverDiameter: math.Inf(1), BeltLength: 912}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.drive)
			assert.ErrorIs(t, err, common.ErrConfiguration)
		})
	}
}

func TestSortedMarkers(t *testing.T) {
	set, err := Compute(DefaultDrive())
	require.NoError(t, err)

	markers := set.Sorted()
	require.Len(t, markers, len(set))

	labels := make([]string, len(markers))
	for i, m := range markers {
		labels[i] = m.Label
		assert.Equal(t, KindOf(m.Label), m.Kind)
	}
	assert.Equal(t, []string{"fr", "2fr", "n/2", "4fr", "n", "6fr", "8fr"}, labels)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "fr", HarmonicLabel(1))
	assert.Equal(t, "6fr", HarmonicLabel(6))

	assert.Equal(t, KindShaft, KindOf("n"))
	assert.Equal(t, KindHalfOrder, KindOf("n/2"))
	assert.Equal(t, KindBelt, KindOf("4fr"))
}
