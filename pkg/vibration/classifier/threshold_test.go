package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/waveform"
)

func newDefaultRule(t *testing.T) *ThresholdRule {
	t.Helper()
	rule, err := NewThresholdRule(DefaultThresholds())
	require.NoError(t, err)
	return rule
}

func TestThresholdRuleDecision(t *testing.T) {
	rule := newDefaultRule(t)

	tests := []struct {
		name     string
		rms      float64
		peak     float64
		expected Label
	}{
		{"both above", 0.06, 0.12, Fault},
		{"both below", 0.02, 0.05, Healthy},
		{"only rms above", 0.06, 0.05, Healthy},
		{"only peak above", 0.02, 0.5, Healthy},
		{"at the limits", 0.05, 0.1, Healthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crest := features.CrestFactor(tt.peak, tt.rms)
			verdict, err := rule.Classify(features.Vector{RMS: tt.rms, Peak: tt.peak, CrestFactor: crest})
			require.NoError(t, err)

			assert.Equal(t, tt.expected, verdict.Label)
			assert.Equal(t, StrategyThreshold, verdict.Strategy)
			assert.Equal(t, 1.0, verdict.Confidence)
			assert.NotEmpty(t, verdict.Message)
			if tt.expected == Healthy {
				assert.Equal(t, SeverityNone, verdict.Severity)
			}
		})
	}
}

func TestThresholdRuleSeverity(t *testing.T) {
	rule := newDefaultRule(t)

	tests := []struct {
		crest    float64
		expected Severity
	}{
		{2.0, SeverityAbnormal},
		{3.0, SeverityAbnormal},
		{3.5, SeverityMisalignment},
		{5.0, SeverityMisalignment},
		{7.2, SeverityShock},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, rule.Severity(tt.crest), "crest %g", tt.crest)

		verdict, err := rule.Classify(features.Vector{RMS: 0.2, Peak: 0.2 * tt.crest, CrestFactor: tt.crest})
		require.NoError(t, err)
		assert.Equal(t, Fault, verdict.Label)
		assert.Equal(t, tt.expected, verdict.Severity)
	}
}

func TestThresholdValidation(t *testing.T) {
	bad := DefaultThresholds()
	bad.Peak = -1
	_, err := NewThresholdRule(bad)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	bad = DefaultThresholds()
	bad.RMS = math.NaN()
	assert.ErrorIs(t, bad.Validate(), common.ErrConfiguration)

	assert.NoError(t, DefaultThresholds().Validate())
}

func TestClassifyWaveform(t *testing.T) {
	rule := newDefaultRule(t)

	x := make([]float64, 1000)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*25*float64(i)/1000)
	}
	w, err := waveform.New(x, 1000)
	require.NoError(t, err)

	verdict, v, err := ClassifyWaveform(rule, w)
	require.NoError(t, err)
	assert.Equal(t, Fault, verdict.Label)
	assert.Equal(t, SeverityAbnormal, verdict.Severity)
	assert.InDelta(t, 25.0, v.DominantFrequency, 1e-9)

	quiet, err := waveform.New([]float64{0.001, -0.001, 0.001, -0.001}, 1000)
	require.NoError(t, err)
	verdict, _, err = ClassifyWaveform(rule, quiet)
	require.NoError(t, err)
	assert.Equal(t, Healthy, verdict.Label)
}

func TestParseStrategy(t *testing.T) {
	for input, expected := range map[string]Strategy{
		"":              StrategyThreshold,
		"threshold":     StrategyThreshold,
		"Model":         StrategyModel,
		"random_forest": StrategyModel,
	} {
		got, err := ParseStrategy(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := ParseStrategy("svm")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestLabelString(t *testing.T) {
	assert.Equal(t, "healthy", Healthy.String())
	assert.Equal(t, "fault", Fault.String())
	assert.Equal(t, "unknown", Label(7).String())
}
