package classifier

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
)

// Thresholds parameterise the fixed rule
type Thresholds struct {
	RMS               float64 `json:"rms" yaml:"rms" mapstructure:"rms"`
	Peak              float64 `json:"peak" yaml:"peak" mapstructure:"peak"`
	CrestShock        float64 `json:"crest_shock" yaml:"crest_shock" mapstructure:"crest_shock"`
	CrestMisalignment float64 `json:"crest_misalignment" yaml:"crest_misalignment" mapstructure:"crest_misalignment"`
}

// DefaultThresholds returns the rule used on the fan skid dashboards
func DefaultThresholds() Thresholds {
	return Thresholds{
		RMS:               0.05,
		Peak:              0.1,
		CrestShock:        5,
		CrestMisalignment: 3,
	}
}

// Validate rejects negative or non-finite limits
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"rms":                t.RMS,
		"peak":               t.Peak,
		"crest_shock":        t.CrestShock,
		"crest_misalignment": t.CrestMisalignment,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return common.NewConfigurationError("thresholds",
				fmt.Sprintf("%s threshold must be a non-negative finite value, got %g", name, v), nil)
		}
	}
	return nil
}

// ThresholdRule flags a fault when both RMS and peak exceed their limits
type ThresholdRule struct {
	thresholds Thresholds
}

// NewThresholdRule creates a rule with the given limits
func NewThresholdRule(t Thresholds) (*ThresholdRule, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &ThresholdRule{thresholds: t}, nil
}

// Thresholds returns the active limits
func (r *ThresholdRule) Thresholds() Thresholds {
	return r.thresholds
}

// Strategy implements Classifier
func (r *ThresholdRule) Strategy() Strategy {
	return StrategyThreshold
}

// Classify implements Classifier. Fault requires RMS > limit AND peak > limit.
func (r *ThresholdRule) Classify(v features.Vector) (Verdict, error) {
	t := r.thresholds
	if !(v.RMS > t.RMS && v.Peak > t.Peak) {
		return Verdict{
			Label:      Healthy,
			Strategy:   StrategyThreshold,
			Severity:   SeverityNone,
			Message:    "System appears to be running normally.",
			Confidence: 1,
		}, nil
	}

	severity := r.Severity(v.CrestFactor)
	return Verdict{
		Label:      Fault,
		Strategy:   StrategyThreshold,
		Severity:   severity,
		Message:    severityMessage(severity),
		Confidence: 1,
	}, nil
}

// Severity grades a fault by crest factor
func (r *ThresholdRule) Severity(crest float64) Severity {
	switch {
	case crest > r.thresholds.CrestShock:
		return SeverityShock
	case crest > r.thresholds.CrestMisalignment:
		return SeverityMisalignment
	default:
		return SeverityAbnormal
	}
}

func severityMessage(s Severity) string {
	switch s {
	case SeverityShock:
		return "High crest factor may indicate loose components or shock loads."
	case SeverityMisalignment:
		return "Moderate crest factor. Possible misalignment or belt wear."
	case SeverityAbnormal:
		return "Abnormal vibration detected. Inspect motor and belt system."
	default:
		return "System appears to be running normally."
	}
}
