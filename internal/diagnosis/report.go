package diagnosis

import (
	"time"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/frequencies"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/spectrum"
)

// Report is the outcome of analyzing one recording
type Report struct {
	ID         string              `json:"id" yaml:"id"`
	Source     string              `json:"source" yaml:"source"`
	AnalyzedAt time.Time           `json:"analyzed_at" yaml:"analyzed_at"`
	SampleRate float64             `json:"sample_rate" yaml:"sample_rate"`
	Window     spectrum.WindowType `json:"window" yaml:"window"`
	Drive      frequencies.Drive   `json:"drive" yaml:"drive"`
	Baseline   string              `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Channels   []ChannelReport     `json:"channels" yaml:"channels"`
}

// ChannelReport holds the results for one channel
type ChannelReport struct {
	// Channel is the column index, -1 for single-channel files
	Channel    int                `json:"channel" yaml:"channel"`
	Label      string             `json:"label" yaml:"label"`
	Samples    int                `json:"samples" yaml:"samples"`
	Duration   float64            `json:"duration_seconds" yaml:"duration_seconds"`
	Resolution float64            `json:"resolution_hz" yaml:"resolution_hz"`
	Features   features.Vector    `json:"features" yaml:"features"`
	Threshold  classifier.Verdict `json:"threshold" yaml:"threshold"`
	// Model is nil when no model is configured or it is unavailable
	Model          *classifier.Verdict      `json:"model,omitempty" yaml:"model,omitempty"`
	ModelError     string                   `json:"model_error,omitempty" yaml:"model_error,omitempty"`
	Dominant       spectrum.Peak            `json:"dominant" yaml:"dominant"`
	Peaks          []spectrum.Peak          `json:"peaks" yaml:"peaks"`
	Markers        []spectrum.MarkerReading `json:"markers" yaml:"markers"`
	BaselineDeltas []spectrum.MarkerDelta   `json:"baseline_deltas,omitempty" yaml:"baseline_deltas,omitempty"`
	Spectrum       *spectrum.Spectrum       `json:"spectrum,omitempty" yaml:"spectrum,omitempty"`
}

// Verdict returns the model verdict when present, else the threshold verdict
func (c ChannelReport) Verdict() classifier.Verdict {
	if c.Model != nil {
		return *c.Model
	}
	return c.Threshold
}

// AnyFault reports whether any channel's verdict is a fault
func (r *Report) AnyFault() bool {
	for _, ch := range r.Channels {
		if ch.Verdict().IsFault() {
			return true
		}
	}
	return false
}

// Decisive returns the most severe channel verdict
func (r *Report) Decisive() classifier.Verdict {
	var worst classifier.Verdict
	worstRank := -1
	for _, ch := range r.Channels {
		v := ch.Verdict()
		if rank := severityRank(v); rank > worstRank {
			worst = v
			worstRank = rank
		}
	}
	return worst
}

func severityRank(v classifier.Verdict) int {
	if !v.IsFault() {
		return 0
	}
	switch v.Severity {
	case classifier.SeverityShock:
		return 3
	case classifier.SeverityMisalignment:
		return 2
	default:
		return 1
	}
}
