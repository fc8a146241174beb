package classifier

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/logging"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/waveform"
)

// Label is the binary machine condition
type Label int

const (
	Healthy Label = 0
	Fault   Label = 1
)

func (l Label) String() string {
	switch l {
	case Healthy:
		return "healthy"
	case Fault:
		return "fault"
	default:
		return "unknown"
	}
}

// Severity refines a fault verdict using the crest factor
type Severity string

const (
	SeverityNone         Severity = "none"
	SeverityAbnormal     Severity = "abnormal_vibration"
	SeverityMisalignment Severity = "misalignment_or_belt_wear"
	SeverityShock        Severity = "loose_component_or_shock_load"
)

// Strategy names a classification variant
type Strategy string

const (
	StrategyThreshold Strategy = "threshold"
	StrategyModel     Strategy = "model"
)

// ParseStrategy normalises a configured strategy name
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyThreshold:
		return StrategyThreshold, nil
	case StrategyModel, "trained", "random_forest":
		return StrategyModel, nil
	default:
		return "", common.NewConfigurationError("classifier",
			fmt.Sprintf("unsupported classifier strategy %q", name), nil)
	}
}

// Verdict is the outcome of one classification
type Verdict struct {
	Label    Label    `json:"label" yaml:"label"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	// Confidence is the fraction of trees agreeing for the model strategy
	// and 1 for the threshold rule.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// IsFault reports whether the verdict flags a fault
func (v Verdict) IsFault() bool {
	return v.Label == Fault
}

// Classifier decides healthy vs fault from a feature vector. Implementations
// are stateless per call and safe to share.
type Classifier interface {
	Classify(v features.Vector) (Verdict, error)
	Strategy() Strategy
}

// ClassifyWaveform extracts features from w and classifies them
func ClassifyWaveform(c Classifier, w *waveform.Waveform) (Verdict, features.Vector, error) {
	v, err := features.Extract(w)
	if err != nil {
		return Verdict{}, features.Vector{}, err
	}
	verdict, err := c.Classify(v)
	return verdict, v, err
}

// Config selects and parameterises a strategy
type Config struct {
	Strategy   Strategy
	Thresholds Thresholds
	ModelPath  string
	SampleRate float64
}

// New builds the configured classifier. For the model strategy a missing
// artifact is not an error here: the returned classifier reports
// ErrModelUnavailable on every call so callers can keep operating. A model
// trained on a different feature layout or sample rate is an error.
func New(cfg Config) (Classifier, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "classifier_factory",
		"function":  "New",
		"strategy":  cfg.Strategy,
	})

	switch cfg.Strategy {
	case StrategyThreshold, "":
		return NewThresholdRule(cfg.Thresholds)

	case StrategyModel:
		model, err := LoadTrainedModel(cfg.ModelPath, cfg.SampleRate, cfg.Thresholds)
		if err != nil {
			if common.IsRecoverable(err) {
				logger.Warn("Trained model unavailable, predictions will be skipped", logging.Fields{
					"model_path": cfg.ModelPath,
					"error":      err.Error(),
				})
				return UnavailableModel(err), nil
			}
			return nil, err
		}
		logger.Info("Trained model loaded", logging.Fields{
			"model_path": cfg.ModelPath,
			"model_id":   model.ID(),
			"trees":      model.forest.Len(),
		})
		return model, nil

	default:
		return nil, common.NewConfigurationError("classifier",
			fmt.Sprintf("unsupported classifier strategy %q", cfg.Strategy), nil)
	}
}
