package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
)

// Artifact is the persisted form of a trained model
type Artifact struct {
	ID              uuid.UUID     `json:"id"`
	CreatedAt       time.Time     `json:"created_at"`
	FeatureNames    []string      `json:"feature_names"`
	SampleRate      float64       `json:"sample_rate"`
	Options         ForestOptions `json:"options"`
	TrainingSamples int           `json:"training_samples"`
	Forest          *Forest       `json:"forest"`
}

// NewArtifact wraps a fitted forest with the metadata needed to check it
// against the extractor at load time.
func NewArtifact(forest *Forest, sampleRate float64, opts ForestOptions, trainingSamples int) *Artifact {
	return &Artifact{
		ID:              uuid.New(),
		CreatedAt:       time.Now().UTC(),
		FeatureNames:    append([]string(nil), features.Names...),
		SampleRate:      sampleRate,
		Options:         opts,
		TrainingSamples: trainingSamples,
		Forest:          forest,
	}
}

// SaveArtifact writes a to path. The write goes through a temp file and a
// rename so a concurrent reader never sees a partial model. A second writer
// fails fast on the sidecar lock.
func SaveArtifact(path string, a *Artifact) error {
	if a == nil || a.Forest.Len() == 0 {
		return errors.New("refusing to save an untrained model")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock model artifact: %w", err)
	}
	if !locked {
		return fmt.Errorf("model artifact %s is being written by another process", path)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(path + ".lock")
	}()

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// LoadArtifact reads an artifact. A missing or unreadable file yields a
// model-unavailable error.
func LoadArtifact(path string) (*Artifact, error) {
	if path == "" {
		return nil, common.NewModelUnavailableError("", "no model path configured", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		msg := "cannot read model artifact"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "model artifact not found"
		}
		return nil, common.NewModelUnavailableError(path, msg, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, common.NewModelUnavailableError(path, "model artifact is corrupt", err)
	}
	if a.Forest.Len() == 0 {
		return nil, common.NewModelUnavailableError(path, "model artifact contains no trees", nil)
	}
	return &a, nil
}

// CheckContract verifies the artifact was trained on the extractor's feature
// order and, when sampleRate > 0, at the same sample rate.
func (a *Artifact) CheckContract(sampleRate float64) error {
	if !features.MatchesNames(a.FeatureNames) {
		return common.NewFeatureContractError(a.ID.String(),
			fmt.Sprintf("model expects features %v, extractor produces %v", a.FeatureNames, features.Names), nil)
	}
	if a.Forest.FeatureCount != features.Count {
		return common.NewFeatureContractError(a.ID.String(),
			fmt.Sprintf("model trees expect %d features, extractor produces %d", a.Forest.FeatureCount, features.Count), nil)
	}
	if sampleRate > 0 && a.SampleRate > 0 && math.Abs(a.SampleRate-sampleRate) > 1e-9*sampleRate {
		return common.NewFeatureContractError(a.ID.String(),
			fmt.Sprintf("model trained at %g Hz, analysis configured for %g Hz", a.SampleRate, sampleRate), nil)
	}
	return nil
}

// TrainedModel classifies with a persisted random forest. Fault verdicts
// are graded by crest factor with the configured threshold limits.
type TrainedModel struct {
	artifact *Artifact
	forest   *Forest
	grading  *ThresholdRule
}

// NewTrainedModel wraps an in-memory artifact. Fault verdicts are graded
// with the crest limits of grading.
func NewTrainedModel(a *Artifact, grading Thresholds) (*TrainedModel, error) {
	if a == nil || a.Forest.Len() == 0 {
		return nil, common.NewModelUnavailableError("", "model is not trained", nil)
	}
	rule, err := NewThresholdRule(grading)
	if err != nil {
		return nil, err
	}
	return &TrainedModel{artifact: a, forest: a.Forest, grading: rule}, nil
}

// LoadTrainedModel reads and validates the artifact at path
func LoadTrainedModel(path string, sampleRate float64, grading Thresholds) (*TrainedModel, error) {
	a, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	if err := a.CheckContract(sampleRate); err != nil {
		return nil, err
	}
	return NewTrainedModel(a, grading)
}

// ID returns the artifact identifier
func (m *TrainedModel) ID() string {
	return m.artifact.ID.String()
}

// Artifact returns the underlying artifact
func (m *TrainedModel) Artifact() *Artifact {
	return m.artifact
}

// Strategy implements Classifier
func (m *TrainedModel) Strategy() Strategy {
	return StrategyModel
}

// Classify implements Classifier
func (m *TrainedModel) Classify(v features.Vector) (Verdict, error) {
	label, confidence, err := m.forest.Predict(v.Slice())
	if err != nil {
		return Verdict{}, common.NewFeatureContractError(m.ID(), "prediction failed", err)
	}

	verdict := Verdict{
		Label:      label,
		Strategy:   StrategyModel,
		Severity:   SeverityNone,
		Message:    severityMessage(SeverityNone),
		Confidence: confidence,
	}
	if label == Fault {
		verdict.Severity = m.grading.Severity(v.CrestFactor)
		verdict.Message = severityMessage(verdict.Severity)
	}
	return verdict, nil
}

// unavailableModel stands in for a model that could not be loaded
type unavailableModel struct {
	err error
}

// UnavailableModel returns a classifier whose every call fails with err.
// err should satisfy errors.Is(err, common.ErrModelUnavailable).
func UnavailableModel(err error) Classifier {
	if err == nil {
		err = common.NewModelUnavailableError("", "model unavailable", nil)
	}
	return &unavailableModel{err: err}
}

func (u *unavailableModel) Strategy() Strategy {
	return StrategyModel
}

func (u *unavailableModel) Classify(features.Vector) (Verdict, error) {
	return Verdict{}, u.err
}
