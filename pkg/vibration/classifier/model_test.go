package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/features"
)

type TrainedModelTestSuite struct {
	suite.Suite
	dir      string
	artifact *Artifact
}

func (s *TrainedModelTestSuite) SetupTest() {
	s.dir = s.T().TempDir()

	X, y := separableData(60, features.Count, 11)
	opts := DefaultForestOptions()
	opts.Trees = 15
	opts.MaxFeatures = features.Count

	forest, err := FitForest(X, y, opts)
	s.Require().NoError(err)
	s.artifact = NewArtifact(forest, 10000, opts, len(X))
}

func (s *TrainedModelTestSuite) TestSaveAndLoad() {
	path := filepath.Join(s.dir, "models", "rf_model.json")
	s.Require().NoError(SaveArtifact(path, s.artifact))

	_, err := os.Stat(path + ".lock")
	s.True(os.IsNotExist(err), "lock file should be removed")

	loaded, err := LoadArtifact(path)
	s.Require().NoError(err)
	s.Equal(s.artifact.ID, loaded.ID)
	s.Equal(features.Names, loaded.FeatureNames)
	s.Equal(s.artifact.Forest, loaded.Forest)
	s.Equal(60, loaded.TrainingSamples)

	model, err := LoadTrainedModel(path, 10000, DefaultThresholds())
	s.Require().NoError(err)
	s.Equal(s.artifact.ID.String(), model.ID())
	s.Equal(StrategyModel, model.Strategy())
}

func (s *TrainedModelTestSuite) TestLoadedModelPredictsLikeInMemory() {
	path := filepath.Join(s.dir, "rf_model.json")
	s.Require().NoError(SaveArtifact(path, s.artifact))

	inMemory, err := NewTrainedModel(s.artifact, DefaultThresholds())
	s.Require().NoError(err)
	loaded, err := LoadTrainedModel(path, 10000, DefaultThresholds())
	s.Require().NoError(err)

	for _, v := range []features.Vector{
		{RMS: 0.1, Peak: 0.5, CrestFactor: 0.5, Skewness: 0.5, Kurtosis: 0.5, DominantFrequency: 0.5},
		{RMS: 2.9, Peak: 0.5, CrestFactor: 6, Skewness: 0.5, Kurtosis: 0.5, DominantFrequency: 0.5},
	} {
		a, err := inMemory.Classify(v)
		s.Require().NoError(err)
		b, err := loaded.Classify(v)
		s.Require().NoError(err)
		s.Equal(a, b)
	}
}

func (s *TrainedModelTestSuite) TestFaultIsGradedByCrest() {
	model, err := NewTrainedModel(s.artifact, DefaultThresholds())
	s.Require().NoError(err)

	verdict, err := model.Classify(features.Vector{RMS: 2.9, Peak: 0.5, CrestFactor: 6, Skewness: 0.5, Kurtosis: 0.5, DominantFrequency: 0.5})
	s.Require().NoError(err)
	s.Equal(Fault, verdict.Label)
	s.Equal(SeverityShock, verdict.Severity)
	s.Equal(StrategyModel, verdict.Strategy)

	verdict, err = model.Classify(features.Vector{RMS: 0.1, Peak: 0.5, CrestFactor: 6, Skewness: 0.5, Kurtosis: 0.5, DominantFrequency: 0.5})
	s.Require().NoError(err)
	s.Equal(Healthy, verdict.Label)
	s.Equal(SeverityNone, verdict.Severity)
}

func (s *TrainedModelTestSuite) TestFaultGradingUsesConfiguredThresholds() {
	fault := features.Vector{RMS: 2.9, Peak: 0.5, CrestFactor: 4, Skewness: 0.5, Kurtosis: 0.5, DominantFrequency: 0.5}

	defaults, err := NewTrainedModel(s.artifact, DefaultThresholds())
	s.Require().NoError(err)
	verdict, err := defaults.Classify(fault)
	s.Require().NoError(err)
	s.Equal(SeverityMisalignment, verdict.Severity)

	strict := DefaultThresholds()
	strict.CrestShock = 3.5

	path := filepath.Join(s.dir, "rf_model.json")
	s.Require().NoError(SaveArtifact(path, s.artifact))
	c, err := New(Config{Strategy: StrategyModel, ModelPath: path, SampleRate: 10000, Thresholds: strict})
	s.Require().NoError(err)

	verdict, err = c.Classify(fault)
	s.Require().NoError(err)
	s.Equal(Fault, verdict.Label)
	s.Equal(SeverityShock, verdict.Severity)

	rule, err := NewThresholdRule(strict)
	s.Require().NoError(err)
	s.Equal(rule.Severity(fault.CrestFactor), verdict.Severity)

	bad := strict
	bad.CrestShock = -1
	_, err = NewTrainedModel(s.artifact, bad)
	s.ErrorIs(err, common.ErrConfiguration)
}

func (s *TrainedModelTestSuite) TestContractMismatch() {
	s.Require().NoError(s.artifact.CheckContract(10000))
	s.Require().NoError(s.artifact.CheckContract(0))

	s.ErrorIs(s.artifact.CheckContract(20000), common.ErrFeatureContract)

	reordered := *s.artifact
	reordered.FeatureNames = []string{"peak", "rms", "crest_factor", "skewness", "kurtosis", "dominant_frequency"}
	err := reordered.CheckContract(10000)
	s.ErrorIs(err, common.ErrFeatureContract)
	s.False(common.IsRecoverable(err))

	path := filepath.Join(s.dir, "reordered.json")
	s.Require().NoError(SaveArtifact(path, &reordered))
	_, err = LoadTrainedModel(path, 10000, DefaultThresholds())
	s.ErrorIs(err, common.ErrFeatureContract)

	_, err = New(Config{Strategy: StrategyModel, ModelPath: path, SampleRate: 10000, Thresholds: DefaultThresholds()})
	s.ErrorIs(err, common.ErrFeatureContract)
}

func (s *TrainedModelTestSuite) TestSaveRejectsUntrained() {
	s.Error(SaveArtifact(filepath.Join(s.dir, "empty.json"), &Artifact{}))
	s.Error(SaveArtifact(filepath.Join(s.dir, "nil.json"), nil))
}

func TestTrainedModelTestSuite(t *testing.T) {
	suite.Run(t, new(TrainedModelTestSuite))
}

func TestLoadArtifactUnavailable(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"forest":{"trees":[]}}`), 0o644))

	for name, path := range map[string]string{
		"no path": "",
		"missing": filepath.Join(dir, "missing.json"),
		"corrupt": corrupt,
		"empty":   empty,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTrainedModel(path, 10000, DefaultThresholds())
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrModelUnavailable)
			assert.True(t, common.IsRecoverable(err))
		})
	}
}

func TestNewWithMissingModelDegrades(t *testing.T) {
	c, err := New(Config{
		Strategy:   StrategyModel,
		Thresholds: DefaultThresholds(),
		ModelPath:  filepath.Join(t.TempDir(), "rf_model.json"),
		SampleRate: 10000,
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyModel, c.Strategy())

	_, err = c.Classify(features.Vector{})
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
}

func TestNewThreshold(t *testing.T) {
	c, err := New(Config{Strategy: StrategyThreshold, Thresholds: DefaultThresholds()})
	require.NoError(t, err)
	assert.Equal(t, StrategyThreshold, c.Strategy())

	_, err = New(Config{Strategy: "svm"})
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestUnavailableModelDefaultError(t *testing.T) {
	_, err := UnavailableModel(nil).Classify(features.Vector{})
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
}
