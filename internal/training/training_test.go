package training

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
)

const testRate = 1000

func TestEvaluate(t *testing.T) {
	actual := []classifier.Label{0, 0, 1, 1, 1}
	predicted := []classifier.Label{0, 1, 1, 1, 0}

	report := Evaluate(actual, predicted)

	assert.Equal(t, 5, report.Total)
	assert.InDelta(t, 0.6, report.Accuracy, 1e-12)
	assert.Equal(t, [2][2]int{{1, 1}, {1, 2}}, report.Confusion)

	require.Len(t, report.Classes, 2)
	healthy, fault := report.Classes[0], report.Classes[1]
	assert.Equal(t, "healthy", healthy.Label)
	assert.InDelta(t, 0.5, healthy.Precision, 1e-12)
	assert.InDelta(t, 0.5, healthy.Recall, 1e-12)
	assert.Equal(t, 2, healthy.Support)
	assert.Equal(t, "fault", fault.Label)
	assert.InDelta(t, 2.0/3, fault.F1, 1e-12)
	assert.Equal(t, 3, fault.Support)

	assert.InDelta(t, (0.5+2.0/3)/2, report.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, 0.6, report.WeightedAvg.Recall, 1e-12)
	assert.Equal(t, 5, report.WeightedAvg.Support)
}

func TestEvaluateDegenerate(t *testing.T) {
	empty := Evaluate(nil, nil)
	assert.Zero(t, empty.Accuracy)
	assert.Zero(t, empty.MacroAvg.F1)

	// no fault predictions: fault precision has a zero denominator
	report := Evaluate([]classifier.Label{0, 1}, []classifier.Label{0, 0})
	assert.Zero(t, report.Classes[1].Precision)
	assert.Zero(t, report.Classes[1].F1)
	assert.InDelta(t, 0.5, report.Accuracy, 1e-12)
}

type OrchestratorTestSuite struct {
	suite.Suite
	root string
}

func (s *OrchestratorTestSuite) write(path string, amplitude float64, freq float64) {
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&sb, "%.6f\n", amplitude*math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(sb.String()), 0o644))
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.root = s.T().TempDir()
	for i := 0; i < 10; i++ {
		s.write(filepath.Join(s.root, "Data 70-H-0", fmt.Sprintf("%d.txt", i)), 0.01+0.001*float64(i), 20)
		s.write(filepath.Join(s.root, "Data 70-F-0", fmt.Sprintf("%d.txt", i)), 0.5+0.05*float64(i), 40)
	}
}

func (s *OrchestratorTestSuite) config() Config {
	forest := classifier.DefaultForestOptions()
	forest.Trees = 10
	forest.MaxFeatures = 6
	return Config{
		SampleRate: testRate,
		TestRatio:  0.25,
		Seed:       42,
		Forest:     forest,
		Thresholds: classifier.DefaultThresholds(),
	}
}

func (s *OrchestratorTestSuite) TestRun() {
	cfg := s.config()
	cfg.ModelPath = filepath.Join(s.T().TempDir(), "rf_model.json")
	cfg.DatasetExport = filepath.Join(s.T().TempDir(), "features.parquet")

	o, err := NewOrchestrator(cfg)
	s.Require().NoError(err)

	summary, err := o.Run(context.Background(), s.root)
	s.Require().NoError(err)

	s.NotEmpty(summary.RunID)
	s.Equal(20, summary.Samples)
	s.Equal(10, summary.Healthy)
	s.Equal(10, summary.Fault)
	s.Equal(15, summary.TrainSize)
	s.Equal(5, summary.TestSize)
	s.Equal(10, summary.Trees)
	s.Require().NotNil(summary.Evaluation)
	s.Equal(1.0, summary.Evaluation.Accuracy)
	s.Equal(cfg.ModelPath, summary.ModelPath)
	s.Equal(cfg.DatasetExport, summary.Export)

	model, err := classifier.LoadTrainedModel(cfg.ModelPath, testRate, classifier.DefaultThresholds())
	s.Require().NoError(err)
	s.Equal(summary.ModelID, model.ID())
	s.Equal(15, model.Artifact().TrainingSamples)

	_, err = classifier.LoadTrainedModel(cfg.ModelPath, 2*testRate, classifier.DefaultThresholds())
	s.ErrorIs(err, common.ErrFeatureContract)
}

func (s *OrchestratorTestSuite) TestRunFromParquetImport() {
	export := filepath.Join(s.T().TempDir(), "features.parquet")
	cfg := s.config()
	cfg.DatasetExport = export

	o, err := NewOrchestrator(cfg)
	s.Require().NoError(err)
	first, err := o.Run(context.Background(), s.root)
	s.Require().NoError(err)

	imported := s.config()
	imported.DatasetImport = export
	o, err = NewOrchestrator(imported)
	s.Require().NoError(err)
	second, err := o.Run(context.Background(), "")
	s.Require().NoError(err)

	s.Equal(first.Samples, second.Samples)
	s.Equal(first.TestSize, second.TestSize)
	s.Equal(first.Evaluation, second.Evaluation)
}

func (s *OrchestratorTestSuite) TestParquetImportAtDifferentRate() {
	export := filepath.Join(s.T().TempDir(), "features.parquet")
	cfg := s.config()
	cfg.DatasetExport = export

	o, err := NewOrchestrator(cfg)
	s.Require().NoError(err)
	_, err = o.Run(context.Background(), s.root)
	s.Require().NoError(err)

	imported := s.config()
	imported.SampleRate = 2 * testRate
	imported.DatasetImport = export
	imported.ModelPath = filepath.Join(s.T().TempDir(), "rf_model.json")
	o, err = NewOrchestrator(imported)
	s.Require().NoError(err)

	_, err = o.Run(context.Background(), "")
	s.ErrorIs(err, common.ErrFeatureContract)
	_, statErr := os.Stat(imported.ModelPath)
	s.True(os.IsNotExist(statErr), "no model should be written")
}

func (s *OrchestratorTestSuite) TestRunEmptyRoot() {
	o, err := NewOrchestrator(s.config())
	s.Require().NoError(err)

	_, err = o.Run(context.Background(), s.T().TempDir())
	s.ErrorIs(err, common.ErrEmptyDataset)
}

func (s *OrchestratorTestSuite) TestRunCancelled() {
	o, err := NewOrchestrator(s.config())
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Run(ctx, s.root)
	s.ErrorIs(err, context.Canceled)
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func TestNewOrchestratorValidation(t *testing.T) {
	_, err := NewOrchestrator(Config{SampleRate: 0, TestRatio: 0.2})
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = NewOrchestrator(Config{SampleRate: testRate, TestRatio: 1})
	assert.ErrorIs(t, err, common.ErrConfiguration)
}
