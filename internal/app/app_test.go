package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/vibration-monitor/configs"
	zaplog "github.com/RyanBlaney/vibration-monitor/pkg/logging"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
)

const testRate = 1000

func writeSine(t *testing.T, path string, amplitude, freq float64, n int) {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%.6f\n", amplitude*math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

type AppTestSuite struct {
	suite.Suite
	dir    string
	config *configs.Config
	out    *bytes.Buffer
}

func (s *AppTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.config = configs.GetDefaultConfig()
	s.config.Analysis.SampleRate = testRate
	s.config.Classifier.ModelPath = filepath.Join(s.dir, "rf_model.json")
	s.config.Training.Trees = 10
	s.config.Training.MaxFeatures = 6
	s.out = &bytes.Buffer{}
}

func (s *AppTestSuite) newApp(format string) *App {
	app, err := NewApp(&Context{
		OutputFormat: format,
		Config:       s.config,
		Logger:       zaplog.NewFromZap(zap.NewNop(), logging.InfoLevel),
	})
	s.Require().NoError(err)
	app.SetOutput(s.out)
	return app
}

func (s *AppTestSuite) TestAnalyzeJSON() {
	faulty := filepath.Join(s.dir, "faulty.txt")
	writeSine(s.T(), faulty, 0.5, 25, 1000)

	app := s.newApp("json")
	err := app.Analyze(context.Background(), AnalyzeOptions{
		Paths:     []string{faulty},
		Component: "Motor DE Bearing",
	})
	s.Require().NoError(err)

	var result AnalysisResult
	s.Require().NoError(json.Unmarshal(s.out.Bytes(), &result))
	s.Require().Len(result.Reports, 1)
	s.Len(result.Markers, 7)

	ch := result.Reports[0].Channels[0]
	s.Equal(classifier.Fault, ch.Threshold.Label)
	s.Nil(ch.Model)

	s.Require().Len(result.Components, 9)
	for _, e := range result.Components {
		if e.Component == "Motor DE Bearing" {
			s.Equal("warning", string(e.State))
		}
	}
}

func (s *AppTestSuite) TestAnalyzeComponentKeepsWorstRecording() {
	shock := filepath.Join(s.dir, "bad.txt")
	writeSine(s.T(), shock, 0.06, 25, 1000)
	// one impact on top of a low running level pushes the crest factor past the shock limit
	data, err := os.ReadFile(shock)
	s.Require().NoError(err)
	s.Require().NoError(os.WriteFile(shock, append(data, []byte("2.0\n")...), 0o644))

	healthy := filepath.Join(s.dir, "good.txt")
	writeSine(s.T(), healthy, 0.01, 25, 1000)

	err = s.newApp("json").Analyze(context.Background(), AnalyzeOptions{
		Paths:     []string{shock, healthy},
		Component: "Motor DE Bearing",
	})
	s.Require().NoError(err)

	var result AnalysisResult
	s.Require().NoError(json.Unmarshal(s.out.Bytes(), &result))
	s.Require().Len(result.Reports, 2)
	s.Equal(classifier.SeverityShock, result.Reports[0].Decisive().Severity)
	s.False(result.Reports[1].AnyFault())

	found := false
	for _, e := range result.Components {
		if e.Component == "Motor DE Bearing" {
			found = true
			s.Equal("critical", string(e.State))
		}
	}
	s.True(found)
}

func (s *AppTestSuite) TestAnalyzeFailOnFault() {
	faulty := filepath.Join(s.dir, "faulty.txt")
	writeSine(s.T(), faulty, 0.5, 25, 1000)

	err := s.newApp("table").Analyze(context.Background(), AnalyzeOptions{Paths: []string{faulty}, FailOnFault: true})
	s.ErrorIs(err, ErrFaultDetected)
	s.Contains(s.out.String(), "Dominant Hz")
	s.Contains(s.out.String(), "Abnormal vibration detected")
}

func (s *AppTestSuite) TestAnalyzeModelUnavailable() {
	healthy := filepath.Join(s.dir, "healthy.txt")
	writeSine(s.T(), healthy, 0.01, 25, 1000)
	s.config.Classifier.Strategy = "model"

	err := s.newApp("yaml").Analyze(context.Background(), AnalyzeOptions{Paths: []string{healthy}})
	s.Require().NoError(err)

	var result map[string]any
	s.Require().NoError(yaml.Unmarshal(s.out.Bytes(), &result))
	s.Contains(s.out.String(), "model_error")
	s.Contains(s.out.String(), "model artifact not found")
}

func (s *AppTestSuite) TestAnalyzeReportsPartialFailure() {
	good := filepath.Join(s.dir, "good.txt")
	writeSine(s.T(), good, 0.01, 25, 1000)

	err := s.newApp("json").Analyze(context.Background(), AnalyzeOptions{
		Paths: []string{good, filepath.Join(s.dir, "missing.txt")},
	})
	s.Require().Error(err)
	s.Contains(err.Error(), "1 of 2 recordings failed")

	var result AnalysisResult
	s.Require().NoError(json.Unmarshal(s.out.Bytes(), &result))
	s.Len(result.Reports, 1)
	s.Len(result.Errors, 1)
}

func (s *AppTestSuite) TestAnalyzeRequiresSampleRate() {
	s.config.Analysis.SampleRate = 0
	err := s.newApp("json").Analyze(context.Background(), AnalyzeOptions{Paths: []string{"x.txt"}})
	s.Require().Error(err)
	s.Contains(err.Error(), "sample rate")
}

func (s *AppTestSuite) TestTrainThenAnalyzeWithModel() {
	root := filepath.Join(s.dir, "data")
	for i := 0; i < 8; i++ {
		writeSine(s.T(), filepath.Join(root, "Data 70-H-0", fmt.Sprintf("%d.txt", i)), 0.01+0.001*float64(i), 20, 400)
		writeSine(s.T(), filepath.Join(root, "Data 70-F-0", fmt.Sprintf("%d.txt", i)), 0.5+0.05*float64(i), 40, 400)
	}

	s.Require().NoError(s.newApp("json").Train(context.Background(), TrainOptions{Root: root}))

	var summary map[string]any
	s.Require().NoError(json.Unmarshal(s.out.Bytes(), &summary))
	s.EqualValues(16, summary["samples"])
	s.Equal(s.config.Classifier.ModelPath, summary["model_path"])

	s.out.Reset()
	s.config.Classifier.Strategy = "model"
	faulty := filepath.Join(s.dir, "faulty.txt")
	writeSine(s.T(), faulty, 0.6, 40, 400)

	s.Require().NoError(s.newApp("json").Analyze(context.Background(), AnalyzeOptions{Paths: []string{faulty}}))

	var result AnalysisResult
	s.Require().NoError(json.Unmarshal(s.out.Bytes(), &result))
	ch := result.Reports[0].Channels[0]
	s.Require().NotNil(ch.Model)
	s.Equal(classifier.Fault, ch.Model.Label)
	s.Equal(classifier.StrategyModel, ch.Model.Strategy)
}

func (s *AppTestSuite) TestTrainTable() {
	root := filepath.Join(s.dir, "data")
	for i := 0; i < 5; i++ {
		writeSine(s.T(), filepath.Join(root, "Data 70-H-0", fmt.Sprintf("%d.txt", i)), 0.01, 20, 200)
		writeSine(s.T(), filepath.Join(root, "Data 70-F-0", fmt.Sprintf("%d.txt", i)), 0.5, 40, 200)
	}

	s.Require().NoError(s.newApp("table").Train(context.Background(), TrainOptions{Root: root}))
	s.Contains(s.out.String(), "weighted avg")
	s.Contains(s.out.String(), "Model written to")
}

func (s *AppTestSuite) TestTrainRequiresInput() {
	err := s.newApp("json").Train(context.Background(), TrainOptions{})
	s.Error(err)
}

func (s *AppTestSuite) TestFrequencies() {
	s.Require().NoError(s.newApp("json").Frequencies())

	var result FrequencyResult
	s.Require().NoError(json.Unmarshal(s.out.Bytes(), &result))
	s.Require().Len(result.Markers, 7)
	s.Equal("fr", result.Markers[0].Label)
	s.InDelta(7.2339, result.Markers[0].Frequency, 1e-3)
}

func (s *AppTestSuite) TestStatusTable() {
	s.Require().NoError(s.newApp("table").Status())
	s.Contains(s.out.String(), "Motor Foundation")
	s.Contains(s.out.String(), "Good")
}

func TestAppTestSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func TestGenerateAndValidateExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "vibration-monitor.yaml")
	require.NoError(t, GenerateExampleConfig(path))

	cfg, err := ValidateConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, float64(configs.RecordingSampleRate), cfg.Analysis.SampleRate)
	assert.Equal(t, 200.0, cfg.Analysis.MaxFrequency)
	assert.Len(t, cfg.Components, 9)
	assert.Equal(t, "Motor Foundation", cfg.Components[0].Component)
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "no-rate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"drive": {"rpm": 1500}}`), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, cfg.Drive.RPM)

	_, err = ValidateConfigFile(path)
	assert.Error(t, err)
}
