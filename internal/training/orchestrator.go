package training

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/google/uuid"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/dataset"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/waveform"
)

// Config controls one training run
type Config struct {
	SampleRate    float64
	Columns       []int
	HealthyMarker string
	Extension     string
	TestRatio     float64
	Seed          uint64
	Forest        classifier.ForestOptions
	// Thresholds grade the severity of fault predictions during evaluation
	Thresholds classifier.Thresholds
	// ModelPath receives the artifact; empty skips saving
	ModelPath string
	// DatasetExport writes the assembled feature rows as parquet
	DatasetExport string
	// DatasetImport trains from a parquet export instead of walking recordings
	DatasetImport string
}

// Summary describes a finished training run
type Summary struct {
	RunID      string                `json:"run_id" yaml:"run_id"`
	Root       string                `json:"root,omitempty" yaml:"root,omitempty"`
	Samples    int                   `json:"samples" yaml:"samples"`
	Healthy    int                   `json:"healthy" yaml:"healthy"`
	Fault      int                   `json:"fault" yaml:"fault"`
	Skipped    []dataset.SkippedFile `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	TrainSize  int                   `json:"train_size" yaml:"train_size"`
	TestSize   int                   `json:"test_size" yaml:"test_size"`
	Trees      int                   `json:"trees" yaml:"trees"`
	Evaluation *ClassificationReport `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	ModelID    string                `json:"model_id" yaml:"model_id"`
	ModelPath  string                `json:"model_path,omitempty" yaml:"model_path,omitempty"`
	Export     string                `json:"dataset_export,omitempty" yaml:"dataset_export,omitempty"`
	StartTime  time.Time             `json:"start_time" yaml:"start_time"`
	Duration   time.Duration         `json:"duration" yaml:"duration"`
}

// Orchestrator runs build -> split -> fit -> evaluate -> save
type Orchestrator struct {
	config Config
	loader *waveform.Loader
	logger logging.Logger
}

// NewOrchestrator validates cfg
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	loader, err := waveform.NewLoader(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	if cfg.TestRatio < 0 || cfg.TestRatio >= 1 {
		return nil, common.NewConfigurationError("training",
			fmt.Sprintf("test ratio must be in [0, 1), got %g", cfg.TestRatio), nil)
	}

	return &Orchestrator{
		config: cfg,
		loader: loader,
		logger: logging.WithFields(logging.Fields{
			"component":   "training_orchestrator",
			"sample_rate": cfg.SampleRate,
		}),
	}, nil
}

// Run trains a model from the recordings under root, or from the parquet
// import when one is configured.
func (o *Orchestrator) Run(ctx context.Context, root string) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Root:      root,
		StartTime: time.Now(),
	}
	logger := o.logger.WithFields(logging.Fields{"run_id": summary.RunID})

	ds, err := o.assemble(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := ds.Counts()
	summary.Samples = ds.Len()
	summary.Healthy = counts[classifier.Healthy]
	summary.Fault = counts[classifier.Fault]
	summary.Skipped = ds.Skipped

	if o.config.DatasetExport != "" {
		if err := ds.SaveParquet(o.config.DatasetExport); err != nil {
			return nil, fmt.Errorf("failed to export dataset: %w", err)
		}
		summary.Export = o.config.DatasetExport
		logger.Debug("Dataset exported", logging.Fields{"path": o.config.DatasetExport})
	}

	train, test, err := ds.Split(o.config.TestRatio, o.config.Seed)
	if err != nil {
		return nil, err
	}
	summary.TrainSize = train.Len()
	summary.TestSize = test.Len()

	logger.Info("Training forest", logging.Fields{
		"train": train.Len(),
		"test":  test.Len(),
		"trees": o.config.Forest.Trees,
	})

	X, y := train.Matrix()
	forest, err := classifier.FitForest(X, y, o.config.Forest)
	if err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	summary.Trees = forest.Len()

	artifact := classifier.NewArtifact(forest, o.config.SampleRate, o.config.Forest, train.Len())
	model, err := classifier.NewTrainedModel(artifact, o.config.Thresholds)
	if err != nil {
		return nil, err
	}
	summary.ModelID = model.ID()

	if test.Len() > 0 {
		summary.Evaluation, err = evaluateModel(model, test)
		if err != nil {
			return nil, err
		}
		logger.Info("Model evaluated", logging.Fields{
			"accuracy": summary.Evaluation.Accuracy,
			"test":     test.Len(),
		})
	}

	if o.config.ModelPath != "" {
		if err := classifier.SaveArtifact(o.config.ModelPath, artifact); err != nil {
			return nil, err
		}
		summary.ModelPath = o.config.ModelPath
		logger.Info("Model saved", logging.Fields{
			"path":     o.config.ModelPath,
			"model_id": summary.ModelID,
		})
	}

	summary.Duration = time.Since(summary.StartTime)
	return summary, nil
}

func (o *Orchestrator) assemble(root string) (*dataset.Dataset, error) {
	if o.config.DatasetImport != "" {
		ds, err := dataset.LoadParquet(o.config.DatasetImport)
		if err != nil {
			return nil, err
		}
		if ds.SampleRate == 0 {
			o.logger.Warn("Feature export does not record its sample rate", logging.Fields{
				"path":        o.config.DatasetImport,
				"sample_rate": o.config.SampleRate,
			})
			return ds, nil
		}
		if math.Abs(ds.SampleRate-o.config.SampleRate) > 1e-9*o.config.SampleRate {
			return nil, common.NewFeatureContractError(o.config.DatasetImport,
				fmt.Sprintf("features were extracted at %g Hz, training configured for %g Hz",
					ds.SampleRate, o.config.SampleRate), nil)
		}
		return ds, nil
	}

	opts := dataset.DefaultOptions()
	if o.config.HealthyMarker != "" {
		opts.HealthyMarker = o.config.HealthyMarker
	}
	if o.config.Extension != "" {
		opts.Extension = o.config.Extension
	}
	opts.Columns = o.config.Columns

	builder, err := dataset.NewBuilder(o.loader, opts)
	if err != nil {
		return nil, err
	}
	return builder.Build(root)
}

func evaluateModel(model classifier.Classifier, test *dataset.Dataset) (*ClassificationReport, error) {
	actual := make([]classifier.Label, test.Len())
	predicted := make([]classifier.Label, test.Len())
	for i, s := range test.Samples {
		v, err := model.Classify(s.Features)
		if err != nil {
			return nil, fmt.Errorf("failed to classify %s: %w", s.Source, err)
		}
		actual[i] = s.Label
		predicted[i] = v.Label
	}
	return Evaluate(actual, predicted), nil
}
