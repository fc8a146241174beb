package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/sonido-sonar/logging"

	"github.com/RyanBlaney/vibration-monitor/configs"
	"github.com/RyanBlaney/vibration-monitor/internal/diagnosis"
	"github.com/RyanBlaney/vibration-monitor/internal/training"
	zaplog "github.com/RyanBlaney/vibration-monitor/pkg/logging"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/common"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/frequencies"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/health"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/spectrum"
)

// ErrFaultDetected is returned by Analyze when fail-on-fault is set and a
// recording is classified as a fault
var ErrFaultDetected = errors.New("fault detected")

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile   string
	OutputFile   string
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// AnalyzeOptions select what an analysis run reports
type AnalyzeOptions struct {
	Paths           []string
	Baseline        string
	Component       string
	IncludeSpectrum bool
	FailOnFault     bool
}

// TrainOptions override the training section of the configuration
type TrainOptions struct {
	Root          string
	ModelPath     string
	DatasetExport string
	DatasetImport string
}

// App handles the application lifecycle
type App struct {
	ctx    *Context
	config *configs.Config
	logger logging.Logger
	out    io.Writer
	sync   func() error
}

// NewApp creates a new application
func NewApp(ctx *Context) (*App, error) {
	config, err := loadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config

	if ctx.OutputFormat == "" {
		ctx.OutputFormat = config.OutputFormat
	}

	app := &App{
		ctx:    ctx,
		config: config,
		out:    os.Stdout,
		sync:   func() error { return nil },
	}

	if ctx.Logger == nil {
		logger, err := setupLogging(ctx, config)
		if err != nil {
			return nil, err
		}
		ctx.Logger = logger
		app.sync = logger.Sync
	}
	app.logger = ctx.Logger.WithFields(logging.Fields{"component": "app"})

	app.logger.Debug("Application initialized", logging.Fields{
		"config_file":   ctx.ConfigFile,
		"output_format": ctx.OutputFormat,
		"sample_rate":   config.Analysis.SampleRate,
		"strategy":      config.Classifier.Strategy,
	})

	return app, nil
}

// Config returns the effective configuration
func (app *App) Config() *configs.Config {
	return app.config
}

// SetOutput redirects rendered results, mainly for tests
func (app *App) SetOutput(w io.Writer) {
	app.out = w
}

// Close flushes the log sinks
func (app *App) Close() error {
	return app.sync()
}

// setupLogging installs the zap logger as the process-wide logger
func setupLogging(ctx *Context, config *configs.Config) (*zaplog.ZapLogger, error) {
	level := zaplog.ParseLevel(config.LogLevel)
	if ctx.Verbose || config.Verbose {
		level = logging.DebugLevel
	}
	if ctx.Quiet {
		level = logging.ErrorLevel
	}

	logger, err := zaplog.New(zaplog.Options{
		Level:      level,
		File:       config.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	zaplog.Install(logger)
	return logger, nil
}

// loadConfig prefers an explicit Config, then a config file, then viper
func loadConfig(ctx *Context) (*configs.Config, error) {
	if ctx.Config != nil {
		return ctx.Config, nil
	}
	if ctx.ConfigFile != "" {
		return LoadConfigFile(ctx.ConfigFile)
	}
	return configs.LoadConfig()
}

// Analyze runs the diagnosis engine over every path and renders the reports
func (app *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	if len(opts.Paths) == 0 {
		return fmt.Errorf("at least one recording is required")
	}
	if err := configs.ValidateConfig(app.config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	clf, err := app.newClassifier()
	if err != nil {
		return err
	}

	engine, err := diagnosis.NewEngine(diagnosis.Config{
		SampleRate:      app.config.Analysis.SampleRate,
		Window:          spectrum.WindowType(app.config.Analysis.WindowFunction),
		Channels:        app.config.Analysis.Channels,
		MaxFrequency:    app.config.Analysis.MaxFrequency,
		PeakCount:       app.config.Analysis.PeakCount,
		Drive:           app.config.Drive,
		Thresholds:      app.config.Threshold,
		Classifier:      clf,
		IncludeSpectrum: opts.IncludeSpectrum,
	})
	if err != nil {
		return err
	}

	if opts.Baseline != "" {
		if err := engine.SetBaseline(opts.Baseline); err != nil {
			return err
		}
	}

	reports, errs := engine.AnalyzeFiles(ctx, opts.Paths)
	if len(reports) == 0 {
		return fmt.Errorf("no recording could be analyzed: %w", errors.Join(errs...))
	}

	result := &AnalysisResult{Reports: reports, Markers: engine.Markers().Sorted()}
	for _, e := range errs {
		result.Errors = append(result.Errors, e.Error())
	}

	if opts.Component != "" {
		status, err := health.NewStatusMap(app.config.Components)
		if err != nil {
			return err
		}
		status = diagnosis.ApplyToComponent(status, opts.Component, reports...)
		result.Components = status.Entries()
	}

	if err := app.render(result); err != nil {
		return err
	}

	if opts.FailOnFault {
		for _, r := range reports {
			if r.AnyFault() {
				return ErrFaultDetected
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d recordings failed: %w", len(errs), len(opts.Paths), errors.Join(errs...))
	}
	return nil
}

// newClassifier builds the configured strategy. A missing model yields a
// classifier that reports it per recording.
func (app *App) newClassifier() (classifier.Classifier, error) {
	strategy, err := classifier.ParseStrategy(app.config.Classifier.Strategy)
	if err != nil {
		return nil, err
	}
	return classifier.New(classifier.Config{
		Strategy:   strategy,
		Thresholds: app.config.Threshold,
		ModelPath:  app.config.Classifier.ModelPath,
		SampleRate: app.config.Analysis.SampleRate,
	})
}

// Train builds a dataset, fits the forest and saves the artifact
func (app *App) Train(ctx context.Context, opts TrainOptions) error {
	if err := configs.ValidateConfig(app.config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tc := app.config.Training
	cfg := training.Config{
		SampleRate:    app.config.Analysis.SampleRate,
		Columns:       app.config.Analysis.Channels,
		HealthyMarker: tc.HealthyMarker,
		Extension:     tc.FileExtension,
		TestRatio:     tc.TestRatio,
		Seed:          tc.Seed,
		Forest:        tc.ForestOptions(),
		Thresholds:    app.config.Threshold,
		ModelPath:     app.config.Classifier.ModelPath,
		DatasetExport: tc.DatasetExport,
		DatasetImport: opts.DatasetImport,
	}
	if opts.ModelPath != "" {
		cfg.ModelPath = opts.ModelPath
	}
	if opts.DatasetExport != "" {
		cfg.DatasetExport = opts.DatasetExport
	}
	if opts.Root == "" && cfg.DatasetImport == "" {
		return common.NewConfigurationError("train", "a data directory or dataset import is required", nil)
	}

	orchestrator, err := training.NewOrchestrator(cfg)
	if err != nil {
		return err
	}

	summary, err := orchestrator.Run(ctx, opts.Root)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	return app.render(&trainingSummary{Summary: *summary})
}

// Frequencies renders the characteristic frequencies of the configured drive
func (app *App) Frequencies() error {
	set, err := frequencies.Compute(app.config.Drive)
	if err != nil {
		return err
	}
	return app.render(&FrequencyResult{Drive: app.config.Drive, Markers: set.Sorted()})
}

// Status renders the configured component health map
func (app *App) Status() error {
	status, err := health.NewStatusMap(app.config.Components)
	if err != nil {
		return err
	}
	return app.render(&StatusResult{Components: status.Entries(), Counts: status.Counts(), Worst: status.Worst()})
}

// writeToFile writes data to the specified output file
func (app *App) writeToFile(data []byte) error {
	// Ensure directory exists
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(app.ctx.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}
