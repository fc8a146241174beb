package configs

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/dataset"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/frequencies"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/health"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/spectrum"
)

// RecordingSampleRate is the rate of the bundled fan-skid recordings. It is
// written into generated example configs but is never applied implicitly.
const RecordingSampleRate = 10000

// setDefaults sets default configuration values for all components.
// analysis.sample_rate is intentionally absent.
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", d.Verbose)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", d.LogLevel)
	}
	if !v.IsSet("output_format") {
		v.Set("output_format", d.OutputFormat)
	}
	if !v.IsSet("config_dir") {
		v.Set("config_dir", d.ConfigDir)
	}
	if !v.IsSet("data_dir") {
		v.Set("data_dir", d.DataDir)
	}

	// Analysis defaults
	if !v.IsSet("analysis.window_function") {
		v.Set("analysis.window_function", d.Analysis.WindowFunction)
	}
	if !v.IsSet("analysis.max_frequency") {
		v.Set("analysis.max_frequency", d.Analysis.MaxFrequency)
	}
	if !v.IsSet("analysis.peak_count") {
		v.Set("analysis.peak_count", d.Analysis.PeakCount)
	}

	// Drive geometry defaults
	if !v.IsSet("drive.rpm") {
		v.Set("drive.rpm", d.Drive.RPM)
	}
	if !v.IsSet("drive.driver_diameter") {
		v.Set("drive.driver_diameter", d.Drive.DriverDiameter)
	}
	if !v.IsSet("drive.belt_length") {
		v.Set("drive.belt_length", d.Drive.BeltLength)
	}

	// Threshold rule defaults
	if !v.IsSet("threshold.rms") {
		v.Set("threshold.rms", d.Threshold.RMS)
	}
	if !v.IsSet("threshold.peak") {
		v.Set("threshold.peak", d.Threshold.Peak)
	}
	if !v.IsSet("threshold.crest_shock") {
		v.Set("threshold.crest_shock", d.Threshold.CrestShock)
	}
	if !v.IsSet("threshold.crest_misalignment") {
		v.Set("threshold.crest_misalignment", d.Threshold.CrestMisalignment)
	}

	// Classifier defaults
	if !v.IsSet("classifier.strategy") {
		v.Set("classifier.strategy", d.Classifier.Strategy)
	}
	if !v.IsSet("classifier.model_path") {
		v.Set("classifier.model_path", d.Classifier.ModelPath)
	}

	// Training defaults
	if !v.IsSet("training.healthy_marker") {
		v.Set("training.healthy_marker", d.Training.HealthyMarker)
	}
	if !v.IsSet("training.file_extension") {
		v.Set("training.file_extension", d.Training.FileExtension)
	}
	if !v.IsSet("training.test_ratio") {
		v.Set("training.test_ratio", d.Training.TestRatio)
	}
	if !v.IsSet("training.seed") {
		v.Set("training.seed", d.Training.Seed)
	}
	if !v.IsSet("training.trees") {
		v.Set("training.trees", d.Training.Trees)
	}
	if !v.IsSet("training.max_depth") {
		v.Set("training.max_depth", d.Training.MaxDepth)
	}
	if !v.IsSet("training.min_samples_split") {
		v.Set("training.min_samples_split", d.Training.MinSamplesSplit)
	}
	if !v.IsSet("training.max_features") {
		v.Set("training.max_features", d.Training.MaxFeatures)
	}

	// Components default to the fan skid layout
	if !v.IsSet("components") {
		components := make([]map[string]any, len(d.Components))
		for i, e := range d.Components {
			components[i] = map[string]any{"component": e.Component, "state": string(e.State)}
		}
		v.Set("components", components)
	}

	// Output defaults
	if !v.IsSet("output.precision") {
		v.Set("output.precision", d.Output.Precision)
	}
	if !v.IsSet("output.colors") {
		v.Set("output.colors", d.Output.Colors)
	}
}

// GetDefaultConfig returns a Config struct with all default values set.
// Analysis.SampleRate is left at 0 and must be supplied.
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",
		ConfigDir:    filepath.Join(home, ".config", "vibration-monitor"),
		DataDir:      filepath.Join(home, ".local", "share", "vibration-monitor"),
		Analysis:     GetDefaultAnalysisConfig(),
		Drive:        frequencies.DefaultDrive(),
		Threshold:    classifier.DefaultThresholds(),
		Classifier:   GetDefaultClassifierConfig(),
		Training:     GetDefaultTrainingConfig(),
		Components:   GetDefaultComponents(),
		Output:       GetDefaultOutputConfig(),
	}
}

// GetDefaultAnalysisConfig returns default signal processing settings
func GetDefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SampleRate:     0,
		WindowFunction: string(spectrum.WindowHann),
		MaxFrequency:   0,
		PeakCount:      5,
	}
}

// GetDefaultClassifierConfig returns the threshold strategy with the
// conventional artifact location
func GetDefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Strategy:  string(classifier.StrategyThreshold),
		ModelPath: "rf_model.json",
	}
}

// GetDefaultTrainingConfig returns an 80/20 split and a 100 tree forest
func GetDefaultTrainingConfig() TrainingConfig {
	forest := classifier.DefaultForestOptions()
	return TrainingConfig{
		HealthyMarker:   dataset.DefaultHealthyMarker,
		FileExtension:   dataset.DefaultExtension,
		TestRatio:       0.2,
		Seed:            forest.Seed,
		Trees:           forest.Trees,
		MaxDepth:        forest.MaxDepth,
		MinSamplesSplit: forest.MinSamplesSplit,
		MaxFeatures:     forest.MaxFeatures,
	}
}

// GetDefaultComponents returns the fan skid components, all Good
func GetDefaultComponents() []health.Entry {
	return health.DefaultComponents()
}

// GetDefaultOutputConfig returns default output formatting settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision: 4,
		Colors:    true,
	}
}

// GetDefaultOutputConfigForFormat returns output config optimized for specific format
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	base := GetDefaultOutputConfig()

	switch format {
	case "json", "yaml":
		base.Colors = false
		base.Precision = 6
	case "table":
		base.Colors = true
	default:
		// Keep defaults
	}

	return base
}
