package configs

import (
	"fmt"
	"math"
	"slices"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/classifier"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/frequencies"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/health"
	"github.com/RyanBlaney/vibration-monitor/pkg/vibration/spectrum"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogFile      string `mapstructure:"log_file" yaml:"log_file"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
	ConfigDir    string `mapstructure:"config_dir" yaml:"config_dir"`
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir"`

	// Signal analysis
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`

	// Drive geometry for characteristic frequencies
	Drive frequencies.Drive `mapstructure:"drive" yaml:"drive"`

	// Fixed threshold rule
	Threshold classifier.Thresholds `mapstructure:"threshold" yaml:"threshold"`

	// Strategy selection
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`

	// Offline training
	Training TrainingConfig `mapstructure:"training" yaml:"training"`

	// Component health, kept as a list so names keep their case
	Components []health.Entry `mapstructure:"components" yaml:"components"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output"`
}

// AnalysisConfig contains signal processing settings
type AnalysisConfig struct {
	// SampleRate has no default: recordings do not carry it
	SampleRate     float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	WindowFunction string  `mapstructure:"window_function" yaml:"window_function"`
	// Channels selects columns of multi-channel files; empty means one value per line
	Channels     []int   `mapstructure:"channels" yaml:"channels"`
	MaxFrequency float64 `mapstructure:"max_frequency" yaml:"max_frequency"`
	PeakCount    int     `mapstructure:"peak_count" yaml:"peak_count"`
}

// ClassifierConfig selects the decision strategy
type ClassifierConfig struct {
	Strategy  string `mapstructure:"strategy" yaml:"strategy"`
	ModelPath string `mapstructure:"model_path" yaml:"model_path"`
}

// TrainingConfig contains dataset and forest settings
type TrainingConfig struct {
	HealthyMarker   string  `mapstructure:"healthy_marker" yaml:"healthy_marker"`
	FileExtension   string  `mapstructure:"file_extension" yaml:"file_extension"`
	TestRatio       float64 `mapstructure:"test_ratio" yaml:"test_ratio"`
	Seed            uint64  `mapstructure:"seed" yaml:"seed"`
	Trees           int     `mapstructure:"trees" yaml:"trees"`
	MaxDepth        int     `mapstructure:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split" yaml:"min_samples_split"`
	MaxFeatures     int     `mapstructure:"max_features" yaml:"max_features"`
	DatasetExport   string  `mapstructure:"dataset_export" yaml:"dataset_export"`
}

// ForestOptions converts the training settings for the classifier package
func (t TrainingConfig) ForestOptions() classifier.ForestOptions {
	return classifier.ForestOptions{
		Trees:           t.Trees,
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MaxFeatures:     t.MaxFeatures,
		Seed:            t.Seed,
	}
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Precision int  `mapstructure:"precision" yaml:"precision"`
	Colors    bool `mapstructure:"colors" yaml:"colors"`
}

// SupportedOutputFormats lists the values accepted for output_format
var SupportedOutputFormats = []string{"table", "json", "yaml"}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom decodes a specific viper instance after applying defaults
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Analysis.SampleRate <= 0 || math.IsInf(config.Analysis.SampleRate, 0) {
		return fmt.Errorf("analysis sample rate must be positive (set analysis.sample_rate or --sample-rate)")
	}

	if _, err := spectrum.ParseWindowType(config.Analysis.WindowFunction); err != nil {
		return err
	}

	for _, c := range config.Analysis.Channels {
		if c < 0 {
			return fmt.Errorf("channel index cannot be negative: %d", c)
		}
	}

	if config.Analysis.MaxFrequency < 0 {
		return fmt.Errorf("max frequency cannot be negative")
	}

	if config.Analysis.PeakCount < 0 {
		return fmt.Errorf("peak count cannot be negative")
	}

	if err := config.Drive.Validate(); err != nil {
		return err
	}

	if err := config.Threshold.Validate(); err != nil {
		return err
	}

	if _, err := classifier.ParseStrategy(config.Classifier.Strategy); err != nil {
		return err
	}

	if config.Training.TestRatio <= 0 || config.Training.TestRatio >= 1 {
		return fmt.Errorf("training test ratio must be between 0 and 1")
	}

	if config.Training.HealthyMarker == "" {
		return fmt.Errorf("training healthy marker cannot be empty")
	}

	if config.Training.Trees <= 0 {
		return fmt.Errorf("training tree count must be positive")
	}

	if _, err := health.NewStatusMap(config.Components); err != nil {
		return err
	}

	if config.OutputFormat != "" && !slices.Contains(SupportedOutputFormats, config.OutputFormat) {
		return fmt.Errorf("unsupported output format: %s", config.OutputFormat)
	}

	return nil
}
