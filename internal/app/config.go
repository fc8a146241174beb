package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/vibration-monitor/configs"
)

// LoadConfigFile reads a YAML or JSON configuration file and fills unset
// keys with defaults
func LoadConfigFile(filePath string) (*configs.Config, error) {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", filePath)
	}

	v := viper.New()
	v.SetConfigFile(filePath)

	// Determine file format
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	case ".json":
		v.SetConfigType("json")
	default:
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return configs.LoadConfigFrom(v)
}

// ExampleConfig returns the defaults with the sample rate of the bundled
// recordings filled in
func ExampleConfig() *configs.Config {
	cfg := configs.GetDefaultConfig()
	cfg.Analysis.SampleRate = configs.RecordingSampleRate
	cfg.Analysis.MaxFrequency = 200
	cfg.ConfigDir = ""
	cfg.DataDir = ""
	return cfg
}

// GenerateExampleConfig generates an example configuration file
func GenerateExampleConfig(outputFile string) error {
	// Write to YAML file
	data, err := yaml.Marshal(ExampleConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateConfigFile loads and validates a configuration file
func ValidateConfigFile(configFile string) (*configs.Config, error) {
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
