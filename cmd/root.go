package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/vibration-monitor/configs"
	"github.com/RyanBlaney/vibration-monitor/internal/app"
)

const envPrefix = "VIBRATION_MONITOR"

var (
	configFile string
	verbose    bool
	quiet      bool
	outputFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vibration-monitor",
	Short: "Vibration analysis and fault classification for belt-driven machinery",
	Long: `Analyze vibration recordings from motors, belts and bearings and flag
potential faults.

Key features:
- Single and multi-channel text recordings
- Windowed, DC-free magnitude spectra with characteristic frequency overlay
- Time-domain features (RMS, peak, crest factor, skewness, kurtosis)
- Threshold rule or trained random forest classification
- Offline training from a labelled directory of recordings
- Component health overview`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/vibration-monitor/vibration-monitor.yaml)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"only log errors")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "",
		"also write JSON logs to this file, rotated by size")
	rootCmd.PersistentFlags().StringP("output", "o", "table",
		"output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output-file", "",
		"write results to a file instead of stdout")

	// Analysis flags shared by analyze and train
	rootCmd.PersistentFlags().Float64("sample-rate", 0,
		"sampling rate of the recordings in Hz (required)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("analysis.sample_rate", rootCmd.PersistentFlags().Lookup("sample-rate"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory and /etc
		viper.AddConfigPath(filepath.Join(home, ".config", "vibration-monitor"))
		viper.AddConfigPath("/etc/vibration-monitor")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("vibration-monitor")
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	// Bind all flags to viper
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each cobra flag to its associated viper configuration.
// Command flags are bound under their config key, e.g. --model to
// classifier.model_path, via the flagKeys table.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(key) {
			val := v.Get(key)
			if err := cmd.Flags().Set(f.Name, flagValue(val)); err != nil {
				lastErr = err
			}
		}

		// Bind the flag to viper
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}

		// Bind to environment variable
		envVarSuffix := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
		if err := v.BindEnv(key, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// flagKeys maps command flag names to configuration keys
var flagKeys = map[string]string{
	"sample-rate":     "analysis.sample_rate",
	"window":          "analysis.window_function",
	"channels":        "analysis.channels",
	"max-frequency":   "analysis.max_frequency",
	"peaks":           "analysis.peak_count",
	"rpm":             "drive.rpm",
	"driver-diameter": "drive.driver_diameter",
	"belt-length":     "drive.belt_length",
	"rms-threshold":   "threshold.rms",
	"peak-threshold":  "threshold.peak",
	"strategy":        "classifier.strategy",
	"model":           "classifier.model_path",
	"healthy-marker":  "training.healthy_marker",
	"extension":       "training.file_extension",
	"test-ratio":      "training.test_ratio",
	"seed":            "training.seed",
	"trees":           "training.trees",
	"max-depth":       "training.max_depth",
	"export":          "training.dataset_export",
}

// flagValue renders a viper value the way pflag parses it
func flagValue(val any) string {
	switch v := val.(type) {
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprintf("%v", p)
		}
		return strings.Join(parts, ",")
	case []int:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprintf("%d", p)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// newApp builds the application from the merged viper configuration
func newApp() (*app.App, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, err
	}

	return app.NewApp(&app.Context{
		OutputFile:   outputFile,
		OutputFormat: viper.GetString("output_format"),
		Verbose:      verbose,
		Quiet:        quiet,
		Config:       config,
	})
}

// GetConfig returns the current viper instance
func GetConfig() *viper.Viper {
	return viper.GetViper()
}
