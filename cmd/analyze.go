package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/vibration-monitor/internal/app"
)

// Analyze command flags that are not configuration keys. The rest are
// read back through viper, see flagKeys.
var (
	analyzeBaseline    string
	analyzeComponent   string
	analyzeSpectrum    bool
	analyzeFailOnFault bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <recording>...",
	Short: "Analyze vibration recordings and classify machine condition",
	Long: `Analyze one or more vibration recordings.

For every channel this command reports:
- Time-domain features (RMS, peak, crest factor, skewness, kurtosis)
- The dominant frequency and the strongest spectral peaks
- Spectrum magnitude at each characteristic frequency of the drive
- The threshold verdict and, with --strategy model, the trained model verdict

Examples:
  # Single-channel recording sampled at 10 kHz
  vibration-monitor analyze --sample-rate 10000 "data/Data 70-F-0/1.txt"

  # Bearing and pulley channels of a tab separated export
  vibration-monitor analyze --sample-rate 10000 --channels 1,2 data/51.txt

  # Compare against a healthy baseline and update a component's state
  vibration-monitor analyze --sample-rate 10000 --baseline good.txt --component "Motor DE Bearing" bad.txt

  # Use the trained model
  vibration-monitor analyze --sample-rate 10000 --strategy model --model rf_model.json 1.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeBaseline, "baseline", "",
		"healthy reference recording for marker comparison")
	analyzeCmd.Flags().StringVar(&analyzeComponent, "component", "",
		"update this component's health from the verdict")
	analyzeCmd.Flags().BoolVar(&analyzeSpectrum, "spectrum", false,
		"include the full spectrum in json/yaml output")
	analyzeCmd.Flags().BoolVar(&analyzeFailOnFault, "fail-on-fault", false,
		"exit non-zero when any recording is classified as a fault")

	analyzeCmd.Flags().String("window", "hann",
		"window function (hann, hamming, blackman, rectangular)")
	analyzeCmd.Flags().IntSlice("channels", nil,
		"column indexes of multi-channel recordings")
	analyzeCmd.Flags().Float64("max-frequency", 0,
		"upper frequency for the peak search (0 = Nyquist)")
	analyzeCmd.Flags().Int("peaks", 5,
		"number of spectral peaks to report")
	analyzeCmd.Flags().String("strategy", "threshold",
		"classifier strategy (threshold, model)")
	analyzeCmd.Flags().String("model", "rf_model.json",
		"trained model artifact")
	analyzeCmd.Flags().Float64("rpm", 2000,
		"nominal shaft speed")
	analyzeCmd.Flags().Float64("rms-threshold", 0.05,
		"RMS limit of the threshold rule")
	analyzeCmd.Flags().Float64("peak-threshold", 0.1,
		"peak limit of the threshold rule")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Analyze(cmd.Context(), app.AnalyzeOptions{
		Paths:           args,
		Baseline:        analyzeBaseline,
		Component:       analyzeComponent,
		IncludeSpectrum: analyzeSpectrum,
		FailOnFault:     analyzeFailOnFault,
	})
}
