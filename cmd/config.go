package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/vibration-monitor/internal/app"
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate and validate configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init <file>",
	Short: "Write an example configuration file",
	Long: `Write an example YAML configuration with every key set to its default.

The example sets analysis.sample_rate to 10000, the rate of the bundled
recordings. Adjust it to match your data acquisition.

Examples:
  vibration-monitor config init ./configs/vibration-monitor.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.GenerateExampleConfig(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Example configuration written to: %s\n", args[0])
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.ValidateConfigFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ Configuration is valid: %s\n", args[0])
		fmt.Fprintf(out, "   - Sample rate: %g Hz\n", config.Analysis.SampleRate)
		fmt.Fprintf(out, "   - Window: %s\n", config.Analysis.WindowFunction)
		fmt.Fprintf(out, "   - Classifier: %s\n", config.Classifier.Strategy)
		fmt.Fprintf(out, "   - Components: %d\n", len(config.Components))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}
