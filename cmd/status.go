package cmd

import (
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the component health overview",
	Long: `Show the configured health state of each machine component.

States are good, warning or critical and are read from the components
section of the configuration file.

Examples:
  vibration-monitor status
  vibration-monitor --config site.yaml status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Status()
}
