package cmd

import (
	"github.com/spf13/cobra"
)

// frequenciesCmd represents the frequencies command
var frequenciesCmd = &cobra.Command{
	Use:   "frequencies",
	Short: "Show the characteristic frequencies of the drive",
	Long: `Compute the shaft, half-order and belt frequencies of a belt drive.

  n   = rpm / 60
  fr  = n * pi * driver_diameter / belt_length
  belt harmonics 1, 2, 4, 6 and 8 x fr
  n/2

Examples:
  vibration-monitor frequencies
  vibration-monitor frequencies --rpm 1450 --belt-length 1000`,
	Args: cobra.NoArgs,
	RunE: runFrequencies,
}

func init() {
	rootCmd.AddCommand(frequenciesCmd)

	frequenciesCmd.Flags().Float64("rpm", 2000,
		"nominal shaft speed")
	frequenciesCmd.Flags().Float64("driver-diameter", 63,
		"driver pulley diameter")
	frequenciesCmd.Flags().Float64("belt-length", 912,
		"belt length, same unit as the diameter")
}

func runFrequencies(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Frequencies()
}
