package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/vibration-monitor/internal/app"
)

// trainImport is the only train flag without a configuration key
var trainImport string

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train [flags] <data-dir>",
	Short: "Train the random forest classifier from labelled recordings",
	Long: `Train a random forest from a directory of labelled recordings.

Each subdirectory of <data-dir> is one operating condition. Folders whose
name contains the healthy marker ("H-0" by default) are labelled healthy,
all others fault. Unreadable recordings are skipped and listed.

The samples are split into training and test partitions, the forest is fit
on the training partition and evaluated on the test partition, and the
artifact is written to --model.

Examples:
  # Train on the bundled layout
  vibration-monitor train --sample-rate 10000 data

  # Keep the feature rows for later runs
  vibration-monitor train --sample-rate 10000 --export features.parquet data

  # Retrain from an export without reading recordings
  vibration-monitor train --sample-rate 10000 --import features.parquet --trees 200`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("model", "rf_model.json",
		"output model artifact")
	trainCmd.Flags().String("export", "",
		"write the feature rows to this parquet file")
	trainCmd.Flags().StringVar(&trainImport, "import", "",
		"train from a parquet feature export instead of a data directory")
	trainCmd.Flags().String("healthy-marker", "H-0",
		"folder name substring marking healthy recordings")
	trainCmd.Flags().String("extension", ".txt",
		"recording file extension")
	trainCmd.Flags().Float64("test-ratio", 0.2,
		"fraction of samples held out for evaluation")
	trainCmd.Flags().Uint64("seed", 42,
		"random seed for the split and the forest")
	trainCmd.Flags().Int("trees", 100,
		"number of trees")
	trainCmd.Flags().Int("max-depth", 0,
		"maximum tree depth (0 = unlimited)")
	trainCmd.Flags().IntSlice("channels", nil,
		"column indexes of multi-channel recordings")
}

func runTrain(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	root := ""
	if len(args) > 0 {
		root = args[0]
	}

	return application.Train(cmd.Context(), app.TrainOptions{
		Root:          root,
		DatasetImport: trainImport,
	})
}
