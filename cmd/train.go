package cmd

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/constructrisk/riskopt/sim/train"
)

var (
	trainTrees        int
	trainMaxDepth     int
	trainLearningRate float64
	trainTestFraction float64
	trainSeed         int64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the margin and risk models and write the artifact bundle",
	Run: func(cmd *cobra.Command, args []string) {
		opts := appConfig.Train
		f := cmd.Flags()
		if f.Changed("trees") {
			opts.Trees = trainTrees
		}
		if f.Changed("max-depth") {
			opts.MaxDepth = trainMaxDepth
		}
		if f.Changed("learning-rate") {
			opts.LearningRate = trainLearningRate
		}
		if f.Changed("test-fraction") {
			opts.TestFraction = trainTestFraction
		}
		if f.Changed("seed") {
			opts.Seed = trainSeed
		}
		if err := runTrain(cmd.Context(), cmd.OutOrStdout(), appConfig.Data, appConfig.Artifacts, opts); err != nil {
			logrus.Fatalf("Training failed: %v", err)
		}
	},
}

// runTrain trains on dataPath, saves the bundle and prints held-out metrics to w.
func runTrain(ctx context.Context, w io.Writer, dataPath, artifactDir string, opts train.Options) error {
	logrus.Infof("Training on %s (%d trees, depth %d)", dataPath, opts.Trees, opts.MaxDepth)
	report, err := train.Run(ctx, dataPath, artifactDir, opts)
	if err != nil {
		return err
	}
	logrus.Infof("Bundle written to %s in %s", artifactDir, report.Elapsed)
	return report.Print(w)
}

func init() {
	d := train.DefaultOptions()
	trainCmd.Flags().IntVar(&trainTrees, "trees", d.Trees, "Boosting rounds per model")
	trainCmd.Flags().IntVar(&trainMaxDepth, "max-depth", d.MaxDepth, "Maximum tree depth")
	trainCmd.Flags().Float64Var(&trainLearningRate, "learning-rate", d.LearningRate, "Shrinkage per tree")
	trainCmd.Flags().Float64Var(&trainTestFraction, "test-fraction", d.TestFraction, "Hold-out fraction for evaluation")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", d.Seed, "Split and sampling seed")

	rootCmd.AddCommand(trainCmd)
}
