package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/explain"
)

var (
	explainTop  int
	explainXLSX string
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Rank features by their contribution to each trained model",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExplain(cmd.OutOrStdout(), appConfig.Artifacts, explainTop, explainXLSX); err != nil {
			logrus.Fatalf("Explain failed: %v", err)
		}
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Summarize the project dataset",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDescribe(cmd.OutOrStdout(), appConfig.Data); err != nil {
			logrus.Fatalf("Describe failed: %v", err)
		}
	},
}

func runExplain(w io.Writer, artifactDir string, top int, xlsxPath string) error {
	b, err := sim.LoadBundle(artifactDir)
	if err != nil {
		return err
	}
	r, err := explain.Importance(b)
	if err != nil {
		return err
	}
	if err := explain.Print(w, r, top); err != nil {
		return err
	}
	if xlsxPath != "" {
		if err := explain.WriteWorkbook(xlsxPath, r); err != nil {
			return err
		}
		logrus.Infof("Importance workbook written to %s", xlsxPath)
	}
	return nil
}

func runDescribe(w io.Writer, dataPath string) error {
	ds, err := sim.LoadDataset(dataPath)
	if err != nil {
		return err
	}
	p, err := explain.Describe(ds.Rows())
	if err != nil {
		return err
	}
	return explain.PrintProfile(w, p)
}

func init() {
	explainCmd.Flags().IntVar(&explainTop, "top", 10, "Features to list per model (0 lists all)")
	explainCmd.Flags().StringVar(&explainXLSX, "xlsx", "", "Also write the full ranking to this .xlsx file")

	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(describeCmd)
}
