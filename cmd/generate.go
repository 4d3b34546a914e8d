package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/synth"
)

var (
	genProjects int
	genSeed     int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic construction project dataset",
	Long:  "Generate synthetic projects with market conditions from the synth section of the config and write them to --data.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := appConfig.Synth
		if cmd.Flags().Changed("projects") {
			cfg.Projects = genProjects
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = genSeed
		}
		if err := runGenerate(cfg, appConfig.Data); err != nil {
			logrus.Fatalf("Generation failed: %v", err)
		}
	},
}

// runGenerate writes cfg.Projects synthetic rows to path.
func runGenerate(cfg synth.Config, path string) error {
	rows, err := synth.Generate(cfg)
	if err != nil {
		return err
	}
	if err := sim.WriteDataset(path, rows); err != nil {
		return err
	}
	var overruns int
	for i := range rows {
		if rows[i].Overrun() {
			overruns++
		}
	}
	logrus.Infof("Wrote %d projects to %s (%.1f%% over budget)", len(rows), path, 100*float64(overruns)/float64(len(rows)))
	return nil
}

func init() {
	d := synth.DefaultConfig()
	generateCmd.Flags().IntVar(&genProjects, "projects", d.Projects, "Number of projects to generate")
	generateCmd.Flags().Int64Var(&genSeed, "seed", d.Seed, "Generator seed")

	rootCmd.AddCommand(generateCmd)
}
