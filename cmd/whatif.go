package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/advice"
	"github.com/constructrisk/riskopt/sim/journal"
	"github.com/constructrisk/riskopt/sim/server"
)

var (
	whatifBase   int
	whatifSets   []string
	whatifJSON   bool
	whatifRecord bool
)

var whatifCmd = &cobra.Command{
	Use:   "whatif",
	Short: "Simulate one scenario against a base project",
	Long: "Copy project --base, apply every --set field=value override, and compare predicted margin " +
		"and overrun risk of the baseline and the scenario.",
	Example: "  riskopt whatif --base 0 --set materials_class=premium --set delivery_distance_km=10",
	Run: func(cmd *cobra.Command, args []string) {
		req := whatifRequest{
			Base:   whatifBase,
			Sets:   whatifSets,
			JSON:   whatifJSON,
			Record: whatifRecord,
		}
		if err := runWhatIf(cmd.Context(), cmd.OutOrStdout(), appConfig, req); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

type whatifRequest struct {
	Base   int
	Sets   []string
	JSON   bool
	Record bool
}

// runWhatIf loads the simulator, runs one scenario and writes the report to w.
func runWhatIf(ctx context.Context, w io.Writer, cfg Config, req whatifRequest) error {
	overrides, err := sim.ParseOverrides(req.Sets)
	if err != nil {
		return err
	}
	s, err := sim.Open(cfg.Data, cfg.Artifacts)
	if err != nil {
		return err
	}
	res, err := s.Simulate(req.Base, overrides)
	if err != nil {
		return err
	}

	resp := server.SimulateResponse{Result: res, Assessment: advice.Assess(res)}
	if req.Record {
		id, err := recordScenario(ctx, cfg.Journal, req.Base, overrides, res)
		if err != nil {
			return err
		}
		resp.JournalID = id
	}

	if req.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if err := advice.Render(w, req.Base, res); err != nil {
		return err
	}
	if resp.JournalID != "" {
		_, err = fmt.Fprintf(w, "\nRecorded as %s\n", resp.JournalID)
	}
	return err
}

func recordScenario(ctx context.Context, path string, base int, o sim.Overrides, r sim.ScenarioResult) (string, error) {
	if path == "" {
		return "", errors.New("recording requested but no journal configured")
	}
	j, err := journal.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = j.Close() }()
	e, err := j.Record(ctx, base, o, r)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

func init() {
	whatifCmd.Flags().IntVar(&whatifBase, "base", 0, "Index of the base project in the dataset")
	whatifCmd.Flags().StringArrayVar(&whatifSets, "set", nil, "Override as field=value (can be repeated)")
	whatifCmd.Flags().BoolVar(&whatifJSON, "json", false, "Print the result as JSON")
	whatifCmd.Flags().BoolVar(&whatifRecord, "record", false, "Store the scenario in the journal")

	rootCmd.AddCommand(whatifCmd)
}
