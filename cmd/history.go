package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/constructrisk/riskopt/sim/advice"
	"github.com/constructrisk/riskopt/sim/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scenarios, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runHistory(cmd.Context(), cmd.OutOrStdout(), appConfig.Journal, historyLimit); err != nil {
			logrus.Fatalf("History failed: %v", err)
		}
	},
}

func runHistory(ctx context.Context, w io.Writer, path string, limit int) error {
	if path == "" {
		return errors.New("no journal configured")
	}
	j, err := journal.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	entries, err := j.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No scenarios recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\trecorded\tbase\tmargin change\trisk change\toverrides")
	for _, e := range entries {
		overrides, err := json.Marshal(e.Overrides)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), e.BaseIndex,
			advice.FormatMargin(e.Result.DeltaMargin), advice.FormatRiskDelta(e.Result.DeltaRisk), overrides)
	}
	return tw.Flush()
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to list (0 lists all)")

	rootCmd.AddCommand(historyCmd)
}
