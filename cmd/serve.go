package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/journal"
	"github.com/constructrisk/riskopt/sim/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the what-if API over HTTP",
	Long:  "Load the dataset and bundle once and answer /simulate requests until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := appConfig
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		if err := runServe(cmd.Context(), cfg); err != nil {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

// newHandler builds the API handler. The returned cleanup closes the journal.
func newHandler(ctx context.Context, cfg Config) (*server.Server, func(), error) {
	s, err := sim.Open(cfg.Data, cfg.Artifacts)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Journal == "" {
		logrus.Warnf("No journal configured; scenarios will not be recorded")
		return server.New(s, nil, cfg.Server.HTTP()), func() {}, nil
	}
	j, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := j.Close(); err != nil {
			logrus.Warnf("closing journal: %v", err)
		}
	}
	return server.New(s, j, cfg.Server.HTTP()), cleanup, nil
}

func runServe(ctx context.Context, cfg Config) error {
	h, cleanup, err := newHandler(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return server.ListenAndServe(ctx, cfg.Server.Addr, h)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")

	rootCmd.AddCommand(serveCmd)
}
