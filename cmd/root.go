package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel    string // Log verbosity level
	configPath  string // Optional riskopt.yaml path
	dataPath    string // Dataset CSV
	artifactDir string // Trained bundle directory
	journalPath string // Scenario journal database

	// appConfig is resolved once per invocation by PersistentPreRunE.
	appConfig Config
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "riskopt",
	Short: "What-if simulator for construction project margin and budget-overrun risk",
	Long: "riskopt scores a baseline construction project and a modified scenario with a margin " +
		"regressor and an overrun-risk classifier, and reports how the change moves both.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// setup configures logging and resolves the layered configuration.
// Explicit flags win over config file and environment (Changed check).
func setup(cmd *cobra.Command, _ []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logrus.SetLevel(level)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data = dataPath
	}
	if flags.Changed("artifacts") {
		cfg.Artifacts = artifactDir
	}
	if flags.Changed("journal-db") {
		cfg.Journal = journalPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	appConfig = cfg
	logrus.Debugf("config: data=%s artifacts=%s journal=%s", cfg.Data, cfg.Artifacts, cfg.Journal)
	return nil
}

// Execute runs the CLI root command. SIGINT/SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	pf.StringVar(&configPath, "config", "", "Config file (default ./riskopt.yaml when present)")
	pf.StringVar(&dataPath, "data", "data/raw/synthetic_construction_projects.csv", "Project dataset CSV")
	pf.StringVar(&artifactDir, "artifacts", "models", "Directory holding the trained model bundle")
	pf.StringVar(&journalPath, "journal-db", "data/journal.db", "SQLite scenario journal (empty disables it)")
}
