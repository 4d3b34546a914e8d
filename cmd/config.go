package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/constructrisk/riskopt/sim/server"
	"github.com/constructrisk/riskopt/sim/synth"
	"github.com/constructrisk/riskopt/sim/train"
)

// envPrefix namespaces environment overrides, e.g. RISKOPT_TRAIN_TREES=300.
const envPrefix = "RISKOPT"

// Config is the layered CLI configuration: defaults, then riskopt.yaml, then
// RISKOPT_* environment variables, then explicitly set flags.
type Config struct {
	Data      string        `yaml:"data" mapstructure:"data"`
	Artifacts string        `yaml:"artifacts" mapstructure:"artifacts"`
	Journal   string        `yaml:"journal" mapstructure:"journal"`
	Synth     synth.Config  `yaml:"synth" mapstructure:"synth"`
	Train     train.Options `yaml:"train" mapstructure:"train"`
	Server    ServerConfig  `yaml:"server" mapstructure:"server"`
}

// ServerConfig configures `riskopt serve`.
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// HTTP converts the section into the server package's Config.
func (c ServerConfig) HTTP() server.Config {
	return server.Config{AllowedOrigins: c.AllowedOrigins, Timeout: c.Timeout}
}

func setDefaults(v *viper.Viper) {
	sc := synth.DefaultConfig()
	to := train.DefaultOptions()
	hc := server.DefaultConfig()

	v.SetDefault("data", "data/raw/synthetic_construction_projects.csv")
	v.SetDefault("artifacts", "models")
	v.SetDefault("journal", "data/journal.db")

	v.SetDefault("synth.projects", sc.Projects)
	v.SetDefault("synth.seed", sc.Seed)
	for name, r := range map[string]synth.Range{
		"material_price": sc.MaterialPrice,
		"mortgage_rate":  sc.MortgageRate,
		"market_demand":  sc.MarketDemand,
		"labor_cost":     sc.LaborCost,
	} {
		v.SetDefault("synth."+name+".min", r.Min)
		v.SetDefault("synth."+name+".max", r.Max)
	}

	v.SetDefault("train.test_fraction", to.TestFraction)
	v.SetDefault("train.seed", to.Seed)
	v.SetDefault("train.trees", to.Trees)
	v.SetDefault("train.max_depth", to.MaxDepth)
	v.SetDefault("train.learning_rate", to.LearningRate)
	v.SetDefault("train.subsample", to.Subsample)
	v.SetDefault("train.colsample_bytree", to.ColSample)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", hc.AllowedOrigins)
	v.SetDefault("server.timeout", hc.Timeout)
}

// LoadConfig reads the configuration. An empty path looks for riskopt.yaml in
// the working directory and silently falls back to defaults when absent; an
// explicit path must exist. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("riskopt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	switch {
	case c.Data == "":
		return errors.New("data path must not be empty")
	case c.Artifacts == "":
		return errors.New("artifacts directory must not be empty")
	}
	if err := c.Synth.Validate(); err != nil {
		return fmt.Errorf("synth: %w", err)
	}
	if err := c.Train.Validate(); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server: timeout must not be negative, got %v", c.Server.Timeout)
	}
	return nil
}
