// Package synth generates synthetic construction projects.
//
// The generator follows a fixed statistical recipe: district and land draws,
// house size and materials, crew and supplier quality, market indices, then the
// derived delay, cost, margin and overrun outcomes. Two hidden factors
// (management quality and unexpected events) drive the outcomes without ever
// appearing as feature columns.
package synth

import (
	"fmt"
	"math"
)

// Range is a closed interval [Min, Max] for a uniform market index draw.
type Range struct {
	Min float64 `yaml:"min" mapstructure:"min" json:"min"`
	Max float64 `yaml:"max" mapstructure:"max" json:"max"`
}

// Validate checks that Min <= Max and both are finite.
func (r Range) Validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("%s range must be finite, got [%v, %v]", name, r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s range min %v exceeds max %v", name, r.Min, r.Max)
	}
	return nil
}

// Config controls dataset size, seed and the market conditions.
type Config struct {
	Projects      int   `yaml:"projects" mapstructure:"projects" json:"projects"`
	Seed          int64 `yaml:"seed" mapstructure:"seed" json:"seed"`
	MaterialPrice Range `yaml:"material_price" mapstructure:"material_price" json:"material_price"`
	MortgageRate  Range `yaml:"mortgage_rate" mapstructure:"mortgage_rate" json:"mortgage_rate"`
	MarketDemand  Range `yaml:"market_demand" mapstructure:"market_demand" json:"market_demand"`
	LaborCost     Range `yaml:"labor_cost" mapstructure:"labor_cost" json:"labor_cost"`
}

// DefaultConfig returns 6000 projects, seed 42 and a stable market.
func DefaultConfig() Config {
	return Config{
		Projects:      6000,
		Seed:          42,
		MaterialPrice: Range{Min: 0.9, Max: 1.1},
		MortgageRate:  Range{Min: 7.0, Max: 12.0},
		MarketDemand:  Range{Min: 0.8, Max: 1.2},
		LaborCost:     Range{Min: 0.9, Max: 1.2},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Projects <= 0 {
		return fmt.Errorf("projects must be positive, got %d", c.Projects)
	}
	for _, r := range []struct {
		name string
		rng  Range
	}{
		{"material_price", c.MaterialPrice},
		{"mortgage_rate", c.MortgageRate},
		{"market_demand", c.MarketDemand},
		{"labor_cost", c.LaborCost},
	} {
		if err := r.rng.Validate(r.name); err != nil {
			return err
		}
	}
	if c.MaterialPrice.Min <= 0 {
		return fmt.Errorf("material_price min must be positive, got %v", c.MaterialPrice.Min)
	}
	if c.LaborCost.Min <= 0 {
		return fmt.Errorf("labor_cost min must be positive, got %v", c.LaborCost.Min)
	}
	return nil
}
