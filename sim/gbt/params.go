// Package gbt implements second-order gradient-boosted regression trees.
//
// Two objectives are supported: squared error (point estimates) and logistic
// (positive-class probabilities). Training is deterministic for a given seed:
// row and column sampling draw from a single seeded PCG stream and split search
// walks features and rows in a fixed order.
//
// Callers in sim only see an Ensemble through sim.Scorer, so another trainer
// can replace this package without touching the simulator.
package gbt

import (
	"fmt"
	"math"
)

// Objective selects the loss being boosted.
type Objective string

const (
	SquaredError Objective = "reg:squarederror"
	Logistic     Objective = "binary:logistic"
)

// Params configures one boosting run.
type Params struct {
	Objective      Objective `json:"objective"`
	NumTrees       int       `json:"num_trees"`
	MaxDepth       int       `json:"max_depth"`
	LearningRate   float64   `json:"learning_rate"`
	Subsample      float64   `json:"subsample"`        // fraction of rows per tree
	ColSample      float64   `json:"colsample_bytree"` // fraction of features per tree
	Lambda         float64   `json:"lambda"`           // L2 penalty on leaf weights
	MinChildWeight float64   `json:"min_child_weight"` // minimum hessian sum per child
	Seed           int64     `json:"seed"`
}

// Option mutates Params.
type Option func(*Params)

func WithTrees(n int) Option              { return func(p *Params) { p.NumTrees = n } }
func WithMaxDepth(d int) Option           { return func(p *Params) { p.MaxDepth = d } }
func WithLearningRate(eta float64) Option { return func(p *Params) { p.LearningRate = eta } }
func WithSubsample(f float64) Option      { return func(p *Params) { p.Subsample = f } }
func WithColSample(f float64) Option      { return func(p *Params) { p.ColSample = f } }
func WithSeed(seed int64) Option          { return func(p *Params) { p.Seed = seed } }

// NewParams returns the default configuration for obj with opts applied.
// Defaults: 200 trees, depth 5, learning rate 0.1, subsample 0.9,
// colsample 0.9, lambda 1, min child weight 1, seed 42.
func NewParams(obj Objective, opts ...Option) Params {
	p := Params{
		Objective:      obj,
		NumTrees:       200,
		MaxDepth:       5,
		LearningRate:   0.1,
		Subsample:      0.9,
		ColSample:      0.9,
		Lambda:         1,
		MinChildWeight: 1,
		Seed:           42,
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch p.Objective {
	case SquaredError, Logistic:
	default:
		return fmt.Errorf("unknown objective %q; valid: %s, %s", p.Objective, SquaredError, Logistic)
	}
	if p.NumTrees <= 0 {
		return fmt.Errorf("num_trees must be positive, got %d", p.NumTrees)
	}
	if p.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	}
	if !finite(p.LearningRate) || p.LearningRate <= 0 || p.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", p.LearningRate)
	}
	if !finite(p.Subsample) || p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	}
	if !finite(p.ColSample) || p.ColSample <= 0 || p.ColSample > 1 {
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %v", p.ColSample)
	}
	if !finite(p.Lambda) || p.Lambda < 0 {
		return fmt.Errorf("lambda must be non-negative, got %v", p.Lambda)
	}
	if !finite(p.MinChildWeight) || p.MinChildWeight < 0 {
		return fmt.Errorf("min_child_weight must be non-negative, got %v", p.MinChildWeight)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
