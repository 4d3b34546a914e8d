package gbt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Node is one tree node. Internal nodes route x[Feature] < Threshold to Left,
// everything else to Right. Children always have larger indices than their parent.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`          // leaf weight, already scaled by the learning rate
	Gain      float64 `json:"gain,omitempty"` // split gain of internal nodes
	Cover     float64 `json:"cover"`          // hessian sum of training rows reaching the node
}

// Tree is a flat binary regression tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Ensemble is a trained boosted model.
type Ensemble struct {
	Objective   Objective `json:"objective"`
	NumFeatures int       `json:"num_features"`
	BaseScore   float64   `json:"base_score"` // initial margin
	Params      Params    `json:"params"`
	Trees       []Tree    `json:"trees"`
}

// Margin returns the raw additive score (log-odds for the logistic objective).
// A vector of the wrong width yields NaN.
func (e *Ensemble) Margin(x []float64) float64 {
	if len(x) != e.NumFeatures {
		return math.NaN()
	}
	s := e.BaseScore
	for i := range e.Trees {
		s += e.Trees[i].predict(x)
	}
	return s
}

// Predict returns the model output: the margin for squared error, the
// positive-class probability for the logistic objective.
func (e *Ensemble) Predict(x []float64) float64 {
	m := e.Margin(x)
	if e.Objective == Logistic {
		return sigmoid(m)
	}
	return m
}

// Score satisfies sim.Scorer.
func (e *Ensemble) Score(x []float64) float64 {
	return e.Predict(x)
}

// Importance returns the total split gain accumulated by each feature.
func (e *Ensemble) Importance() []float64 {
	gain := make([]float64, e.NumFeatures)
	for _, t := range e.Trees {
		for _, n := range t.Nodes {
			if !n.Leaf {
				gain[n.Feature] += n.Gain
			}
		}
	}
	return gain
}

// Save writes the ensemble as JSON.
func (e *Ensemble) Save(path string) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling ensemble: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing ensemble: %w", err)
	}
	return nil
}

// Load reads and validates an ensemble written by Save.
func Load(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ensemble: %w", err)
	}
	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing ensemble: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ensemble %s: %w", path, err)
	}
	return &e, nil
}

// Validate checks structural integrity so that prediction always terminates
// and never indexes out of range.
func (e *Ensemble) Validate() error {
	switch e.Objective {
	case SquaredError, Logistic:
	default:
		return fmt.Errorf("unknown objective %q", e.Objective)
	}
	if e.NumFeatures <= 0 {
		return fmt.Errorf("num_features must be positive, got %d", e.NumFeatures)
	}
	if !finite(e.BaseScore) {
		return errors.New("base_score is not finite")
	}
	for ti, t := range e.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if !finite(n.Value) {
					return fmt.Errorf("tree %d node %d: leaf value is not finite", ti, ni)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= e.NumFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: bad children %d/%d", ti, ni, n.Left, n.Right)
			}
			if math.IsNaN(n.Threshold) {
				return fmt.Errorf("tree %d node %d: threshold is NaN", ti, ni)
			}
		}
	}
	return nil
}

func sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}
