package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Scorer is an opaque predictor over encoded feature vectors.
// The margin predictor returns a point estimate; the risk predictor returns the
// positive-class probability.
type Scorer interface {
	Score(features []float64) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(features []float64) float64

func (f ScorerFunc) Score(features []float64) float64 { return f(features) }

// ScenarioResult is the outcome of one what-if simulation.
// Deltas are scenario minus original.
type ScenarioResult struct {
	OriginalMargin float64 `json:"original_margin_pred" yaml:"original_margin_pred"`
	ScenarioMargin float64 `json:"scenario_margin_pred" yaml:"scenario_margin_pred"`
	OriginalRisk   float64 `json:"original_risk_prob" yaml:"original_risk_prob"`
	ScenarioRisk   float64 `json:"scenario_risk_prob" yaml:"scenario_risk_prob"`
	DeltaMargin    float64 `json:"delta_margin" yaml:"delta_margin"`
	DeltaRisk      float64 `json:"delta_risk" yaml:"delta_risk"`
}

// Simulator scores what-if scenarios against a fixed dataset and artifact bundle.
// It holds no mutable state: one Simulator may serve concurrent Simulate calls.
type Simulator struct {
	dataset *Dataset
	table   *CategoryTable
	margin  Scorer
	risk    Scorer
}

// NewSimulator wires a dataset, the fitted category table and both predictors.
func NewSimulator(ds *Dataset, table *CategoryTable, margin, risk Scorer) (*Simulator, error) {
	switch {
	case ds == nil:
		return nil, errors.New("simulator: nil dataset")
	case table == nil:
		return nil, errors.New("simulator: nil category table")
	case margin == nil || risk == nil:
		return nil, errors.New("simulator: both margin and risk predictors are required")
	}
	return &Simulator{dataset: ds, table: table, margin: margin, risk: risk}, nil
}

// Open loads the dataset and the artifact bundle once and returns a ready Simulator.
func Open(dataPath, artifactDir string) (*Simulator, error) {
	ds, err := LoadDataset(dataPath)
	if err != nil {
		return nil, err
	}
	b, err := LoadBundle(artifactDir)
	if err != nil {
		return nil, err
	}
	// Every stored row must encode with the bundle's table, otherwise the
	// dataset and artifacts come from different training runs.
	if _, err := b.Table.EncodeAll(ds.Rows()); err != nil {
		return nil, fmt.Errorf("%w: dataset %s does not match bundle %s: %v", ErrArtifact, dataPath, artifactDir, err)
	}
	logrus.Debugf("simulator: %d rows from %s, bundle %s (created %s)",
		ds.Len(), dataPath, artifactDir, b.Manifest.CreatedAt.Format("2006-01-02T15:04:05Z"))
	return NewSimulator(ds, b.Table, b.Margin, b.Risk)
}

// SimulateScenario is the one-shot form: it loads the dataset and bundle, runs a
// single simulation and discards them.
func SimulateScenario(dataPath, artifactDir string, baseIndex int, overrides Overrides) (ScenarioResult, error) {
	s, err := Open(dataPath, artifactDir)
	if err != nil {
		return ScenarioResult{}, err
	}
	return s.Simulate(baseIndex, overrides)
}

// Rows returns the number of addressable base rows.
func (s *Simulator) Rows() int {
	return s.dataset.Len()
}

// Table returns the category table used for encoding.
func (s *Simulator) Table() *CategoryTable {
	return s.table
}

// Baseline returns a copy of the base row at index i.
func (s *Simulator) Baseline(i int) (Project, error) {
	return s.dataset.Row(i)
}

// Simulate copies row baseIndex, applies overrides to the copy and scores both
// rows with the margin and risk predictors.
//
// Errors: *RangeError (ErrIndexOutOfRange) for a bad index, *FieldError
// (ErrUnknownField / ErrInvalidValue) for bad overrides, ErrArtifact when the
// base row does not encode with the table or a predictor yields a non-finite score.
func (s *Simulator) Simulate(baseIndex int, overrides Overrides) (ScenarioResult, error) {
	original, err := s.dataset.Row(baseIndex)
	if err != nil {
		return ScenarioResult{}, err
	}
	scenario := original
	if err := ApplyOverrides(&scenario, overrides); err != nil {
		return ScenarioResult{}, err
	}

	// Both rows go through the same table: unchanged categories share codes.
	originalVec, err := s.table.Encode(&original)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("%w: encoding base row %d: %v", ErrArtifact, baseIndex, err)
	}
	scenarioVec, err := s.table.Encode(&scenario)
	if err != nil {
		return ScenarioResult{}, err
	}

	var r ScenarioResult
	if r.OriginalMargin, err = score("margin", s.margin, originalVec); err != nil {
		return ScenarioResult{}, err
	}
	if r.ScenarioMargin, err = score("margin", s.margin, scenarioVec); err != nil {
		return ScenarioResult{}, err
	}
	if r.OriginalRisk, err = score("risk", s.risk, originalVec); err != nil {
		return ScenarioResult{}, err
	}
	if r.ScenarioRisk, err = score("risk", s.risk, scenarioVec); err != nil {
		return ScenarioResult{}, err
	}
	r.OriginalRisk = clamp01(r.OriginalRisk)
	r.ScenarioRisk = clamp01(r.ScenarioRisk)
	r.DeltaMargin = r.ScenarioMargin - r.OriginalMargin
	r.DeltaRisk = r.ScenarioRisk - r.OriginalRisk
	return r, nil
}

func score(name string, sc Scorer, vec []float64) (float64, error) {
	v := sc.Score(vec)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s predictor returned non-finite score %v", ErrArtifact, name, v)
	}
	return v, nil
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
