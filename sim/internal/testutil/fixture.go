// Package testutil provides shared test infrastructure for the riskopt
// simulator: a small generated dataset with a bundle trained on it, and
// float assertion helpers for sim/ sub-package tests.
package testutil

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/synth"
	"github.com/constructrisk/riskopt/sim/train"
)

// FixtureRows is the size of the generated fixture dataset.
const FixtureRows = 300

// Fixture is a dataset file plus a trained artifact bundle on disk.
type Fixture struct {
	DataPath    string
	ArtifactDir string
	Rows        []sim.Project
	Report      *train.Report
}

var (
	rowsOnce sync.Once
	rows     []sim.Project
	rowsErr  error
)

// Projects returns the deterministic fixture rows (generated once per process).
func Projects(t *testing.T) []sim.Project {
	t.Helper()
	rowsOnce.Do(func() {
		cfg := synth.DefaultConfig()
		cfg.Projects = FixtureRows
		rows, rowsErr = synth.Generate(cfg)
	})
	if rowsErr != nil {
		t.Fatalf("generating fixture rows: %v", rowsErr)
	}
	out := make([]sim.Project, len(rows))
	copy(out, rows)
	return out
}

// TrainOptions are the fast training settings used by fixtures.
func TrainOptions() train.Options {
	o := train.DefaultOptions()
	o.Trees = 25
	o.MaxDepth = 3
	return o
}

// NewFixture writes the fixture dataset under a temp dir and trains a bundle
// next to it.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	dir := t.TempDir()
	f := &Fixture{
		DataPath:    filepath.Join(dir, "data", "projects.csv"),
		ArtifactDir: filepath.Join(dir, "models"),
		Rows:        Projects(t),
	}
	if err := sim.WriteDataset(f.DataPath, f.Rows); err != nil {
		t.Fatalf("writing fixture dataset: %v", err)
	}
	report, err := train.Run(context.Background(), f.DataPath, f.ArtifactDir, TrainOptions())
	if err != nil {
		t.Fatalf("training fixture bundle: %v", err)
	}
	f.Report = report
	return f
}

// Simulator opens the fixture's dataset and bundle.
func (f *Fixture) Simulator(t *testing.T) *sim.Simulator {
	t.Helper()
	s, err := sim.Open(f.DataPath, f.ArtifactDir)
	if err != nil {
		t.Fatalf("opening fixture simulator: %v", err)
	}
	return s
}

// AssertRelClose fails when got differs from want by more than relTol of the
// larger magnitude. Two zeros compare equal.
func AssertRelClose(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	scale := math.Max(math.Abs(want), math.Abs(got))
	if scale == 0 {
		return
	}
	if rel := math.Abs(want-got) / scale; rel > relTol {
		t.Errorf("%s: got %v, want %v (relative difference %.3g > %.3g)", name, got, want, rel, relTol)
	}
}

// AssertFinite fails the test if v is NaN or infinite.
func AssertFinite(t *testing.T, name string, v float64) {
	t.Helper()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("%s: got non-finite %v", name, v)
	}
}
