package sim

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/constructrisk/riskopt/sim/gbt"
)

// testProjects builds n deterministic rows covering every category. Margin
// falls with premium materials and delivery distance; overrun follows margin.
func testProjects(n int) []Project {
	rng := rand.New(rand.NewPCG(7, 11))
	classes := []string{"econom", "standard", "premium"}
	seasons := []string{"winter", "spring", "summer", "autumn"}
	clients := []string{"private", "commercial"}

	rows := make([]Project, n)
	for i := range rows {
		p := Project{
			DistrictClass:            classes[i%3],
			LandPricePerM2:           3000 + rng.IntN(20000),
			SoilComplexity:           1 + rng.IntN(5),
			SiteAccessibility:        1 + rng.IntN(5),
			LandAreaM2:               400 + rng.IntN(600),
			HouseAreaM2:              80 + 270*rng.Float64(),
			DesignComplexity:         1 + rng.IntN(5),
			MaterialsClass:           classes[(i/3)%3],
			PlannedDurationDays:      60 + rng.IntN(200),
			PlannedBudget:            1e7 + 3e7*rng.Float64(),
			CrewExperienceYears:      1 + rng.IntN(10),
			CrewEfficiencyScore:      0.7 + 0.3*rng.Float64(),
			CrewCurrentLoad:          rng.IntN(4),
			SupplierReliabilityScore: 0.7 + 0.3*rng.Float64(),
			DeliveryDistanceKm:       5 + rng.IntN(46),
			WeatherSeason:            seasons[i%4],
			MaterialPriceIndex:       0.9 + 0.2*rng.Float64(),
			MortgageRate:             7 + 5*rng.Float64(),
			MarketDemandIndex:        0.8 + 0.4*rng.Float64(),
			ClientType:               clients[i%2],
			LaborCostIndex:           0.9 + 0.3*rng.Float64(),
		}
		p.ActualMargin = 0.2 - 0.004*float64(p.DeliveryDistanceKm)
		if p.MaterialsClass == "premium" {
			p.ActualMargin -= 0.1
		}
		p.ActualMargin += 0.01 * rng.NormFloat64()
		if p.ActualMargin < 0.05 {
			p.BudgetOverrun = 1
		}
		p.ActualCost = p.PlannedBudget * (1 - p.ActualMargin)
		p.FinalProfit = p.PlannedBudget - p.ActualCost
		rows[i] = p
	}
	return rows
}

type testFixture struct {
	rows   []Project
	bundle *Bundle
	sim    *Simulator
}

// newTestFixture fits a small margin and risk ensemble over testProjects.
func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	rows := testProjects(240)
	table := FitCategoryTable(rows)
	X, err := table.EncodeAll(rows)
	require.NoError(t, err)

	margins := make([]float64, len(rows))
	overruns := make([]float64, len(rows))
	for i := range rows {
		margins[i] = rows[i].ActualMargin
		overruns[i] = float64(rows[i].BudgetOverrun)
	}
	ctx := context.Background()
	margin, err := gbt.Fit(ctx, X, margins, gbt.NewParams(gbt.SquaredError, gbt.WithTrees(40), gbt.WithMaxDepth(3), gbt.WithColSample(1)))
	require.NoError(t, err)
	risk, err := gbt.Fit(ctx, X, overruns, gbt.NewParams(gbt.Logistic, gbt.WithTrees(40), gbt.WithMaxDepth(3), gbt.WithColSample(1)))
	require.NoError(t, err)

	b := NewBundle(table, margin, risk, 42, nil)
	s, err := NewSimulator(NewDataset(rows), table, margin, risk)
	require.NoError(t, err)
	return &testFixture{rows: rows, bundle: b, sim: s}
}

// writeFixture persists the fixture's dataset and bundle under a temp dir.
func (f *testFixture) writeFixture(t *testing.T) (dataPath, artifactDir string) {
	t.Helper()
	dir := t.TempDir()
	dataPath = filepath.Join(dir, "data", "projects.csv")
	artifactDir = filepath.Join(dir, "models")
	require.NoError(t, WriteDataset(dataPath, f.rows))
	require.NoError(t, SaveBundle(artifactDir, f.bundle))
	return dataPath, artifactDir
}
