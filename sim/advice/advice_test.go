package advice

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constructrisk/riskopt/sim"
)

func TestAssess_Levels(t *testing.T) {
	tests := []struct {
		name       string
		margin     float64
		risk       float64
		wantMargin Level
		wantRisk   Level
		wantRecs   int
	}{
		{"loss and high risk", -0.02, 0.7, LevelLoss, LevelHighRisk, 5},
		{"low margin moderate risk", 0.03, 0.5, LevelLow, LevelModerateRisk, 2},
		{"acceptable low risk", 0.10, 0.2, LevelAcceptable, LevelLowRisk, 0},
		{"good margin", 0.15, 0.4, LevelGood, LevelLowRisk, 0},
		{"risk exactly at high threshold is moderate", 0.2, 0.6, LevelGood, LevelModerateRisk, 1},
		{"zero margin is low, not loss", 0, 0, LevelLow, LevelLowRisk, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a scenario equal to its baseline
			r := sim.ScenarioResult{
				OriginalMargin: tt.margin, ScenarioMargin: tt.margin,
				OriginalRisk: tt.risk, ScenarioRisk: tt.risk,
			}

			// WHEN assessed
			a := Assess(r)

			// THEN only threshold recommendations appear
			assert.Equal(t, tt.wantMargin, a.MarginLevel)
			assert.Equal(t, tt.wantRisk, a.RiskLevel)
			assert.Len(t, a.Recommendations, tt.wantRecs)
			assert.NotEmpty(t, a.Verdict)
		})
	}
}

func TestAssess_DeltaNarrative(t *testing.T) {
	tests := []struct {
		name     string
		dm, dr   float64
		contains string
	}{
		{"margin up", 0.02, 0, "improve the margin"},
		{"margin down", -0.02, 0, "reduce the margin"},
		{"risk up", 0, 0.15, "risk grew"},
		{"risk down", 0, -0.15, "risk fell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(sim.ScenarioResult{ScenarioMargin: 0.1, ScenarioRisk: 0.1, DeltaMargin: tt.dm, DeltaRisk: tt.dr})
			require.Len(t, a.Recommendations, 1)
			assert.Contains(t, a.Recommendations[0], tt.contains)
		})
	}

	// Small moves stay silent.
	a := Assess(sim.ScenarioResult{ScenarioMargin: 0.1, ScenarioRisk: 0.1, DeltaMargin: 0.01, DeltaRisk: -0.1})
	assert.Empty(t, a.Recommendations)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "+12.3%", FormatMargin(0.123))
	assert.Equal(t, "-4.0%", FormatMargin(-0.04))
	assert.Equal(t, "41.0%", FormatRisk(0.41))
	assert.Equal(t, "+5.5 pp", FormatRiskDelta(0.055))
	assert.Equal(t, "-10.0 pp", FormatRiskDelta(-0.1))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	r := sim.ScenarioResult{
		OriginalMargin: 0.12, ScenarioMargin: -0.01, DeltaMargin: -0.13,
		OriginalRisk: 0.3, ScenarioRisk: 0.65, DeltaRisk: 0.35,
	}
	require.NoError(t, Render(&buf, 7, r))

	out := buf.String()
	assert.Contains(t, out, "Project 7")
	assert.Contains(t, out, "margin +12.0%")
	assert.Contains(t, out, "risk 65.0%")
	assert.Contains(t, out, "+35.0 pp")
	assert.Contains(t, out, "Recommendations:")
}
