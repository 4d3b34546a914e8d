// Package advice turns a ScenarioResult into verdicts and recommendations.
package advice

import (
	"fmt"
	"io"

	"github.com/constructrisk/riskopt/sim"
)

// Threshold constants for the verdicts.
const (
	LowMargin        = 0.05
	AcceptableMargin = 0.15
	HighRisk         = 0.6
	ModerateRisk     = 0.4
	MarginDeltaStep  = 0.01
	RiskDeltaStep    = 0.1
)

// Level grades one dimension of a scenario.
type Level string

const (
	LevelLoss       Level = "loss"
	LevelLow        Level = "low"
	LevelAcceptable Level = "acceptable"
	LevelGood       Level = "good"

	LevelHighRisk     Level = "high"
	LevelModerateRisk Level = "moderate"
	LevelLowRisk      Level = "low"
)

// Assessment is the presentation summary of one scenario.
type Assessment struct {
	MarginLevel     Level    `json:"margin_level"`
	RiskLevel       Level    `json:"risk_level"`
	Verdict         string   `json:"verdict"`
	Recommendations []string `json:"recommendations"`
}

// Assess grades the scenario margin and risk and lists recommendations,
// including notes on how the scenario moved against its baseline.
func Assess(r sim.ScenarioResult) Assessment {
	var a Assessment
	var marginText, riskText string

	switch m := r.ScenarioMargin; {
	case m < 0:
		a.MarginLevel = LevelLoss
		marginText = "Negative margin: the project is forecast to lose money."
		a.Recommendations = append(a.Recommendations,
			"Revisit the estimate: cut material or logistics costs, or raise the planned budget.",
			"Consider a more experienced crew (higher efficiency for the same schedule).")
	case m < LowMargin:
		a.MarginLevel = LevelLow
		marginText = "Low margin: little buffer against risk."
		a.Recommendations = append(a.Recommendations,
			"Add a budget buffer or cut costs (suppliers, delivery, materials class).")
	case m < AcceptableMargin:
		a.MarginLevel = LevelAcceptable
		marginText = "Margin is in the acceptable range."
	default:
		a.MarginLevel = LevelGood
		marginText = "Good forecast margin."
	}

	switch p := r.ScenarioRisk; {
	case p > HighRisk:
		a.RiskLevel = LevelHighRisk
		riskText = "High risk of budget overrun."
		a.Recommendations = append(a.Recommendations,
			"Tighten control: pick more reliable suppliers (supplier_reliability_score closer to 1.0).",
			"Reduce logistics risk: shorten the delivery distance or add schedule slack.",
			"If possible, move the start to a season with better weather (summer).")
	case p > ModerateRisk:
		a.RiskLevel = LevelModerateRisk
		riskText = "Moderate risk of budget overrun."
		a.Recommendations = append(a.Recommendations,
			"Monitor the key drivers: material prices, delivery times, weather.")
	default:
		a.RiskLevel = LevelLowRisk
		riskText = "Low risk of budget overrun."
	}

	switch {
	case r.DeltaMargin > MarginDeltaStep:
		a.Recommendations = append(a.Recommendations,
			"These parameters improve the margin over the baseline project; the scenario is more profitable.")
	case r.DeltaMargin < -MarginDeltaStep:
		a.Recommendations = append(a.Recommendations,
			"These parameters reduce the margin against the baseline; consider rolling back some changes.")
	}
	switch {
	case r.DeltaRisk > RiskDeltaStep:
		a.Recommendations = append(a.Recommendations,
			"Overrun risk grew against the baseline; tighten control or soften conditions (suppliers, schedule, season).")
	case r.DeltaRisk < -RiskDeltaStep:
		a.Recommendations = append(a.Recommendations,
			"Overrun risk fell; the scenario is safer than the baseline.")
	}

	a.Verdict = marginText + " " + riskText
	return a
}

// FormatMargin renders a margin fraction as a signed percentage, e.g. "+12.3%".
func FormatMargin(m float64) string {
	return fmt.Sprintf("%+.1f%%", m*100)
}

// FormatRisk renders a probability as a percentage, e.g. "41.0%".
func FormatRisk(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// FormatRiskDelta renders a probability change in percentage points.
func FormatRiskDelta(d float64) string {
	return fmt.Sprintf("%+.1f pp", d*100)
}

// Render writes the console report for one simulation.
func Render(w io.Writer, baseIndex int, r sim.ScenarioResult) error {
	a := Assess(r)
	if _, err := fmt.Fprintf(w, "Project %d\n", baseIndex); err != nil {
		return err
	}
	fmt.Fprintf(w, "  baseline   margin %s  risk %s\n", FormatMargin(r.OriginalMargin), FormatRisk(r.OriginalRisk))
	fmt.Fprintf(w, "  scenario   margin %s  risk %s\n", FormatMargin(r.ScenarioMargin), FormatRisk(r.ScenarioRisk))
	fmt.Fprintf(w, "  change     margin %s  risk %s\n", FormatMargin(r.DeltaMargin), FormatRiskDelta(r.DeltaRisk))
	fmt.Fprintf(w, "\n%s\n", a.Verdict)
	if len(a.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
	return nil
}
