// Package explain reports which features drive the trained models and
// profiles the dataset the models were trained on.
package explain

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/gbt"
)

// FeatureWeight is one feature's share of a model's total split gain.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Gain    float64 `json:"gain"`
	Share   float64 `json:"share"`
}

// ModelImportance ranks the features of one model, largest share first.
type ModelImportance struct {
	Model    string          `json:"model"`
	Features []FeatureWeight `json:"features"`
}

// Report holds importance rankings for the margin and the risk models.
type Report struct {
	Models []ModelImportance `json:"models"`
}

// Importance ranks features of both bundle models by total gain.
func Importance(b *sim.Bundle) (Report, error) {
	names := b.Manifest.Features
	var r Report
	for _, m := range []struct {
		name string
		e    *gbt.Ensemble
	}{{"margin", b.Margin}, {"risk", b.Risk}} {
		gain := m.e.Importance()
		if len(gain) != len(names) {
			return Report{}, fmt.Errorf("%s model has %d features, manifest lists %d", m.name, len(gain), len(names))
		}
		r.Models = append(r.Models, ModelImportance{Model: m.name, Features: rank(names, gain)})
	}
	return r, nil
}

func rank(names []string, gain []float64) []FeatureWeight {
	var total float64
	for _, g := range gain {
		total += g
	}
	out := make([]FeatureWeight, len(names))
	for i, n := range names {
		out[i] = FeatureWeight{Feature: n, Gain: gain[i]}
		if total > 0 {
			out[i].Share = gain[i] / total
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Gain != out[j].Gain {
			return out[i].Gain > out[j].Gain
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// Top returns at most n leading features of the named model.
func (r Report) Top(model string, n int) []FeatureWeight {
	for _, m := range r.Models {
		if m.Model == model {
			return m.Features[:min(n, len(m.Features))]
		}
	}
	return nil
}

// Print writes the top n features of each model as a table; n <= 0 prints all.
func Print(w io.Writer, r Report, n int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range r.Models {
		fmt.Fprintf(tw, "%s model\n", m.Model)
		fmt.Fprintln(tw, "  rank\tfeature\tshare\tgain")
		limit := len(m.Features)
		if n > 0 {
			limit = min(n, limit)
		}
		for i, f := range m.Features[:limit] {
			fmt.Fprintf(tw, "  %d\t%s\t%.1f%%\t%.4g\n", i+1, f.Feature, f.Share*100, f.Gain)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
