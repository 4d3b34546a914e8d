package explain

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"text/tabwriter"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/constructrisk/riskopt/sim"
)

// NumericSummary describes one numeric column.
type NumericSummary struct {
	Field  string  `json:"field"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// CategoryCount is the frequency of one category value.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalSummary describes one categorical column.
type CategoricalSummary struct {
	Field  string          `json:"field"`
	Counts []CategoryCount `json:"counts"`
}

// Profile summarizes every column of a dataset.
type Profile struct {
	Rows        int                  `json:"rows"`
	OverrunRate float64              `json:"overrun_rate"`
	Numeric     []NumericSummary     `json:"numeric"`
	Categorical []CategoricalSummary `json:"categorical"`
}

// Describe profiles rows column by column in schema order.
func Describe(rows []sim.Project) (Profile, error) {
	p := Profile{Rows: len(rows)}
	if len(rows) == 0 {
		return p, errors.New("cannot profile an empty dataset")
	}
	overruns := 0
	for i := range rows {
		if rows[i].Overrun() {
			overruns++
		}
	}
	p.OverrunRate = float64(overruns) / float64(len(rows))

	for _, f := range sim.Fields() {
		if f.Kind == sim.Categorical {
			p.Categorical = append(p.Categorical, countCategories(f, rows))
			continue
		}
		data := make(stats.Float64Data, len(rows))
		for i := range rows {
			data[i] = f.Number(&rows[i])
		}
		s, err := summarize(f.Name, data)
		if err != nil {
			return Profile{}, fmt.Errorf("profiling %s: %w", f.Name, err)
		}
		p.Numeric = append(p.Numeric, s)
	}
	return p, nil
}

func summarize(name string, data stats.Float64Data) (NumericSummary, error) {
	s := NumericSummary{Field: name}
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	// Empirical quantiles are defined for any non-empty sample.
	sorted := slices.Clone([]float64(data))
	slices.Sort(sorted)
	s.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	s.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return s, nil
}

func countCategories(f sim.Field, rows []sim.Project) CategoricalSummary {
	counts := make(map[string]int)
	for i := range rows {
		counts[f.Text(&rows[i])]++
	}
	out := CategoricalSummary{Field: f.Name}
	for v, c := range counts {
		out.Counts = append(out.Counts, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out.Counts, func(i, j int) bool {
		if out.Counts[i].Count != out.Counts[j].Count {
			return out.Counts[i].Count > out.Counts[j].Count
		}
		return out.Counts[i].Value < out.Counts[j].Value
	})
	return out
}

// PrintProfile writes the profile as two tables.
func PrintProfile(w io.Writer, p Profile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "rows: %d\toverrun rate: %.1f%%\n\n", p.Rows, p.OverrunRate*100)
	fmt.Fprintln(tw, "field\tmean\tstd\tmin\tq25\tmedian\tq75\tmax")
	for _, s := range p.Numeric {
		fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n",
			s.Field, s.Mean, s.StdDev, s.Min, s.Q25, s.Median, s.Q75, s.Max)
	}
	fmt.Fprintln(tw)
	for _, c := range p.Categorical {
		fmt.Fprintf(tw, "%s", c.Field)
		for _, cc := range c.Counts {
			fmt.Fprintf(tw, "\t%s=%d", cc.Value, cc.Count)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
