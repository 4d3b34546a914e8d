// Package train fits the margin regressor and the overrun classifier over a
// project dataset and writes the artifact bundle the simulator loads.
package train

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/gbt"
)

// Options configures a training run. Both models share the boosting settings.
type Options struct {
	TestFraction float64 `yaml:"test_fraction" mapstructure:"test_fraction" json:"test_fraction"`
	Seed         int64   `yaml:"seed" mapstructure:"seed" json:"seed"`
	Trees        int     `yaml:"trees" mapstructure:"trees" json:"trees"`
	MaxDepth     int     `yaml:"max_depth" mapstructure:"max_depth" json:"max_depth"`
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate" json:"learning_rate"`
	Subsample    float64 `yaml:"subsample" mapstructure:"subsample" json:"subsample"`
	ColSample    float64 `yaml:"colsample_bytree" mapstructure:"colsample_bytree" json:"colsample_bytree"`
}

// DefaultOptions returns a 20% hold-out, seed 42, and 200 trees of depth 5.
func DefaultOptions() Options {
	return Options{
		TestFraction: 0.2,
		Seed:         42,
		Trees:        200,
		MaxDepth:     5,
		LearningRate: 0.1,
		Subsample:    0.9,
		ColSample:    0.9,
	}
}

func (o Options) params(obj gbt.Objective) gbt.Params {
	return gbt.NewParams(obj,
		gbt.WithTrees(o.Trees),
		gbt.WithMaxDepth(o.MaxDepth),
		gbt.WithLearningRate(o.LearningRate),
		gbt.WithSubsample(o.Subsample),
		gbt.WithColSample(o.ColSample),
		gbt.WithSeed(o.Seed),
	)
}

// Validate checks the split fraction and the boosting parameters.
func (o Options) Validate() error {
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		return fmt.Errorf("test_fraction must be in (0, 1), got %v", o.TestFraction)
	}
	return o.params(gbt.SquaredError).Validate()
}

// Report holds held-out metrics of both models.
type Report struct {
	TrainRows int                   `json:"train_rows" yaml:"train_rows"`
	TestRows  int                   `json:"test_rows" yaml:"test_rows"`
	Margin    RegressionMetrics     `json:"margin" yaml:"margin"`
	Risk      ClassificationMetrics `json:"risk" yaml:"risk"`
	Elapsed   time.Duration         `json:"elapsed_ns" yaml:"elapsed"`
}

// Metrics condenses the report into the bundle manifest summary.
func (r *Report) Metrics() *sim.TrainingMetrics {
	return &sim.TrainingMetrics{
		TrainRows:    r.TrainRows,
		TestRows:     r.TestRows,
		MarginMAE:    r.Margin.MAE,
		MarginRMSE:   r.Margin.RMSE,
		RiskROCAUC:   r.Risk.ROCAUC,
		RiskAccuracy: r.Risk.Accuracy,
	}
}

// Print writes the report as aligned text.
func (r *Report) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "rows\ttrain %d\ttest %d\n", r.TrainRows, r.TestRows)
	fmt.Fprintf(tw, "margin\tMAE %.4f\tRMSE %.4f\n", r.Margin.MAE, r.Margin.RMSE)
	fmt.Fprintf(tw, "risk\tROC-AUC %.4f\taccuracy %.4f\n", r.Risk.ROCAUC, r.Risk.Accuracy)
	fmt.Fprintf(tw, "confusion\t[%d %d]\t[%d %d]\n",
		r.Risk.Confusion[0][0], r.Risk.Confusion[0][1], r.Risk.Confusion[1][0], r.Risk.Confusion[1][1])
	fmt.Fprintln(tw, "class\tprecision\trecall\tf1\tsupport")
	for _, c := range r.Risk.Classes {
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\t%d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	return tw.Flush()
}

// Train fits the category table on all rows, then fits and evaluates the margin
// regressor (random split) and the risk classifier (stratified split)
// concurrently.
func Train(ctx context.Context, rows []sim.Project, opts Options) (*Report, *sim.Bundle, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid training options: %w", err)
	}
	start := time.Now()

	table := sim.FitCategoryTable(rows)
	X, err := table.EncodeAll(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding training rows: %w", err)
	}
	margins := make([]float64, len(rows))
	overruns := make([]int, len(rows))
	for i := range rows {
		margins[i] = rows[i].ActualMargin
		overruns[i] = rows[i].BudgetOverrun
		if overruns[i] != 0 && overruns[i] != 1 {
			return nil, nil, fmt.Errorf("row %d: budget_overrun must be 0 or 1, got %d", i, overruns[i])
		}
	}

	marginTrain, marginTest, err := Split(len(rows), opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("splitting margin data: %w", err)
	}
	riskTrain, riskTest, err := StratifiedSplit(overruns, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("splitting risk data: %w", err)
	}

	report := &Report{TrainRows: len(marginTrain), TestRows: len(marginTest)}
	var margin, risk *gbt.Ensemble

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		y := pick(margins, marginTrain)
		m, err := gbt.Fit(gctx, rowsAt(X, marginTrain), y, opts.params(gbt.SquaredError))
		if err != nil {
			return fmt.Errorf("fitting margin model: %w", err)
		}
		pred := make([]float64, len(marginTest))
		for i, idx := range marginTest {
			pred[i] = m.Predict(X[idx])
		}
		if report.Margin, err = Regression(pick(margins, marginTest), pred); err != nil {
			return err
		}
		margin = m
		logrus.Debugf("train: margin model MAE=%.4f RMSE=%.4f", report.Margin.MAE, report.Margin.RMSE)
		return nil
	})
	g.Go(func() error {
		y := make([]float64, len(riskTrain))
		for i, idx := range riskTrain {
			y[i] = float64(overruns[idx])
		}
		r, err := gbt.Fit(gctx, rowsAt(X, riskTrain), y, opts.params(gbt.Logistic))
		if err != nil {
			return fmt.Errorf("fitting risk model: %w", err)
		}
		labels := make([]bool, len(riskTest))
		probs := make([]float64, len(riskTest))
		for i, idx := range riskTest {
			labels[i] = overruns[idx] == 1
			probs[i] = r.Predict(X[idx])
		}
		if report.Risk, err = Classification(labels, probs); err != nil {
			return fmt.Errorf("evaluating risk model: %w", err)
		}
		risk = r
		logrus.Debugf("train: risk model ROC-AUC=%.4f", report.Risk.ROCAUC)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report.Elapsed = time.Since(start)
	return report, sim.NewBundle(table, margin, risk, opts.Seed, report.Metrics()), nil
}

// Run loads the dataset at dataPath, trains both models and saves the bundle
// into artifactDir.
func Run(ctx context.Context, dataPath, artifactDir string, opts Options) (*Report, error) {
	ds, err := sim.LoadDataset(dataPath)
	if err != nil {
		return nil, err
	}
	report, bundle, err := Train(ctx, ds.Rows(), opts)
	if err != nil {
		return nil, err
	}
	if err := sim.SaveBundle(artifactDir, bundle); err != nil {
		return nil, err
	}
	return report, nil
}

func rowsAt(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
