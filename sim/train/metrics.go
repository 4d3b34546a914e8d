package train

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// RegressionMetrics scores the margin regressor on held-out rows.
type RegressionMetrics struct {
	MAE  float64 `json:"mae" yaml:"mae"`
	RMSE float64 `json:"rmse" yaml:"rmse"`
}

// ClassReport is the per-class line of a classification report.
type ClassReport struct {
	Label     int     `json:"label" yaml:"label"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// ClassificationMetrics scores the risk classifier on held-out rows.
// Confusion is indexed [actual][predicted] with class 1 = overrun.
type ClassificationMetrics struct {
	ROCAUC    float64       `json:"roc_auc" yaml:"roc_auc"`
	Accuracy  float64       `json:"accuracy" yaml:"accuracy"`
	Confusion [2][2]int     `json:"confusion_matrix" yaml:"confusion_matrix"`
	Classes   []ClassReport `json:"classes" yaml:"classes"`
}

// Regression computes MAE and RMSE.
func Regression(actual, predicted []float64) (RegressionMetrics, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return RegressionMetrics{}, fmt.Errorf("regression metrics need equal non-empty inputs, got %d/%d", len(actual), len(predicted))
	}
	abs := make([]float64, len(actual))
	sq := make([]float64, len(actual))
	for i := range actual {
		d := predicted[i] - actual[i]
		abs[i] = math.Abs(d)
		sq[i] = d * d
	}
	return RegressionMetrics{
		MAE:  stat.Mean(abs, nil),
		RMSE: math.Sqrt(stat.Mean(sq, nil)),
	}, nil
}

// ROCAUC is the area under the ROC curve of scores against binary labels.
func ROCAUC(labels []bool, scores []float64) (float64, error) {
	if len(labels) == 0 || len(labels) != len(scores) {
		return 0, fmt.Errorf("ROC-AUC needs equal non-empty inputs, got %d/%d", len(labels), len(scores))
	}
	var pos int
	for _, l := range labels {
		if l {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return 0, errors.New("ROC-AUC is undefined when only one class is present")
	}
	y := append([]float64(nil), scores...)
	classes := append([]bool(nil), labels...)
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// Classification thresholds probabilities at 0.5 and computes the confusion
// matrix, accuracy, per-class precision/recall/F1 and ROC-AUC.
func Classification(labels []bool, probs []float64) (ClassificationMetrics, error) {
	auc, err := ROCAUC(labels, probs)
	if err != nil {
		return ClassificationMetrics{}, err
	}
	m := ClassificationMetrics{ROCAUC: auc}
	correct := 0
	for i, l := range labels {
		actual, pred := 0, 0
		if l {
			actual = 1
		}
		if probs[i] >= 0.5 {
			pred = 1
		}
		m.Confusion[actual][pred]++
		if actual == pred {
			correct++
		}
	}
	m.Accuracy = float64(correct) / float64(len(labels))
	for c := 0; c <= 1; c++ {
		tp := m.Confusion[c][c]
		predicted := m.Confusion[0][c] + m.Confusion[1][c]
		support := m.Confusion[c][0] + m.Confusion[c][1]
		r := ClassReport{Label: c, Support: support}
		if predicted > 0 {
			r.Precision = float64(tp) / float64(predicted)
		}
		if support > 0 {
			r.Recall = float64(tp) / float64(support)
		}
		if r.Precision+r.Recall > 0 {
			r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
		}
		m.Classes = append(m.Classes, r)
	}
	return m, nil
}
