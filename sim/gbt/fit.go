package gbt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// minSplitGain is the smallest gain accepted for a split.
const minSplitGain = 1e-12

// Fit boosts p.NumTrees trees over X (rows) and y. The context is checked
// between trees.
func Fit(ctx context.Context, X [][]float64, y []float64, p Params) (*Ensemble, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkData(X, y, p.Objective); err != nil {
		return nil, err
	}

	b := newBuilder(X, p)
	e := &Ensemble{
		Objective:   p.Objective,
		NumFeatures: b.m,
		BaseScore:   baseScore(p.Objective, y),
		Params:      p,
		Trees:       make([]Tree, 0, p.NumTrees),
	}

	pred := make([]float64, b.n)
	for i := range pred {
		pred[i] = e.BaseScore
	}
	grad := make([]float64, b.n)
	hess := make([]float64, b.n)
	rng := rand.New(rand.NewPCG(uint64(p.Seed), 0x9e3779b97f4a7c15))

	for t := 0; t < p.NumTrees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gradients(p.Objective, y, pred, grad, hess)
		rows := sampleRows(rng, b.n, p.Subsample)
		features := sampleFeatures(rng, b.m, p.ColSample)
		tree := b.grow(grad, hess, rows, features)
		for i := range pred {
			pred[i] += tree.predict(X[i])
		}
		e.Trees = append(e.Trees, tree)
	}
	return e, nil
}

func checkData(X [][]float64, y []float64, obj Objective) error {
	if len(X) == 0 {
		return errors.New("no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("%d rows but %d labels", len(X), len(y))
	}
	m := len(X[0])
	if m == 0 {
		return errors.New("training rows have no features")
	}
	for i, row := range X {
		if len(row) != m {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), m)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return fmt.Errorf("row %d feature %d is NaN", i, j)
			}
		}
	}
	for i, v := range y {
		if !finite(v) {
			return fmt.Errorf("label %d is not finite", i)
		}
		if obj == Logistic && v != 0 && v != 1 {
			return fmt.Errorf("label %d is %v; logistic labels must be 0 or 1", i, v)
		}
	}
	return nil
}

func baseScore(obj Objective, y []float64) float64 {
	mean := floats.Sum(y) / float64(len(y))
	if obj == Logistic {
		p := math.Min(1-1e-6, math.Max(1e-6, mean))
		return math.Log(p / (1 - p))
	}
	return mean
}

func gradients(obj Objective, y, pred, grad, hess []float64) {
	for i := range y {
		if obj == Logistic {
			p := sigmoid(pred[i])
			grad[i] = p - y[i]
			hess[i] = math.Max(p*(1-p), 1e-16)
			continue
		}
		grad[i] = pred[i] - y[i]
		hess[i] = 1
	}
}

func sampleRows(rng *rand.Rand, n int, frac float64) []bool {
	in := make([]bool, n)
	picked := false
	for i := range in {
		if frac >= 1 || rng.Float64() < frac {
			in[i] = true
			picked = true
		}
	}
	if !picked {
		for i := range in {
			in[i] = true
		}
	}
	return in
}

func sampleFeatures(rng *rand.Rand, m int, frac float64) []int {
	k := int(math.Round(frac * float64(m)))
	k = max(1, min(k, m))
	features := rng.Perm(m)[:k]
	sort.Ints(features)
	return features
}

// builder holds column-major training data with per-feature row orderings
// computed once and reused by every tree.
type builder struct {
	n, m   int
	cols   [][]float64
	order  [][]int
	params Params
}

func newBuilder(X [][]float64, p Params) *builder {
	n, m := len(X), len(X[0])
	b := &builder{n: n, m: m, cols: make([][]float64, m), order: make([][]int, m), params: p}
	for f := 0; f < m; f++ {
		col := make([]float64, n)
		for i := range X {
			col[i] = X[i][f]
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, c int) int {
			switch {
			case col[a] < col[c]:
				return -1
			case col[a] > col[c]:
				return 1
			}
			return 0
		})
		b.cols[f] = col
		b.order[f] = idx
	}
	return b
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// grow builds one tree level by level with exact greedy split search.
func (b *builder) grow(grad, hess []float64, rows []bool, features []int) Tree {
	lambda := b.params.Lambda
	mcw := b.params.MinChildWeight
	eta := b.params.LearningRate

	nodeOf := make([]int, b.n)
	var g0, h0 float64
	for i := range nodeOf {
		if !rows[i] {
			nodeOf[i] = -1
			continue
		}
		g0 += grad[i]
		h0 += hess[i]
	}

	nodes := []Node{{Cover: h0}}
	sumG := []float64{g0}
	sumH := []float64{h0}
	active := []int{0}

	for depth := 0; depth < b.params.MaxDepth && len(active) > 0; depth++ {
		slot := make([]int, len(nodes))
		for i := range slot {
			slot[i] = -1
		}
		for s, id := range active {
			slot[id] = s
		}

		best := make([]split, len(active))
		for s := range best {
			best[s].feature = -1
		}
		gl := make([]float64, len(active))
		hl := make([]float64, len(active))
		last := make([]float64, len(active))
		seen := make([]bool, len(active))

		for _, f := range features {
			clear(gl)
			clear(hl)
			clear(seen)
			col := b.cols[f]
			for _, i := range b.order[f] {
				id := nodeOf[i]
				if id < 0 {
					continue
				}
				s := slot[id]
				if s < 0 {
					continue
				}
				v := col[i]
				if seen[s] && v != last[s] {
					G, H := sumG[id], sumH[id]
					GL, HL := gl[s], hl[s]
					GR, HR := G-GL, H-HL
					if HL >= mcw && HR >= mcw {
						gain := GL*GL/(HL+lambda) + GR*GR/(HR+lambda) - G*G/(H+lambda)
						if gain > best[s].gain {
							thr := last[s] + (v-last[s])/2
							if !(thr > last[s]) {
								thr = v
							}
							best[s] = split{feature: f, threshold: thr, gain: gain}
						}
					}
				}
				gl[s] += grad[i]
				hl[s] += hess[i]
				last[s] = v
				seen[s] = true
			}
		}

		var next []int
		for s, id := range active {
			sp := best[s]
			if sp.feature < 0 || sp.gain <= minSplitGain {
				continue
			}
			left, right := len(nodes), len(nodes)+1
			nodes[id].Feature = sp.feature
			nodes[id].Threshold = sp.threshold
			nodes[id].Gain = sp.gain
			nodes[id].Left = left
			nodes[id].Right = right
			nodes = append(nodes, Node{}, Node{})
			sumG = append(sumG, 0, 0)
			sumH = append(sumH, 0, 0)
			next = append(next, left, right)
		}
		if len(next) == 0 {
			break
		}

		// Route rows of split nodes to their children.
		for i, id := range nodeOf {
			if id < 0 || slot[id] < 0 || nodes[id].Left == 0 {
				continue
			}
			n := &nodes[id]
			child := n.Right
			if b.cols[n.Feature][i] < n.Threshold {
				child = n.Left
			}
			nodeOf[i] = child
			sumG[child] += grad[i]
			sumH[child] += hess[i]
		}
		for _, id := range next {
			nodes[id].Cover = sumH[id]
		}
		active = next
	}

	for id := range nodes {
		if nodes[id].Left == 0 {
			nodes[id].Leaf = true
			nodes[id].Value = -sumG[id] / (sumH[id] + lambda) * eta
		}
	}
	return Tree{Nodes: nodes}
}
