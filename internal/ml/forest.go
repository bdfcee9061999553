package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// Node is one split or leaf of a decision tree. Nodes are stored flat; the
// root is index 0.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	// Positive is the fraction of positive training samples in a leaf.
	Positive float64 `json:"p,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

var errCorruptTree = errors.New("corrupt decision tree")

// positive walks x down the tree and returns the leaf's positive fraction.
func (t Tree) positive(x []float64) (float64, error) {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if i < 0 || i >= len(t.Nodes) {
			return 0, errCorruptTree
		}
		n := t.Nodes[i]
		if n.Leaf {
			return n.Positive, nil
		}
		if n.Feature < 0 || n.Feature >= len(x) {
			return 0, errCorruptTree
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0, errCorruptTree
}

// Forest is a bagged ensemble of CART classifiers for a binary label.
type Forest struct {
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"importances"`
}

// PositiveProbability averages the leaf probabilities of all trees.
func (f Forest) PositiveProbability(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errCorruptTree
	}
	var sum float64
	for _, t := range f.Trees {
		p, err := t.positive(x)
		if err != nil {
			return 0, err
		}
		sum += p
	}
	return sum / float64(len(f.Trees)), nil
}

// ForestOptions bounds the ensemble.
type ForestOptions struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures is the number of candidate features per split; 0 means
	// the square root of the feature count.
	MaxFeatures int
	Seed        int64
}

// FitForest trains the ensemble on X (rows of equal length) and binary y.
func FitForest(X [][]float64, y []int, opts ForestOptions) (Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return Forest{}, errors.New("training set is empty or misaligned")
	}
	nf := len(X[0])
	if opts.Trees <= 0 {
		opts.Trees = 1
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	if opts.MaxFeatures <= 0 || opts.MaxFeatures > nf {
		opts.MaxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nf)))))
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	forest := Forest{Importances: make([]float64, nf)}

	for t := 0; t < opts.Trees; t++ {
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}

		b := &treeBuilder{X: X, y: y, opts: opts, rng: rng, imp: make([]float64, nf)}
		b.grow(sample, 0)
		forest.Trees = append(forest.Trees, Tree{Nodes: b.nodes})

		if total := sum(b.imp); total > 0 {
			for i := range b.imp {
				forest.Importances[i] += b.imp[i] / total
			}
		}
	}

	if total := sum(forest.Importances); total > 0 {
		for i := range forest.Importances {
			forest.Importances[i] /= total
		}
	}
	return forest, nil
}

type treeBuilder struct {
	X     [][]float64
	y     []int
	opts  ForestOptions
	rng   *rand.Rand
	nodes []Node
	imp   []float64
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	n := len(idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Positive: float64(pos) / float64(n)})

	if pos == 0 || pos == n || n < b.opts.MinSamplesSplit ||
		(b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth) {
		return self
	}

	feature, threshold, gain, ok := b.bestSplit(idx, pos)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.imp[feature] += gain
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

// bestSplit scans a random subset of features for the split with the
// largest weighted Gini decrease.
func (b *treeBuilder) bestSplit(idx []int, pos int) (feature int, threshold, gain float64, ok bool) {
	n := len(idx)
	parent := float64(n) * gini(pos, n)
	best := 0.0

	sorted := make([]int, n)
	for _, f := range b.rng.Perm(len(b.imp))[:b.opts.MaxFeatures] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		leftPos := 0
		for k := 1; k < n; k++ {
			leftPos += b.y[sorted[k-1]]
			lo, hi := b.X[sorted[k-1]][f], b.X[sorted[k]][f]
			if lo == hi {
				continue
			}
			child := float64(k)*gini(leftPos, k) + float64(n-k)*gini(pos-leftPos, n-k)
			if g := parent - child; g > best {
				best = g
				feature, threshold, ok = f, (lo+hi)/2, true
			}
		}
	}
	return feature, threshold, best, ok
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
