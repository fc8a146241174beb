package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// ForestOptions control random forest training
type ForestOptions struct {
	Trees int `json:"trees" yaml:"trees" mapstructure:"trees"`
	// MaxDepth <= 0 grows trees until leaves are pure
	MaxDepth        int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split" mapstructure:"min_samples_split"`
	// MaxFeatures <= 0 uses floor(sqrt(feature count)) candidates per split
	MaxFeatures int    `json:"max_features" yaml:"max_features" mapstructure:"max_features"`
	Seed        uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// DefaultForestOptions mirrors the offline training script: 100 trees, seed 42
func DefaultForestOptions() ForestOptions {
	return ForestOptions{
		Trees:           100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MaxFeatures:     0,
		Seed:            42,
	}
}

// TreeNode is one node of a flattened decision tree. Leaves carry the
// fraction of fault samples that reached them.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	FaultProb  float64 `json:"fault_prob"`
	Samples    int     `json:"samples"`
	IsLeaf     bool    `json:"is_leaf"`
}

// Tree is a binary decision tree stored as a node array, root at index 0
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Forest is an ensemble of gini decision trees trained on bootstrap samples
type Forest struct {
	Trees        []Tree `json:"trees"`
	FeatureCount int    `json:"feature_count"`
}

// Len returns the number of trees
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Trees)
}

// FitForest trains a forest on rows of X with binary labels y (0 or 1)
func FitForest(X [][]float64, y []int, opts ForestOptions) (*Forest, error) {
	if len(X) == 0 || len(y) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("features and labels size mismatch: %d vs %d", len(X), len(y))
	}
	featureCount := len(X[0])
	if featureCount == 0 {
		return nil, errors.New("feature rows are empty")
	}
	for i, row := range X {
		if len(row) != featureCount {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), featureCount)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("label %d at row %d is not binary", label, i)
		}
	}

	if opts.Trees <= 0 {
		opts.Trees = DefaultForestOptions().Trees
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(featureCount))))
	}
	maxFeatures = min(maxFeatures, featureCount)

	forest := &Forest{
		Trees:        make([]Tree, opts.Trees),
		FeatureCount: featureCount,
	}

	n := len(X)
	for t := 0; t < opts.Trees; t++ {
		rng := rand.New(rand.NewPCG(opts.Seed, uint64(t)))

		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}

		b := &treeBuilder{
			X:               X,
			y:               y,
			rng:             rng,
			maxDepth:        opts.MaxDepth,
			minSamplesSplit: opts.MinSamplesSplit,
			maxFeatures:     maxFeatures,
			featureCount:    featureCount,
		}
		b.build(sample, 0)
		forest.Trees[t] = Tree{Nodes: b.nodes}
	}

	return forest, nil
}

// Predict returns the majority label and the fraction of the ensemble's
// probability mass behind it. Ties go to Healthy.
func (f *Forest) Predict(features []float64) (Label, float64, error) {
	if f.Len() == 0 {
		return Healthy, 0, errors.New("model not trained")
	}
	if len(features) != f.FeatureCount {
		return Healthy, 0, fmt.Errorf("expected %d features, got %d", f.FeatureCount, len(features))
	}

	var sum float64
	for i := range f.Trees {
		p, err := f.Trees[i].predict(features)
		if err != nil {
			return Healthy, 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += p
	}
	faultProb := sum / float64(len(f.Trees))

	if faultProb > 0.5 {
		return Fault, faultProb, nil
	}
	return Healthy, 1 - faultProb, nil
}

func (t *Tree) predict(features []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("empty tree")
	}
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.FaultProb, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

type treeBuilder struct {
	X               [][]float64
	y               []int
	rng             *rand.Rand
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int
	featureCount    int
	nodes           []TreeNode
}

// build appends the subtree for the sample indices and returns its root index
func (b *treeBuilder) build(sample []int, depth int) int {
	faults := 0
	for _, i := range sample {
		faults += b.y[i]
	}
	prob := float64(faults) / float64(len(sample))

	idx := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		FaultProb:  prob,
		Samples:    len(sample),
		IsLeaf:     true,
	})

	pure := faults == 0 || faults == len(sample)
	if pure || len(sample) < b.minSamplesSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return idx
	}

	feature, threshold, ok := b.bestSplit(sample)
	if !ok {
		return idx
	}

	var left, right []int
	for _, i := range sample {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return idx
	}

	leftIdx := b.build(left, depth+1)
	rightIdx := b.build(right, depth+1)

	b.nodes[idx].FeatureIdx = feature
	b.nodes[idx].Threshold = threshold
	b.nodes[idx].LeftChild = leftIdx
	b.nodes[idx].RightChild = rightIdx
	b.nodes[idx].IsLeaf = false
	return idx
}

// bestSplit searches a random subset of features for the threshold with the
// lowest weighted gini impurity. Thresholds are midpoints between adjacent
// distinct values.
func (b *treeBuilder) bestSplit(sample []int) (int, float64, bool) {
	candidates := b.rng.Perm(b.featureCount)[:b.maxFeatures]

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	type point struct {
		value float64
		label int
	}
	points := make([]point, len(sample))

	totalFaults := 0
	for _, i := range sample {
		totalFaults += b.y[i]
	}
	total := len(sample)

	for _, feature := range candidates {
		for k, i := range sample {
			points[k] = point{value: b.X[i][feature], label: b.y[i]}
		}
		sort.Slice(points, func(a, c int) bool { return points[a].value < points[c].value })

		leftFaults := 0
		for k := 0; k < total-1; k++ {
			leftFaults += points[k].label
			if points[k].value == points[k+1].value {
				continue
			}
			leftN := k + 1
			rightN := total - leftN
			impurity := (float64(leftN)*gini(leftFaults, leftN) +
				float64(rightN)*gini(totalFaults-leftFaults, rightN)) / float64(total)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = points[k].value + (points[k+1].value-points[k].value)/2
			}
		}
	}

	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func gini(faults, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(faults) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
