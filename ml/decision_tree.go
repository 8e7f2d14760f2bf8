package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// DecisionTree is a binary CART classifier using Gini impurity. Nodes are
// kept in a flat slice in pre-order so a tree serialises as plain JSON.
type DecisionTree struct {
	nodes       []TreeNode
	maxDepth    int
	maxFeatures int
	seed        int64
	trainedAt   time.Time
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	ClassLabel  int     `json:"class_label"`
	Probability float64 `json:"probability"`
	IsLeaf      bool    `json:"is_leaf"`
}

// NewDecisionTree returns an untrained tree. A maxDepth of 0 grows the tree
// until every leaf is pure.
func NewDecisionTree(maxDepth int, seed int64) *DecisionTree {
	return &DecisionTree{maxDepth: maxDepth, seed: seed}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(dt.seed))
	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}
	dt.fit(features, labels, indices, rng)
	dt.trainedAt = time.Now().UTC()
	return nil
}

// Predict returns the predicted label and the share of training samples in
// the reached leaf that carry that label.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	p, err := dt.probability(features)
	if err != nil {
		return 0, 0, err
	}
	return labelFor(p), confidenceFor(p), nil
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return ErrNotTrained
	}
	return writeArtifact(path, artifact{
		ModelType: ModelTypeDecisionTree,
		TrainedAt: dt.trainedAt,
		MaxDepth:  dt.maxDepth,
		Seed:      dt.seed,
		Trees:     [][]TreeNode{dt.nodes},
	})
}

func (dt *DecisionTree) Load(path string) error {
	a, err := readArtifact(path, ModelTypeDecisionTree)
	if err != nil {
		return err
	}
	if len(a.Trees) != 1 {
		return fmt.Errorf("load %s: expected 1 tree, got %d", path, len(a.Trees))
	}
	dt.nodes = a.Trees[0]
	dt.maxDepth = a.MaxDepth
	dt.seed = a.Seed
	dt.trainedAt = a.TrainedAt
	return nil
}

// fit grows the tree over the rows named by indices. Repeated indices act
// as sample weights, which is how bootstrap samples are passed in.
func (dt *DecisionTree) fit(features [][]float64, labels []int, indices []int, rng *rand.Rand) {
	dt.nodes = dt.nodes[:0]
	dt.buildNode(features, labels, indices, 0, rng)
}

func (dt *DecisionTree) probability(features []float64) (float64, error) {
	if len(dt.nodes) == 0 {
		return 0, ErrNotTrained
	}
	if err := checkVector(features); err != nil {
		return 0, err
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.Probability, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, indices []int, depth int, rng *rand.Rand) int {
	positives := countPositive(labels, indices)
	prob := float64(positives) / float64(len(indices))

	idx := len(dt.nodes)
	dt.nodes = append(dt.nodes, TreeNode{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		ClassLabel:  labelFor(prob),
		Probability: prob,
		IsLeaf:      true,
	})
	if positives == 0 || positives == len(indices) {
		return idx
	}
	if dt.maxDepth > 0 && depth >= dt.maxDepth {
		return idx
	}

	bestFeature, threshold, ok := dt.findBestSplit(features, labels, indices, rng)
	if !ok {
		return idx
	}
	left, right := splitIndices(features, indices, bestFeature, threshold)
	if len(left) == 0 || len(right) == 0 {
		return idx
	}

	leftIdx := dt.buildNode(features, labels, left, depth+1, rng)
	rightIdx := dt.buildNode(features, labels, right, depth+1, rng)
	dt.nodes[idx] = TreeNode{
		FeatureIdx:  bestFeature,
		Threshold:   threshold,
		LeftChild:   leftIdx,
		RightChild:  rightIdx,
		ClassLabel:  labelFor(prob),
		Probability: prob,
	}
	return idx
}

// findBestSplit draws features in random order and scores up to maxFeatures
// non-constant ones. Constant features are skipped without being counted.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, indices []int, rng *rand.Rand) (int, float64, bool) {
	featureCount := len(features[indices[0]])
	maxFeatures := dt.maxFeatures
	if maxFeatures <= 0 || maxFeatures > featureCount {
		maxFeatures = featureCount
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64
	sorted := make([]int, len(indices))
	visited := 0

	for _, featureIdx := range rng.Perm(featureCount) {
		if visited >= maxFeatures {
			break
		}
		copy(sorted, indices)
		sort.SliceStable(sorted, func(a, b int) bool {
			return features[sorted[a]][featureIdx] < features[sorted[b]][featureIdx]
		})
		if features[sorted[0]][featureIdx] == features[sorted[len(sorted)-1]][featureIdx] {
			continue
		}
		visited++

		threshold, impurity, ok := bestThresholdFor(features, labels, sorted, featureIdx)
		if ok && impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

// bestThresholdFor sweeps the rows sorted by one feature and returns the
// midpoint threshold with the lowest weighted Gini impurity.
func bestThresholdFor(features [][]float64, labels []int, sorted []int, featureIdx int) (float64, float64, bool) {
	total := len(sorted)
	totalPositive := countPositive(labels, sorted)

	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64
	found := false
	leftPositive := 0
	for i := 0; i < total-1; i++ {
		leftPositive += labels[sorted[i]]
		current := features[sorted[i]][featureIdx]
		next := features[sorted[i+1]][featureIdx]
		if current == next {
			continue
		}
		leftCount := i + 1
		rightCount := total - leftCount
		impurity := (float64(leftCount)*gini(leftPositive, leftCount) +
			float64(rightCount)*gini(totalPositive-leftPositive, rightCount)) / float64(total)
		if impurity < bestImpurity {
			threshold := current + (next-current)/2
			if threshold == next {
				threshold = current
			}
			bestImpurity = impurity
			bestThreshold = threshold
			found = true
		}
	}
	return bestThreshold, bestImpurity, found
}

func splitIndices(features [][]float64, indices []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if features[i][featureIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func gini(positive, count int) float64 {
	if count == 0 {
		return 0
	}
	p := float64(positive) / float64(count)
	return 2 * p * (1 - p)
}

func countPositive(labels []int, indices []int) int {
	positives := 0
	for _, i := range indices {
		positives += labels[i]
	}
	return positives
}

func labelFor(probability float64) int {
	if probability > 0.5 {
		return 1
	}
	return 0
}

func confidenceFor(probability float64) float64 {
	if probability > 0.5 {
		return probability
	}
	return 1 - probability
}

func validateTrainingSet(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	for i, row := range features {
		if len(row) != FeatureCount {
			return fmt.Errorf("row %d: %w", i, ErrFeatureCount)
		}
		if labels[i] != 0 && labels[i] != 1 {
			return fmt.Errorf("row %d: label %d is not binary", i, labels[i])
		}
	}
	return nil
}
