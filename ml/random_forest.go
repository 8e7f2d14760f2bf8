package ml

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	DefaultEstimators = 100
	DefaultSeed       = 42
)

// RandomForest bags decision trees fitted on bootstrap samples. One seeded
// source drives every bootstrap draw and feature choice, so two runs over the
// same rows with the same seed produce the same trees.
type RandomForest struct {
	trees       []*DecisionTree
	nEstimators int
	maxDepth    int
	seed        int64
	trainedAt   time.Time
}

func NewRandomForest(nEstimators, maxDepth int, seed int64) *RandomForest {
	if nEstimators <= 0 {
		nEstimators = DefaultEstimators
	}
	return &RandomForest{nEstimators: nEstimators, maxDepth: maxDepth, seed: seed}
}

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(rf.seed))
	maxFeatures := int(math.Sqrt(float64(FeatureCount)))
	trees := make([]*DecisionTree, 0, rf.nEstimators)
	for i := 0; i < rf.nEstimators; i++ {
		sample := bootstrap(rng, len(features))
		tree := &DecisionTree{maxDepth: rf.maxDepth, maxFeatures: maxFeatures, seed: rf.seed}
		tree.fit(features, labels, sample, rng)
		trees = append(trees, tree)
	}
	rf.trees = trees
	rf.trainedAt = time.Now().UTC()
	return nil
}

// Predict averages the leaf probabilities of every tree. The label is 1 only
// when the mean probability is strictly above one half.
func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	if len(rf.trees) == 0 {
		return 0, 0, ErrNotTrained
	}
	if err := checkVector(features); err != nil {
		return 0, 0, err
	}
	sum := 0.0
	for i, tree := range rf.trees {
		p, err := tree.probability(features)
		if err != nil {
			return 0, 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += p
	}
	mean := sum / float64(len(rf.trees))
	return labelFor(mean), confidenceFor(mean), nil
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.trees) == 0 {
		return ErrNotTrained
	}
	trees := make([][]TreeNode, len(rf.trees))
	for i, tree := range rf.trees {
		trees[i] = tree.nodes
	}
	return writeArtifact(path, artifact{
		ModelType:   ModelTypeRandomForest,
		TrainedAt:   rf.trainedAt,
		NEstimators: rf.nEstimators,
		MaxDepth:    rf.maxDepth,
		Seed:        rf.seed,
		Trees:       trees,
	})
}

func (rf *RandomForest) Load(path string) error {
	a, err := readArtifact(path, ModelTypeRandomForest)
	if err != nil {
		return err
	}
	trees := make([]*DecisionTree, len(a.Trees))
	for i, nodes := range a.Trees {
		trees[i] = &DecisionTree{nodes: nodes, maxDepth: a.MaxDepth, seed: a.Seed}
	}
	rf.trees = trees
	rf.nEstimators = len(trees)
	rf.maxDepth = a.MaxDepth
	rf.seed = a.Seed
	rf.trainedAt = a.TrainedAt
	return nil
}

// Size returns the number of fitted trees.
func (rf *RandomForest) Size() int {
	return len(rf.trees)
}

func bootstrap(rng *rand.Rand, n int) []int {
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(n)
	}
	return sample
}
