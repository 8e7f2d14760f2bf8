package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedForest(t *testing.T, seed int64) *RandomForest {
	t.Helper()
	features, labels := lockerGrid()
	forest := NewRandomForest(DefaultEstimators, 0, seed)
	require.NoError(t, forest.Train(features, labels))
	return forest
}

func TestRandomForestAssignsNearbyAvailableSlot(t *testing.T) {
	forest := trainedForest(t, DefaultSeed)
	assert.Equal(t, DefaultEstimators, forest.Size())

	label, confidence, err := forest.Predict(scenario(3).Vector())
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Greater(t, confidence, 0.5)
}

func TestRandomForestRejectsFullLocker(t *testing.T) {
	forest := trainedForest(t, DefaultSeed)

	label, _, err := forest.Predict(scenario(0).Vector())
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

func TestRandomForestReproducible(t *testing.T) {
	first := trainedForest(t, DefaultSeed)
	second := trainedForest(t, DefaultSeed)

	require.Equal(t, first.Size(), second.Size())
	for i := range first.trees {
		assert.Equal(t, first.trees[i].nodes, second.trees[i].nodes, "tree %d", i)
	}

	features, _ := lockerGrid()
	for _, row := range features {
		a, pa, err := first.Predict(row)
		require.NoError(t, err)
		b, pb, err := second.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, pa, pb)
	}
}

func TestRandomForestPredictIsDeterministic(t *testing.T) {
	forest := trainedForest(t, DefaultSeed)
	row := scenario(2).Vector()

	want, wantConf, err := forest.Predict(row)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		got, gotConf, err := forest.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, wantConf, gotConf)
	}
}

func TestRandomForestValidation(t *testing.T) {
	forest := NewRandomForest(0, 0, DefaultSeed)
	assert.Equal(t, DefaultEstimators, forest.nEstimators)

	_, _, err := forest.Predict(scenario(1).Vector())
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.ErrorIs(t, forest.Save(filepath.Join(t.TempDir(), "m.json")), ErrNotTrained)

	forest = trainedForest(t, DefaultSeed)
	_, _, err = forest.Predict(make([]float64, FeatureCount+1))
	assert.ErrorIs(t, err, ErrFeatureCount)
}

func TestRandomForestSaveLoad(t *testing.T) {
	forest := trainedForest(t, DefaultSeed)
	path := filepath.Join(t.TempDir(), "models", "locker_slot_model.json")
	require.NoError(t, forest.Save(path))

	loaded, err := LoadModel(ModelTypeRandomForest, path)
	require.NoError(t, err)
	assert.Equal(t, DefaultEstimators, loaded.(*RandomForest).Size())

	features, _ := lockerGrid()
	for _, row := range features {
		want, _, err := forest.Predict(row)
		require.NoError(t, err)
		got, _, err := loaded.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadModel(ModelTypeRandomForest, filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))
	_, err = LoadModel(ModelTypeRandomForest, corrupt)
	assert.Error(t, err)

	_, err = LoadModel("gradient_boosting", corrupt)
	assert.ErrorContains(t, err, "unsupported model type")
}

func TestLoadModelSchemaMismatch(t *testing.T) {
	forest := trainedForest(t, DefaultSeed)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, forest.Save(path))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	var a artifact
	require.NoError(t, json.Unmarshal(payload, &a))
	a.FeatureNames[0], a.FeatureNames[1] = a.FeatureNames[1], a.FeatureNames[0]
	payload, err = json.Marshal(a)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	_, err = LoadModel(ModelTypeRandomForest, path)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoadModelRejectsCyclicTree(t *testing.T) {
	a := artifact{
		ModelType:    ModelTypeDecisionTree,
		Version:      artifactVersion,
		FeatureNames: FeatureNames[:],
		Trees: [][]TreeNode{{
			{FeatureIdx: 0, Threshold: 1, LeftChild: 0, RightChild: 1},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true},
		}},
	}
	payload, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cyclic.json")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	_, err = LoadModel(ModelTypeDecisionTree, path)
	assert.ErrorContains(t, err, "invalid children")
}
