package ml

import (
	"fmt"
)

const (
	ModelTypeRandomForest = "random_forest"
	ModelTypeDecisionTree = "decision_tree"
)

// TrainParams are the fitting knobs shared by every model type.
type TrainParams struct {
	NEstimators int
	MaxDepth    int
	Seed        int64
}

func NewModel(modelType string, params TrainParams) (MLModel, error) {
	switch modelType {
	case "", ModelTypeRandomForest:
		return NewRandomForest(params.NEstimators, params.MaxDepth, params.Seed), nil
	case ModelTypeDecisionTree:
		return NewDecisionTree(params.MaxDepth, params.Seed), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

func LoadModel(modelType, path string) (MLModel, error) {
	model, err := NewModel(modelType, TrainParams{})
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
