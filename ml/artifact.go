package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const artifactVersion = 1

// artifact is the on-disk form shared by the trainer and the predictor.
type artifact struct {
	ModelType    string       `json:"model_type"`
	Version      int          `json:"version"`
	FeatureNames []string     `json:"feature_names"`
	TrainedAt    time.Time    `json:"trained_at"`
	NEstimators  int          `json:"n_estimators,omitempty"`
	MaxDepth     int          `json:"max_depth"`
	Seed         int64        `json:"seed"`
	Trees        [][]TreeNode `json:"trees"`
}

// writeArtifact writes through a temp file in the target directory and
// renames it into place, so a failed write never leaves a partial model.
func writeArtifact(path string, a artifact) error {
	a.Version = artifactVersion
	a.FeatureNames = FeatureNames[:]
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func readArtifact(path, modelType string) (artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return artifact{}, err
	}
	var a artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return artifact{}, fmt.Errorf("decode model %s: %w", path, err)
	}
	if a.ModelType != modelType {
		return artifact{}, fmt.Errorf("model %s has type %q, want %q", path, a.ModelType, modelType)
	}
	if a.Version != artifactVersion {
		return artifact{}, fmt.Errorf("model %s has unsupported version %d", path, a.Version)
	}
	if !sameSchema(a.FeatureNames) {
		return artifact{}, fmt.Errorf("model %s: %w: %v", path, ErrSchemaMismatch, a.FeatureNames)
	}
	if len(a.Trees) == 0 {
		return artifact{}, fmt.Errorf("model %s: %w", path, ErrNotTrained)
	}
	for i, nodes := range a.Trees {
		if err := validateNodes(nodes); err != nil {
			return artifact{}, fmt.Errorf("model %s tree %d: %w", path, i, err)
		}
	}
	return a, nil
}

// validateNodes checks the pre-order layout: children always sit after their
// parent, which rules out cycles during traversal.
func validateNodes(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= FeatureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) ||
			node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, node.LeftChild, node.RightChild)
		}
	}
	return nil
}
