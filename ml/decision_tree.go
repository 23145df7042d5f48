package ml

import (
	"errors"
)

// DecisionTree evaluates a flattened binary tree exported from a trained
// estimator. Node 0 is the root.
type DecisionTree struct {
	nodes     []TreeNode
	classes   []int
	nFeatures int
}

// TreeNode is one node of a flattened tree. Value holds per-class sample
// counts (or weights) at a leaf.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

func NewDecisionTree(nodes []TreeNode, classes []int, nFeatures int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, ErrNotTrained
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
	if len(classes) == 0 {
		classes = []int{0, 1}
	}
	return &DecisionTree{nodes: nodes, classes: classes, nFeatures: nFeatures}, nil
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	if len(leaf.Value) > 0 {
		return classAt(dt.classes, argmax(leaf.Value)), nil
	}
	return leaf.ClassLabel, nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	if len(leaf.Value) == 0 {
		return nil, errors.New("leaf has no class distribution")
	}
	return normalize(leaf.Value), nil
}

// hasDistribution reports whether every leaf carries class counts.
func (dt *DecisionTree) hasDistribution() bool {
	for _, node := range dt.nodes {
		if node.IsLeaf && len(node.Value) == 0 {
			return false
		}
	}
	return true
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, ErrNotTrained
	}
	if err := checkFeatures(features, dt.nFeatures); err != nil {
		return TreeNode{}, err
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

func normalize(values []float64) []float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	out := make([]float64, len(values))
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, v := range values {
		out[i] = v / total
	}
	return out
}
