package ml

import (
	"errors"
	"fmt"
)

// RandomForest averages the leaf distributions of its trees and predicts the
// class with the highest mean probability.
type RandomForest struct {
	trees     []*DecisionTree
	classes   []int
	nFeatures int
}

func NewRandomForest(trees []*DecisionTree, classes []int, nFeatures int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	for i, tree := range trees {
		if !tree.hasDistribution() {
			return nil, fmt.Errorf("tree %d: leaves must carry class values", i)
		}
	}
	if len(classes) == 0 {
		classes = []int{0, 1}
	}
	return &RandomForest{trees: trees, classes: classes, nFeatures: nFeatures}, nil
}

func (rf *RandomForest) Predict(features []float64) (int, error) {
	proba, err := rf.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return classAt(rf.classes, argmax(proba)), nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if err := checkFeatures(features, rf.nFeatures); err != nil {
		return nil, err
	}
	var sum []float64
	for i, tree := range rf.trees {
		proba, err := tree.PredictProba(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if sum == nil {
			sum = make([]float64, len(proba))
		}
		if len(proba) != len(sum) {
			return nil, fmt.Errorf("tree %d: class count mismatch", i)
		}
		for j, p := range proba {
			sum[j] += p
		}
	}
	for j := range sum {
		sum[j] /= float64(len(rf.trees))
	}
	return sum, nil
}
