package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOptions controls how model artifacts are decoded.
type LoadOptions struct {
	NumFeatures int
	Onnx        OnnxConfig
}

// artifact is the JSON envelope written by the export script for
// tree-based and linear estimators.
type artifact struct {
	Format    string       `json:"format"`
	NFeatures int          `json:"n_features"`
	Classes   []int        `json:"classes"`
	Nodes     []TreeNode   `json:"nodes"`
	Trees     [][]TreeNode `json:"trees"`
	Coef      []float64    `json:"coef"`
	Intercept float64      `json:"intercept"`
}

type decoder func(a artifact, nFeatures int) (Classifier, error)

var decoders = map[string]decoder{
	"decision_tree": func(a artifact, n int) (Classifier, error) {
		tree, err := NewDecisionTree(a.Nodes, a.Classes, n)
		if err != nil {
			return nil, err
		}
		if !tree.hasDistribution() {
			return labelOnly{tree}, nil
		}
		return tree, nil
	},
	"random_forest": func(a artifact, n int) (Classifier, error) {
		trees := make([]*DecisionTree, 0, len(a.Trees))
		for i, nodes := range a.Trees {
			tree, err := NewDecisionTree(nodes, a.Classes, n)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			trees = append(trees, tree)
		}
		return NewRandomForest(trees, a.Classes, n)
	},
	"logistic_regression": func(a artifact, n int) (Classifier, error) {
		return newLinear(a, n, true)
	},
	"linear_svm": func(a artifact, n int) (Classifier, error) {
		model, err := newLinear(a, n, false)
		if err != nil {
			return nil, err
		}
		return labelOnly{model}, nil
	},
}

func newLinear(a artifact, n int, logistic bool) (*LinearModel, error) {
	if n > 0 && len(a.Coef) != n {
		return nil, fmt.Errorf("%w: %d coefficients, want %d", ErrFeatureCount, len(a.Coef), n)
	}
	return NewLinearModel(a.Coef, a.Intercept, logistic, a.Classes)
}

// LoadModel reads a classifier from path. Files ending in .onnx go through
// onnxruntime; everything else must be a JSON artifact.
func LoadModel(path string, opts LoadOptions) (Classifier, error) {
	if strings.EqualFold(filepath.Ext(path), ".onnx") {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return NewOnnxClassifier(path, opts.NumFeatures, opts.Onnx)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeModel(payload, opts.NumFeatures)
}

// DecodeModel builds a classifier from a JSON artifact.
func DecodeModel(payload []byte, nFeatures int) (Classifier, error) {
	var a artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if a.NFeatures > 0 && nFeatures > 0 && a.NFeatures != nFeatures {
		return nil, fmt.Errorf("%w: artifact expects %d features, want %d", ErrFeatureCount, a.NFeatures, nFeatures)
	}
	if nFeatures <= 0 {
		nFeatures = a.NFeatures
	}
	decode, ok := decoders[a.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, a.Format)
	}
	return decode(a, nFeatures)
}
