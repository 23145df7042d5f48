package ml

import (
	"errors"
	"fmt"
)

var (
	ErrFeatureCount  = errors.New("feature count mismatch")
	ErrUnknownFormat = errors.New("unsupported model format")
	ErrNotTrained    = errors.New("model not trained")
)

// Classifier assigns a class label to a single feature vector.
type Classifier interface {
	Predict(features []float64) (int, error)
}

// ProbabilisticClassifier is implemented by classifiers that can also estimate
// class probabilities. The returned slice is indexed by class position, so
// index 1 holds the probability of the positive class.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(features []float64) ([]float64, error)
}

// SupportsProba reports whether c can produce probability estimates.
func SupportsProba(c Classifier) (ProbabilisticClassifier, bool) {
	p, ok := c.(ProbabilisticClassifier)
	return p, ok
}

// labelOnly hides the probability capability of a classifier.
type labelOnly struct {
	Classifier
}

func checkFeatures(features []float64, want int) error {
	if want > 0 && len(features) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), want)
	}
	return nil
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func classAt(classes []int, idx int) int {
	if idx >= 0 && idx < len(classes) {
		return classes[idx]
	}
	return idx
}
