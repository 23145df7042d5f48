package ml

import (
	"errors"
	"math"
)

// LinearModel scores w·x + b. With Logistic set it maps the score through a
// sigmoid and supports probability estimates; otherwise it behaves like a
// linear SVM and only predicts the sign.
type LinearModel struct {
	Coef      []float64
	Intercept float64
	Logistic  bool
	classes   []int
}

func NewLinearModel(coef []float64, intercept float64, logistic bool, classes []int) (*LinearModel, error) {
	if len(coef) == 0 {
		return nil, errors.New("linear model has no coefficients")
	}
	if len(classes) == 0 {
		classes = []int{0, 1}
	}
	if len(classes) != 2 {
		return nil, errors.New("linear model must be binary")
	}
	return &LinearModel{Coef: coef, Intercept: intercept, Logistic: logistic, classes: classes}, nil
}

func (m *LinearModel) decision(features []float64) (float64, error) {
	if err := checkFeatures(features, len(m.Coef)); err != nil {
		return 0, err
	}
	score := m.Intercept
	for i, w := range m.Coef {
		score += w * features[i]
	}
	return score, nil
}

func (m *LinearModel) Predict(features []float64) (int, error) {
	score, err := m.decision(features)
	if err != nil {
		return 0, err
	}
	if score > 0 {
		return m.classes[1], nil
	}
	return m.classes[0], nil
}

func (m *LinearModel) PredictProba(features []float64) ([]float64, error) {
	if !m.Logistic {
		return nil, errors.New("probability estimates are not available")
	}
	score, err := m.decision(features)
	if err != nil {
		return nil, err
	}
	p := 1 / (1 + math.Exp(-score))
	return []float64{1 - p, p}, nil
}
