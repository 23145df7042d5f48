// Package prediction turns questionnaire responses into screening results
// using the models held by the store.
package prediction

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"screenapi/ml"
)

const (
	LabelYes = "YES"
	LabelNo  = "NO"
)

// ErrModelNotLoaded matches every ModelNotLoadedError.
var ErrModelNotLoaded = errors.New("model not loaded")

type ModelNotLoadedError struct {
	Slot ml.Slot
}

func (e *ModelNotLoadedError) Error() string {
	return e.Slot.Title() + " model not loaded"
}

func (e *ModelNotLoadedError) Is(target error) bool {
	return target == ErrModelNotLoaded
}

// Result is the response body of a successful prediction.
type Result struct {
	Prediction   string           `json:"prediction"`
	Confidence   *float64         `json:"confidence"`
	FeaturesUsed ml.FeatureVector `json:"features_used"`
}

type outcome struct {
	label      int
	confidence *float64
}

type cacheKey struct {
	slot ml.Slot
	mask uint16
}

// Service runs predictions against a Store. Results are cached per slot and
// feature vector since the stored models never change.
type Service struct {
	store  *ml.Store
	cache  *lru.Cache[cacheKey, outcome]
	logger *zap.Logger
}

// NewService creates a Service. A cacheSize of zero disables caching.
func NewService(store *ml.Store, cacheSize int, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[cacheKey, outcome](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func (s *Service) PredictAdult(ctx context.Context, responses ml.Responses) (*Result, error) {
	return s.Predict(ctx, ml.SlotAdult, responses)
}

func (s *Service) PredictToddler(ctx context.Context, responses ml.Responses) (*Result, error) {
	return s.Predict(ctx, ml.SlotToddler, responses)
}

// Predict encodes responses and classifies them with the model in slot.
// Panics raised by a model are converted to errors.
func (s *Service) Predict(ctx context.Context, slot ml.Slot, responses ml.Responses) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("prediction panicked", zap.String("slot", string(slot)), zap.Any("panic", r))
			result, err = nil, fmt.Errorf("%v", r)
		}
	}()

	features := ml.Encode(responses)

	model, ok := s.store.Model(slot)
	if !ok {
		return nil, &ModelNotLoadedError{Slot: slot}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey{slot: slot, mask: features.Mask()}
	out, hit := s.lookup(key)
	if !hit {
		out, err = classify(model, features)
		if err != nil {
			return nil, err
		}
		s.remember(key, out)
	}

	result = &Result{
		Prediction:   LabelNo,
		Confidence:   out.confidence,
		FeaturesUsed: features,
	}
	if out.label == 1 {
		result.Prediction = LabelYes
	}
	s.logger.Debug("prediction",
		zap.String("slot", string(slot)),
		zap.Ints("features", features),
		zap.String("prediction", result.Prediction),
		zap.Bool("cached", hit))
	return result, nil
}

func classify(model ml.Classifier, features ml.FeatureVector) (outcome, error) {
	input := features.Floats()
	label, err := model.Predict(input)
	if err != nil {
		return outcome{}, fmt.Errorf("predict: %w", err)
	}
	out := outcome{label: label}
	if proba, ok := ml.SupportsProba(model); ok {
		probs, err := proba.PredictProba(input)
		if err != nil {
			return outcome{}, fmt.Errorf("predict probability: %w", err)
		}
		if len(probs) < 2 {
			return outcome{}, fmt.Errorf("predict probability: expected 2 classes, got %d", len(probs))
		}
		confidence := probs[1]
		out.confidence = &confidence
	}
	return out, nil
}

func (s *Service) lookup(key cacheKey) (outcome, bool) {
	if s.cache == nil {
		return outcome{}, false
	}
	return s.cache.Get(key)
}

func (s *Service) remember(key cacheKey, out outcome) {
	if s.cache != nil {
		s.cache.Add(key, out)
	}
}
