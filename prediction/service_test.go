package prediction

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"screenapi/ml"
)

type fakeModel struct {
	label int
	proba []float64
	err   error
	calls int
}

func (f *fakeModel) Predict(features []float64) (int, error) {
	f.calls++
	if len(features) != ml.NumQuestions {
		return 0, ml.ErrFeatureCount
	}
	return f.label, f.err
}

type fakeProbaModel struct {
	fakeModel
}

func (f *fakeProbaModel) PredictProba([]float64) ([]float64, error) {
	return f.proba, nil
}

type panicModel struct{}

func (panicModel) Predict([]float64) (int, error) {
	panic("index out of range")
}

func newTestService(t *testing.T, models map[ml.Slot]ml.Classifier, cacheSize int) *Service {
	t.Helper()
	svc, err := NewService(ml.NewStore(models), cacheSize, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func TestPredictWithConfidence(t *testing.T) {
	model := &fakeProbaModel{fakeModel{label: 1, proba: []float64{0.2, 0.8}}}
	svc := newTestService(t, map[ml.Slot]ml.Classifier{ml.SlotAdult: model}, 0)

	result, err := svc.PredictAdult(context.Background(), ml.Responses{"A1": "yes", "A3": "Yes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Prediction != LabelYes {
		t.Fatalf("expected YES, got %s", result.Prediction)
	}
	if result.Confidence == nil || *result.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", result.Confidence)
	}
	want := ml.FeatureVector{1, 0, 1, 0, 0, 0, 0, 0, 0, 0}
	if !reflect.DeepEqual(result.FeaturesUsed, want) {
		t.Fatalf("expected features %v, got %v", want, result.FeaturesUsed)
	}
}

func TestPredictWithoutProbability(t *testing.T) {
	svc := newTestService(t, map[ml.Slot]ml.Classifier{ml.SlotToddler: &fakeModel{label: 0}}, 0)

	result, err := svc.PredictToddler(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Prediction != LabelNo {
		t.Fatalf("expected NO, got %s", result.Prediction)
	}
	if result.Confidence != nil {
		t.Fatalf("expected nil confidence, got %v", *result.Confidence)
	}
}

func TestPredictModelNotLoaded(t *testing.T) {
	svc := newTestService(t, nil, 0)
	tests := []struct {
		slot ml.Slot
		want string
	}{
		{ml.SlotAdult, "Adult model not loaded"},
		{ml.SlotToddler, "Toddler model not loaded"},
	}
	for _, tt := range tests {
		_, err := svc.Predict(context.Background(), tt.slot, ml.Responses{"A1": "yes"})
		if !errors.Is(err, ErrModelNotLoaded) {
			t.Fatalf("expected ErrModelNotLoaded, got %v", err)
		}
		if err.Error() != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, err.Error())
		}
	}
}

func TestPredictModelError(t *testing.T) {
	svc := newTestService(t, map[ml.Slot]ml.Classifier{ml.SlotAdult: &fakeModel{err: errors.New("boom")}}, 0)
	_, err := svc.PredictAdult(context.Background(), nil)
	if err == nil || err.Error() != "predict: boom" {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestPredictRecoversPanic(t *testing.T) {
	svc := newTestService(t, map[ml.Slot]ml.Classifier{ml.SlotAdult: panicModel{}}, 0)
	_, err := svc.PredictAdult(context.Background(), nil)
	if err == nil || err.Error() != "index out of range" {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
}

func TestPredictShortProbability(t *testing.T) {
	model := &fakeProbaModel{fakeModel{label: 1, proba: []float64{1}}}
	svc := newTestService(t, map[ml.Slot]ml.Classifier{ml.SlotAdult: model}, 0)
	if _, err := svc.PredictAdult(context.Background(), nil); err == nil {
		t.Fatal("expected error for single-class probabilities")
	}
}

func TestPredictCache(t *testing.T) {
	model := &fakeProbaModel{fakeModel{label: 1, proba: []float64{0.3, 0.7}}}
	svc := newTestService(t, map[ml.Slot]ml.Classifier{ml.SlotAdult: model}, 16)

	for i := 0; i < 3; i++ {
		result, err := svc.PredictAdult(context.Background(), ml.Responses{"A2": "YES"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *result.Confidence != 0.7 {
			t.Fatalf("unexpected confidence %v", *result.Confidence)
		}
	}
	if model.calls != 1 {
		t.Fatalf("expected one model call, got %d", model.calls)
	}

	if _, err := svc.PredictAdult(context.Background(), ml.Responses{"A2": "no"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.calls != 2 {
		t.Fatalf("expected a second model call for a new vector, got %d", model.calls)
	}
}

func TestPredictCanceledContext(t *testing.T) {
	svc := newTestService(t, map[ml.Slot]ml.Classifier{ml.SlotAdult: &fakeModel{label: 1}}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.PredictAdult(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
