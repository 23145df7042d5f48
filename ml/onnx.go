package ml

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// OnnxConfig describes how to run a classifier exported to ONNX. Exports from
// scikit-learn should disable zipmap so probabilities come back as a plain
// float tensor.
type OnnxConfig struct {
	LibraryPath       string `yaml:"library_path"`
	InputName         string `yaml:"input_name"`
	LabelOutput       string `yaml:"label_output"`
	ProbabilityOutput string `yaml:"probability_output"`
	NumClasses        int    `yaml:"num_classes"`
}

func DefaultOnnxConfig() OnnxConfig {
	return OnnxConfig{
		InputName:         "float_input",
		LabelOutput:       "output_label",
		ProbabilityOutput: "output_probability",
		NumClasses:        2,
	}
}

var ortInit struct {
	sync.Mutex
	refs int
}

func acquireRuntime(libraryPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ortInit.refs == 0 && !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	ortInit.refs++
	return nil
}

func releaseRuntime() {
	ortInit.Lock()
	defer ortInit.Unlock()
	ortInit.refs--
	if ortInit.refs == 0 && ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}

// OnnxClassifier runs inference through onnxruntime. Sessions are safe for
// concurrent Run calls; tensors are allocated per call.
type OnnxClassifier struct {
	session   *ort.DynamicAdvancedSession
	cfg       OnnxConfig
	nFeatures int
	withProba bool
	closeOnce sync.Once
}

func NewOnnxClassifier(path string, nFeatures int, cfg OnnxConfig) (*OnnxClassifier, error) {
	if cfg.LibraryPath == "" {
		return nil, errors.New("onnxruntime library path is not configured")
	}
	if cfg.LabelOutput == "" {
		return nil, errors.New("onnx label output name is required")
	}
	if cfg.NumClasses <= 0 {
		cfg.NumClasses = 2
	}
	if err := acquireRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}
	outputs := []string{cfg.LabelOutput}
	withProba := cfg.ProbabilityOutput != ""
	if withProba {
		outputs = append(outputs, cfg.ProbabilityOutput)
	}
	session, err := ort.NewDynamicAdvancedSession(path, []string{cfg.InputName}, outputs, nil)
	if err != nil {
		releaseRuntime()
		return nil, fmt.Errorf("open onnx session: %w", err)
	}
	return &OnnxClassifier{session: session, cfg: cfg, nFeatures: nFeatures, withProba: withProba}, nil
}

func (o *OnnxClassifier) run(features []float64) (int, []float64, error) {
	if err := checkFeatures(features, o.nFeatures); err != nil {
		return 0, nil, err
	}
	data := make([]float32, len(features))
	for i, f := range features {
		data[i] = float32(f)
	}
	input, err := ort.NewTensor(ort.NewShape(1, int64(len(data))), data)
	if err != nil {
		return 0, nil, err
	}
	defer input.Destroy()

	label, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, nil, err
	}
	defer label.Destroy()
	outputs := []ort.Value{label}

	var proba *ort.Tensor[float32]
	if o.withProba {
		proba, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(o.cfg.NumClasses)))
		if err != nil {
			return 0, nil, err
		}
		defer proba.Destroy()
		outputs = append(outputs, proba)
	}

	if err := o.session.Run([]ort.Value{input}, outputs); err != nil {
		return 0, nil, fmt.Errorf("onnx inference: %w", err)
	}

	var probs []float64
	if proba != nil {
		raw := proba.GetData()
		probs = make([]float64, len(raw))
		for i, p := range raw {
			probs[i] = float64(p)
		}
	}
	return int(label.GetData()[0]), probs, nil
}

func (o *OnnxClassifier) Predict(features []float64) (int, error) {
	label, _, err := o.run(features)
	return label, err
}

func (o *OnnxClassifier) PredictProba(features []float64) ([]float64, error) {
	if !o.withProba {
		return nil, errors.New("probability output is not configured")
	}
	_, probs, err := o.run(features)
	return probs, err
}

func (o *OnnxClassifier) Close() error {
	var err error
	o.closeOnce.Do(func() {
		err = o.session.Destroy()
		releaseRuntime()
	})
	return err
}
