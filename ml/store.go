package ml

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slot names one of the two classifiers held by the store.
type Slot string

const (
	SlotAdult   Slot = "adult"
	SlotToddler Slot = "toddler"
)

// Slots lists every slot in a stable order.
var Slots = []Slot{SlotAdult, SlotToddler}

// Title returns the display name used in messages, e.g. "Adult".
func (s Slot) Title() string {
	return cases.Title(language.English).String(string(s))
}

// StoreConfig locates the model artifacts on disk.
type StoreConfig struct {
	Dir   string
	Files map[Slot]string
	Load  LoadOptions
}

func (c StoreConfig) Path(slot Slot) string {
	return filepath.Join(c.Dir, c.Files[slot])
}

// Store holds the models loaded at startup. It is never written to after
// construction, so it can be shared across goroutines without locking.
type Store struct {
	models map[Slot]Classifier
}

func NewStore(models map[Slot]Classifier) *Store {
	s := &Store{models: make(map[Slot]Classifier, len(Slots))}
	for slot, model := range models {
		if model != nil {
			s.models[slot] = model
		}
	}
	return s
}

// LoadStore loads every slot. A slot that fails to load is left empty and
// the failure is logged; the store itself is always returned.
func LoadStore(cfg StoreConfig, logger *zap.Logger) *Store {
	models := make(map[Slot]Classifier, len(Slots))
	for _, slot := range Slots {
		path := cfg.Path(slot)
		model, err := LoadModel(path, cfg.Load)
		switch {
		case err == nil:
			models[slot] = model
			_, proba := SupportsProba(model)
			logger.Info("model loaded",
				zap.String("slot", string(slot)),
				zap.String("path", path),
				zap.Bool("probability", proba))
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("model file not found",
				zap.String("slot", string(slot)),
				zap.String("path", path),
				zap.Error(err))
		default:
			logger.Error("error loading model",
				zap.String("slot", string(slot)),
				zap.String("path", path),
				zap.Error(err))
		}
	}
	return NewStore(models)
}

func (s *Store) Model(slot Slot) (Classifier, bool) {
	model, ok := s.models[slot]
	return model, ok
}

// Loaded reports whether both slots hold a model.
func (s *Store) Loaded() bool {
	for _, slot := range Slots {
		if _, ok := s.models[slot]; !ok {
			return false
		}
	}
	return true
}

func (s *Store) Status() map[Slot]bool {
	status := make(map[Slot]bool, len(Slots))
	for _, slot := range Slots {
		_, status[slot] = s.models[slot]
	}
	return status
}

// Close releases models that hold native resources.
func (s *Store) Close() error {
	var errs []error
	for _, model := range s.models {
		if c, ok := model.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
