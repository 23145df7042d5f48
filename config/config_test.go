package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"screenapi/ml"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	config, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Http.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", config.Http.Port)
	}
	store := config.Store()
	if got := store.Path(ml.SlotAdult); got != filepath.Join("models", "adult_autism_model.pkl") {
		t.Fatalf("unexpected adult path %q", got)
	}
	if got := store.Path(ml.SlotToddler); got != filepath.Join("models", "toddler_autism_model.pkl") {
		t.Fatalf("unexpected toddler path %q", got)
	}
	if store.Load.NumFeatures != ml.NumQuestions {
		t.Fatalf("expected %d features, got %d", ml.NumQuestions, store.Load.NumFeatures)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, `
http:
  port: 8081
  timeout: 5s
  allowed_origins: ["http://localhost:5173"]
models:
  dir: /srv/models
  adult: adult.onnx
  onnx:
    library_path: /usr/lib/libonnxruntime.so
prediction:
  cache_size: 0
  strict: true
log:
  level: debug
`)
	config, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Http.Port != 8081 || config.Http.Timeout != 5*time.Second {
		t.Fatalf("unexpected http config: %+v", config.Http)
	}
	if config.Models.Toddler != "toddler_autism_model.pkl" {
		t.Fatalf("expected toddler default to survive, got %q", config.Models.Toddler)
	}
	if config.Models.Onnx.LibraryPath != "/usr/lib/libonnxruntime.so" {
		t.Fatalf("unexpected onnx library %q", config.Models.Onnx.LibraryPath)
	}
	if !config.Prediction.Strict || config.Prediction.CacheSize != 0 {
		t.Fatalf("unexpected prediction config: %+v", config.Prediction)
	}
	if config.Log.Level != "debug" {
		t.Fatalf("unexpected log level %q", config.Log.Level)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Setenv("PORT", "")
	config, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Http.Port != 5000 {
		t.Fatalf("expected default port, got %d", config.Http.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_DIR", "/tmp/models")
	t.Setenv("LOG_LEVEL", "warn")
	config, err := Load(writeConfig(t, "http:\n  port: 8081\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Http.Port != 9090 {
		t.Fatalf("expected PORT to win, got %d", config.Http.Port)
	}
	if config.Models.Dir != "/tmp/models" || config.Log.Level != "warn" {
		t.Fatalf("env overrides not applied: %+v", config)
	}
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("PORT", "http")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}

func TestInvalidYAML(t *testing.T) {
	t.Setenv("PORT", "")
	if _, err := Load(writeConfig(t, "http: [")); err == nil {
		t.Fatal("expected decode error")
	}
}
