// Package config loads service settings from config.yaml, .env and the
// process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"screenapi/ml"
)

const DefaultPath = "config.yaml"

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Models struct {
		Dir     string        `yaml:"dir"`
		Adult   string        `yaml:"adult"`
		Toddler string        `yaml:"toddler"`
		Onnx    ml.OnnxConfig `yaml:"onnx"`
	} `yaml:"models"`
	Prediction struct {
		CacheSize int  `yaml:"cache_size"`
		Strict    bool `yaml:"strict"`
	} `yaml:"prediction"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

func Default() *Config {
	var c Config
	c.Http.Port = 5000
	c.Http.Timeout = 30 * time.Second
	c.Http.MaxBodyBytes = 1 << 20
	c.Http.AllowedOrigins = []string{"*"}
	c.Models.Dir = "models"
	c.Models.Adult = "adult_autism_model.pkl"
	c.Models.Toddler = "toddler_autism_model.pkl"
	c.Models.Onnx = ml.DefaultOnnxConfig()
	c.Prediction.CacheSize = 1024
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	return &c
}

// Load reads the yaml file at path on top of the defaults. A missing file is
// not an error. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := Default()
	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT %q", port)
		}
		c.Http.Port = p
	}
	if dir := os.Getenv("MODEL_DIR"); dir != "" {
		c.Models.Dir = dir
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
		c.Models.Onnx.LibraryPath = lib
	}
	return nil
}

// Store returns the model store settings for the configured slots.
func (c *Config) Store() ml.StoreConfig {
	return ml.StoreConfig{
		Dir: c.Models.Dir,
		Files: map[ml.Slot]string{
			ml.SlotAdult:   c.Models.Adult,
			ml.SlotToddler: c.Models.Toddler,
		},
		Load: ml.LoadOptions{
			NumFeatures: ml.NumQuestions,
			Onnx:        c.Models.Onnx,
		},
	}
}
