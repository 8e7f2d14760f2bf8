// Package config loads service and trainer settings from YAML, .env and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Model    ModelConfig    `yaml:"model"`
	Training TrainingConfig `yaml:"training"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ModelConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

type TrainingConfig struct {
	DatasetPath string  `yaml:"dataset_path"`
	TestRatio   float64 `yaml:"test_ratio"`
	NEstimators int     `yaml:"n_estimators"`
	MaxDepth    int     `yaml:"max_depth"`
	Seed        int64   `yaml:"seed"`
	LogDBPath   string  `yaml:"log_db_path"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Http: HTTPConfig{
			Port:           8000,
			Timeout:        10 * time.Second,
			MaxBodyBytes:   1 << 20,
			MetricsEnabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Model: ModelConfig{
			Type: "random_forest",
			Path: "locker_slot_model.json",
		},
		Training: TrainingConfig{
			DatasetPath: "locker_slot_training_data.csv",
			TestRatio:   0.2,
			NEstimators: 100,
			Seed:        42,
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file; a
// non-empty path must exist. Variables from a .env file in the working
// directory are loaded when present but never override the real environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(payload, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio %v must be in (0,1)", c.Training.TestRatio)
	}
	if c.Training.NEstimators <= 0 {
		return fmt.Errorf("training.n_estimators must be positive")
	}
	if c.Training.MaxDepth < 0 {
		return fmt.Errorf("training.max_depth must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString("LOCKERSLOT_LOG_LEVEL", &cfg.Log.Level)
	setString("LOCKERSLOT_LOG_FORMAT", &cfg.Log.Format)
	setString("LOCKERSLOT_LOG_FILE", &cfg.Log.File)
	setString("LOCKERSLOT_MODEL_TYPE", &cfg.Model.Type)
	setString("LOCKERSLOT_MODEL_PATH", &cfg.Model.Path)
	setString("LOCKERSLOT_DATASET_PATH", &cfg.Training.DatasetPath)
	setString("LOCKERSLOT_TRAINING_LOG_DB", &cfg.Training.LogDBPath)

	if value := os.Getenv("LOCKERSLOT_HTTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("LOCKERSLOT_HTTP_PORT: %w", err)
		}
		cfg.Http.Port = port
	}
	if value := os.Getenv("LOCKERSLOT_SEED"); value != "" {
		seed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("LOCKERSLOT_SEED: %w", err)
		}
		cfg.Training.Seed = seed
	}
	return nil
}

func setString(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
