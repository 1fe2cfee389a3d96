// Package config loads run settings from defaults, a YAML file, HEADLINER_*
// environment variables and command-line overrides, in that order.
package config

import (
	"path/filepath"

	"github.com/joelsearcy/headliner-go/internal/logger"
	"github.com/joelsearcy/headliner-go/pkg/model"
	"github.com/joelsearcy/headliner-go/pkg/train"
)

// Config is the full run configuration loaded by Load.
type Config struct {
	Training train.Config `koanf:"training"`
	Model    model.Config `koanf:"model"`
	Data     DataConfig   `koanf:"data"`
	Log      LogConfig    `koanf:"log"`
}

// DataConfig lists the corpus files. Entries are doublestar globs over TSV
// files of source<TAB>target lines.
type DataConfig struct {
	Train     []string `koanf:"train"`
	Val       []string `koanf:"val"`
	NumEpochs int      `koanf:"num_epochs" validate:"gte=0"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// Default returns the configuration used before any file, environment or
// flag is applied.
func Default() *Config {
	return &Config{
		Training: train.DefaultConfig(),
		Model:    model.DefaultConfig(),
		Data:     DataConfig{NumEpochs: 2500},
		Log:      LogConfig{Level: string(logger.InfoLevel)},
	}
}

// Resolve fills output paths left empty with locations under root named
// after runID.
func (c *Config) Resolve(root, runID string) {
	base := filepath.Join(root, "headliner", runID)
	if c.Training.LogDir == "" {
		c.Training.LogDir = filepath.Join(base, "logs")
	}
	if c.Training.ModelSavePath == "" {
		c.Training.ModelSavePath = filepath.Join(base, "model")
	}
}

// LoggerConfig maps the log section onto logger settings.
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.LogLevel(c.Log.Level)
	cfg.JSON = c.Log.JSON
	return cfg
}
