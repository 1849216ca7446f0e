// Package config loads grove settings from an optional .grove.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project directory.
const FileName = ".grove.yaml"

// Config holds settings shared by the CLI commands. Flags override file
// values.
type Config struct {
	// Workers bounds the parse pool of read-only roots.
	Workers int `yaml:"workers" validate:"gte=1,lte=1024"`
	// SyntaxCache bounds memoized syntax trees in writable roots. Zero
	// disables the bound.
	SyntaxCache int    `yaml:"syntax_cache" validate:"gte=0"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `yaml:"log_format" validate:"oneof=text json"`
	// DB is the snapshot database path, relative to the project directory.
	DB         string   `yaml:"db" validate:"required"`
	Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
	// ScriptPath selects a Risor symbol extractor instead of the native one.
	ScriptPath string `yaml:"script_path,omitempty"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		SyntaxCache: 256,
		LogLevel:    "info",
		LogFormat:   "text",
		DB:          filepath.Join(".grove", "index.db"),
		Extensions:  []string{".rs"},
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDir loads FileName from dir.
func LoadDir(dir string) (Config, error) {
	return Load(filepath.Join(dir, FileName))
}
