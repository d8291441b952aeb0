// Package config loads the genc configuration file.
//
// The file is YAML. It is checked against an embedded JSON Schema before it
// is decoded, so typos in keys fail loudly instead of being ignored. Secrets
// never live in the file: models name the environment variable holding
// their API key, and LoadEnv fills the environment from .env files.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/roach88/genc/internal/models"
)

//go:embed schema.json
var schemaJSON []byte

// Config is the root of the configuration file.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Executor ExecutorConfig `yaml:"executor"`
	Models   []ModelConfig  `yaml:"models"`
	Cache    CacheConfig    `yaml:"cache"`
	Scripts  ScriptsConfig  `yaml:"scripts"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ExecutorConfig tunes the inline engine.
type ExecutorConfig struct {
	MaxParallelism int `yaml:"max_parallelism"`
	MaxIterations  int `yaml:"max_iterations"`
}

// ModelConfig registers one model backend under URI.
type ModelConfig struct {
	URI       string `yaml:"uri"`
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	System    string `yaml:"system"`
}

// CacheConfig enables the inference cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

// ScriptsConfig points at a directory of Lua custom functions.
type ScriptsConfig struct {
	Dir string `yaml:"dir"`
}

// ValidationError lists schema violations.
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Source, strings.Join(e.Errors, "; "))
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Executor: ExecutorConfig{MaxParallelism: 8, MaxIterations: 1000},
	}
}

// Load reads and validates the file at path. Unset keys keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes YAML data. source names the data in errors.
func Parse(source string, data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing YAML in %s: %w", source, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validate(source, doc); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error decoding config %s: %w", source, err)
	}
	return cfg, nil
}

func validate(source string, doc any) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(docJSON),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{Source: source}
	for _, re := range result.Errors() {
		verr.Errors = append(verr.Errors, re.String())
	}
	return verr
}

// LoadEnv loads .env style files into the process environment. Missing
// files are skipped; existing variables are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env %s: %w", f, err)
		}
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level. verbose forces debug.
func (c *Config) SlogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CacheTTL parses Cache.TTL. Empty means no expiry.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache ttl: %w", err)
	}
	return d, nil
}

// ModelSpecs converts the models section for models.NewBackend.
func (c *Config) ModelSpecs() []models.Spec {
	specs := make([]models.Spec, len(c.Models))
	for i, m := range c.Models {
		specs[i] = models.Spec{
			URI:       m.URI,
			Provider:  m.Provider,
			Model:     m.Model,
			BaseURL:   m.BaseURL,
			APIKeyEnv: m.APIKeyEnv,
			System:    m.System,
		}
	}
	return specs
}
