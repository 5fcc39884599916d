package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config models talentflow.yml.
type Config struct {
	Latency struct {
		Min   time.Duration `yaml:"min" validate:"gte=0"`
		Max   time.Duration `yaml:"max" validate:"gte=0"`
		Stage time.Duration `yaml:"stage" validate:"gte=0"`
	} `yaml:"latency"`
	Failure struct {
		Write   float64 `yaml:"write" validate:"gte=0,lte=1"`
		Stage   float64 `yaml:"stage" validate:"gte=0,lte=1"`
		Reorder float64 `yaml:"reorder" validate:"gte=0,lte=1"`
	} `yaml:"failure"`
	Limits struct {
		WritesPerSecond float64 `yaml:"writes_per_second" validate:"gte=0"`
		Burst           int     `yaml:"burst" validate:"gte=0"`
	} `yaml:"limits"`
	Seed struct {
		Jobs       int   `yaml:"jobs" validate:"gte=3"`
		Candidates int   `yaml:"candidates" validate:"gte=0"`
		RandomSeed int64 `yaml:"random_seed"`
	} `yaml:"seed"`
	Server struct {
		Addr     string `yaml:"addr" validate:"required"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

var validate = validator.New()

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config.%s fails %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return err
	}
	if c.Latency.Min > c.Latency.Max {
		return fmt.Errorf("config.latency.min (%s) exceeds latency.max (%s)", c.Latency.Min, c.Latency.Max)
	}
	if c.Limits.WritesPerSecond > 0 && c.Limits.Burst < 1 {
		return fmt.Errorf("config.limits.burst must be at least 1 when writes_per_second is set")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "talentflow.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; write one with talentflow config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses config from raw YAML bytes on top of the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `latency:
  min: 200ms
  max: 1200ms
  stage: 300ms

failure:
  write: 0.07
  stage: 0.05
  reorder: 0.1

limits:
  writes_per_second: 0
  burst: 1

seed:
  jobs: 25
  candidates: 1000
  random_seed: 0

server:
  addr: 127.0.0.1:8080
  base_path: ""
`
