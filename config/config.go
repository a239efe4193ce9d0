// Package config loads the cognisphere application configuration from an
// optional YAML file and COGNISPHERE_ environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override
// (COGNISPHERE_MODEL_PROVIDER -> model.provider).
const EnvPrefix = "COGNISPHERE_"

// Config is the application configuration. Keys carry no underscores so
// that every field is reachable through an environment variable.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Model     ModelConfig     `koanf:"model"`
	Memory    MemoryConfig    `koanf:"memory"`
	Runner    RunnerConfig    `koanf:"runner"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Workflow  WorkflowConfig  `koanf:"workflow"`
}

type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"` // json, text
	AddSource bool   `koanf:"addsource"`
}

type ModelConfig struct {
	Provider    string  `koanf:"provider"` // mock, openai, anthropic
	Name        string  `koanf:"name"`
	BaseURL     string  `koanf:"baseurl"`
	APIKey      string  `koanf:"apikey"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int64   `koanf:"maxtokens"`
}

type MemoryConfig struct {
	Provider    string `koanf:"provider"` // inmemory, sqlite, redis
	MaxMessages int    `koanf:"maxmessages"`
	SQLiteDSN   string `koanf:"sqlitedsn"`
	RedisAddr   string `koanf:"redisaddr"`
	RedisPrefix string `koanf:"redisprefix"`
}

type RunnerConfig struct {
	Timeout                  time.Duration `koanf:"timeout"`
	MaxConcurrentInvocations int           `koanf:"maxconcurrentinvocations"`
}

type TelemetryConfig struct {
	Exporter       string        `koanf:"exporter"` // stdout, none
	MetricInterval time.Duration `koanf:"metricinterval"`
}

type WorkflowConfig struct {
	Path string `koanf:"path"`
}

var defaults = map[string]any{
	"log.level":                       "info",
	"log.format":                      "text",
	"model.provider":                  "mock",
	"model.temperature":               0.7,
	"model.maxtokens":                 4096,
	"memory.provider":                 "inmemory",
	"memory.maxmessages":              20,
	"memory.sqlitedsn":                "file:cognisphere.db",
	"memory.redisaddr":                "localhost:6379",
	"memory.redisprefix":              "cognisphere",
	"runner.timeout":                  "2m",
	"runner.maxconcurrentinvocations": 8,
	"telemetry.exporter":              "none",
	"telemetry.metricinterval":        "30s",
}

// Load reads defaults, then the YAML file at path (when not empty), then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	// 2. Load from ENV (COGNISPHERE_MODEL_PROVIDER -> model.provider)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "mock", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.Memory.Provider {
	case "inmemory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown memory provider %q", c.Memory.Provider)
	}
	switch c.Telemetry.Exporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter)
	}
	return nil
}
