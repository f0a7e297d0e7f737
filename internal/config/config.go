// Package config resolves codemedic configuration once at startup.
// Resolution order: built-in defaults, then an optional YAML file, then
// environment variables. The resulting Config is treated as read-only by
// every consumer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider selects the generation backend the gateway talks to first.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
	ProviderStub   Provider = "stub"
)

// Config is the resolved provider profile plus pipeline bounds.
type Config struct {
	Provider Provider `yaml:"provider"`

	// Hosted backend (Gemini REST API).
	APIKey         string   `yaml:"api_key"`
	Model          string   `yaml:"model"`
	FallbackModels []string `yaml:"fallback_models"`

	// Local backend (Ollama).
	OllamaHost  string `yaml:"ollama_host"`
	OllamaModel string `yaml:"ollama_model"`

	// Generation parameters.
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`

	// Per-call timeout for any backend request.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// Gateway retry policy for network/server failures.
	MaxAPIRetries     int           `yaml:"max_api_retries"`
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`

	// Orchestrator fix/verify loop bound.
	MaxFixAttempts int `yaml:"max_fix_attempts"`

	// Session history database. Empty disables persistence.
	DBPath string `yaml:"db_path"`
}

// Default returns the built-in configuration. Model choices and bounds
// mirror the defaults the pipeline was tuned with.
func Default() Config {
	return Config{
		Model: "gemini-flash-latest",
		FallbackModels: []string{
			"gemini-pro-latest",
			"gemini-2.5-flash-lite",
			"gemini-2.0-flash-lite-preview",
		},
		OllamaHost:        "http://localhost:11434",
		OllamaModel:       "llama3.1:8b",
		Temperature:       0.2,
		MaxOutputTokens:   8000,
		CallTimeout:       60 * time.Second,
		MaxAPIRetries:     2,
		InitialRetryDelay: 2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxFixAttempts:    3,
	}
}

// Load resolves the full configuration. path may be empty, in which case
// only defaults and environment variables apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.resolveProvider()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("CODEMEDIC_PROVIDER")); v != "" {
		c.Provider = Provider(strings.ToLower(v))
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CODEMEDIC_MODEL")); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); v != "" {
		c.OllamaHost = v
	}
	if v := strings.TrimSpace(os.Getenv("OLLAMA_MODEL")); v != "" {
		c.OllamaModel = v
	}
	if v := os.Getenv("CODEMEDIC_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxFixAttempts = n
		}
	}
	if v := os.Getenv("CODEMEDIC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.CallTimeout = d
		}
	}
	if v := os.Getenv("CODEMEDIC_DB"); v != "" {
		c.DBPath = v
	}
}

// resolveProvider auto-picks a provider when none was configured explicitly:
// gemini when an API key is present, ollama when the environment points at a
// local server, stub otherwise.
func (c *Config) resolveProvider() {
	if c.Provider != "" {
		return
	}
	switch {
	case c.APIKey != "":
		c.Provider = ProviderGemini
	case os.Getenv("OLLAMA_HOST") != "" || os.Getenv("OLLAMA_MODEL") != "":
		c.Provider = ProviderOllama
	default:
		c.Provider = ProviderStub
	}
}

// Validate checks invariants the rest of the pipeline relies on.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderStub:
	default:
		return fmt.Errorf("unknown provider %q (valid: gemini, ollama, stub)", c.Provider)
	}
	if c.MaxFixAttempts < 1 {
		return fmt.Errorf("max_fix_attempts must be at least 1, got %d", c.MaxFixAttempts)
	}
	if c.MaxAPIRetries < 0 {
		return fmt.Errorf("max_api_retries must not be negative, got %d", c.MaxAPIRetries)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1, got %g", c.BackoffMultiplier)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive, got %s", c.CallTimeout)
	}
	return nil
}
