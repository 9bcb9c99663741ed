// Package common provides shared utilities for PARSEHUB.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for PARSEHUB.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Providers   ProvidersConfig `toml:"providers"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ProvidersConfig holds per-provider admission and client configuration.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `toml:"openai"`
	OpenRouter ProviderConfig `toml:"openrouter"`
	QwenLocal  ProviderConfig `toml:"qwen_local"`
	Gemini     GeminiConfig   `toml:"gemini"`
}

// ProviderConfig holds the admission rules for one registered provider.
type ProviderConfig struct {
	Enabled           bool           `toml:"enabled"`
	QuotaPerWindow    int            `toml:"quota_per_window"`
	WindowSeconds     int            `toml:"window_seconds"`
	ConcurrencyLimit  int            `toml:"concurrency_limit"`
	FailureThreshold  int            `toml:"failure_threshold"`
	CooldownSeconds   float64        `toml:"cooldown_seconds"`
	RolloutAllowByDef bool           `toml:"rollout_allow_by_default"`
	RolloutAllowlist  []string       `toml:"rollout_allowlist"`
	RolloutBlocklist  []string       `toml:"rollout_blocklist"`
	OrgQuotas         map[string]int `toml:"org_quotas"`
}

// WindowDuration returns the provider's admission window as a time.Duration.
func (c *ProviderConfig) WindowDuration() time.Duration {
	if c.WindowSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// CooldownDuration returns the circuit breaker cooldown as a time.Duration,
// accepting fractional seconds.
func (c *ProviderConfig) CooldownDuration() time.Duration {
	return time.Duration(c.CooldownSeconds * float64(time.Second))
}

// GeminiConfig holds Gemini API configuration for the optional real provider
// engine. When APIKey is empty the engine is not wired and registered
// providers fall back to the deterministic stub client.
type GeminiConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	RateLimit int    `toml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level" mapstructure:"level"`
	Format     string   `toml:"format" mapstructure:"format"`
	Outputs    []string `toml:"outputs" mapstructure:"outputs"`
	FilePath   string   `toml:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int      `toml:"max_backups" mapstructure:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults: every provider
// registered, enabled, unlimited, with no circuit breaker tripped.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				Enabled: true, WindowSeconds: 60, FailureThreshold: 3,
				CooldownSeconds: 30, RolloutAllowByDef: true,
			},
			OpenRouter: ProviderConfig{
				Enabled: true, WindowSeconds: 60, FailureThreshold: 3,
				CooldownSeconds: 30, RolloutAllowByDef: true,
			},
			QwenLocal: ProviderConfig{
				Enabled: true, WindowSeconds: 60, FailureThreshold: 3,
				CooldownSeconds: 30, RolloutAllowByDef: true,
			},
			Gemini: GeminiConfig{
				Model:     "gemini-3-flash-preview",
				RateLimit: 5,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Outputs:    []string{"console"},
			FilePath:   "./logs/parsehub.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later paths override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PARSEHUB_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("PARSEHUB_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PARSEHUB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("PARSEHUB_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Providers.Gemini.APIKey = key
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
