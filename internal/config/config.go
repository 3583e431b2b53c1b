// Package config loads the engine's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TRQuant/TRQuantExt/internal/composer"
	"github.com/TRQuant/TRQuantExt/internal/evaluator"
	"github.com/TRQuant/TRQuantExt/internal/factor"
)

// Config is the full engine configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Factors   FactorsConfig   `yaml:"factors"`
	Evaluator evaluator.Config `yaml:"evaluator"`
	Composer  composer.Config `yaml:"composer"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// StorageConfig configures the primary and fallback backends.
type StorageConfig struct {
	PostgresDSN    string `yaml:"postgres_dsn"`
	FileDir        string `yaml:"file_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call storage timeout.
func (c StorageConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig configures the market-data cache.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime.
func (c RedisConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// FactorsConfig configures orchestration and activation.
type FactorsConfig struct {
	Normalization string             `yaml:"normalization"`
	Workers       int                `yaml:"workers"`
	Weights       map[string]float64 `yaml:"weights"`
	// ForceEnable lists factors active without an accepting evaluation,
	// for bootstrap before any history exists.
	ForceEnable []string `yaml:"force_enable"`
	// SnapshotDir is the market-data collaborator's export directory used
	// by the CLI and scheduler.
	SnapshotDir string `yaml:"snapshot_dir"`
	// UniverseFile lists the default universe, one instrument per line.
	UniverseFile string `yaml:"universe_file"`
}

// AdvisorConfig configures the advisory attempt chain.
type AdvisorConfig struct {
	// Providers is the ordered model attempt list; entries are "openai"
	// or "ollama". Empty means rule engine only.
	Providers      []string `yaml:"providers"`
	OpenAIBaseURL  string   `yaml:"openai_base_url"`
	OpenAIModel    string   `yaml:"openai_model"`
	OpenAIKeyEnv   string   `yaml:"openai_key_env"`
	OllamaBaseURL  string   `yaml:"ollama_base_url"`
	OllamaModel    string   `yaml:"ollama_model"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	RatePerMinute  int      `yaml:"rate_per_minute"`
}

// Timeout returns the per-attempt model timeout.
func (c AdvisorConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServerConfig configures the HTTP interface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig configures the recurring compute job.
type SchedulerConfig struct {
	// Cron is a standard 5-field cron expression.
	Cron string `yaml:"cron"`
	// TopN caps the scheduled run's composed signal count.
	TopN int `yaml:"top_n"`
	// MainlineFile optionally points at the mainline collaborator's latest
	// score export; absent scores fall back to the composer default.
	MainlineFile string `yaml:"mainline_file"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross-field invariants the YAML schema cannot express.
func (c *Config) Validate() error {
	if _, err := factor.ParseNormalization(c.Factors.Normalization); err != nil {
		return fmt.Errorf("factors: %w", err)
	}
	for name, w := range c.Factors.Weights {
		if w < 0 {
			return fmt.Errorf("factors: negative weight for %s", name)
		}
	}
	if err := c.Composer.Validate(); err != nil {
		return fmt.Errorf("composer: %w", err)
	}
	if c.Evaluator.Groups < 0 || c.Evaluator.Groups == 1 {
		return fmt.Errorf("evaluator: groups must be 0 (default) or >= 2")
	}
	for _, p := range c.Advisor.Providers {
		if p != "openai" && p != "ollama" {
			return fmt.Errorf("advisor: unknown provider %q", p)
		}
	}
	return nil
}
