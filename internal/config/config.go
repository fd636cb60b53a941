package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for piiscan. Pointer
// fields distinguish "unset" from zero values so files can be layered.
type FileConfig struct {
	Rules           *string  `yaml:"rules"`
	Fallback        *bool    `yaml:"fallback"`
	Threads         *int     `yaml:"threads"`
	MinScore        *float64 `yaml:"min_score"`
	Include         *string  `yaml:"include"`
	Exclude         *string  `yaml:"exclude"`
	MaxBytes        *int64   `yaml:"max_bytes"`
	DefaultExcludes *bool    `yaml:"default_excludes"`
	NoColor         *bool    `yaml:"no_color"`

	Analyzer *AnalyzerConfig `yaml:"analyzer"`
	Server   *ServerConfig   `yaml:"server"`
	Logging  *LoggingConfig  `yaml:"logging"`
	Cache    *CacheConfig    `yaml:"cache"`
}

// AnalyzerConfig points at the statistical detector service.
type AnalyzerConfig struct {
	URL      *string  `yaml:"url"`
	Timeout  *string  `yaml:"timeout"`
	Rate     *float64 `yaml:"rate"`
	Language *string  `yaml:"language"`
	Entities *string  `yaml:"entities"`
}

// ServerConfig holds `piiscan serve` settings.
type ServerConfig struct {
	Addr           *string `yaml:"addr"`
	MaxUploadBytes *int64  `yaml:"max_upload_bytes"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

// CacheConfig enables the analyzer result cache. An empty RedisURL selects
// the in-memory store.
type CacheConfig struct {
	Enabled  *bool   `yaml:"enabled"`
	RedisURL *string `yaml:"redis_url"`
	TTL      *string `yaml:"ttl"`
}

// LocalNames are the repo-local config files, in lookup order.
var LocalNames = []string{".piiscan.yml", ".piiscan.yaml", "piiscan.yml", "piiscan.yaml"}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadLocal searches for a config file in the given root.
func LoadLocal(root string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range LocalNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// GlobalPath returns $XDG_CONFIG_HOME/piiscan/config.yml, falling back to
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "piiscan", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p, err := GlobalPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

func (fc FileConfig) validate() error {
	if fc.MinScore != nil && (*fc.MinScore < 0 || *fc.MinScore > 1) {
		return fmt.Errorf("min_score %v outside [0,1]", *fc.MinScore)
	}
	if fc.Threads != nil && *fc.Threads < 0 {
		return fmt.Errorf("threads must not be negative")
	}
	if fc.Analyzer != nil {
		if _, err := parseDuration(fc.Analyzer.Timeout); err != nil {
			return fmt.Errorf("analyzer.timeout: %w", err)
		}
	}
	if fc.Cache != nil {
		if _, err := parseDuration(fc.Cache.TTL); err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
	}
	return nil
}

func parseDuration(s *string) (time.Duration, error) {
	if s == nil || *s == "" {
		return 0, nil
	}
	return time.ParseDuration(*s)
}

// AnalyzerTimeout returns the configured timeout, or zero if unset.
func (fc FileConfig) AnalyzerTimeout() time.Duration {
	if fc.Analyzer == nil {
		return 0
	}
	d, _ := parseDuration(fc.Analyzer.Timeout)
	return d
}

// CacheTTL returns the configured cache TTL, or zero if unset.
func (fc FileConfig) CacheTTL() time.Duration {
	if fc.Cache == nil {
		return 0
	}
	d, _ := parseDuration(fc.Cache.TTL)
	return d
}

// Starter is the commented template written by `piiscan config init`.
const Starter = `# piiscan configuration
# Values here are overridden by command-line flags and override the global
# config at $XDG_CONFIG_HOME/piiscan/config.yml.

# rules: ./pii-rules.yml     # rule file; the built-in rules are used when unset
fallback: true               # report pattern-only results if the analyzer fails
min_score: 0
default_excludes: true
# include: "**/*.csv,**/*.txt"
# exclude: "fixtures/**"
max_bytes: 10485760

analyzer:
  # url: http://localhost:5002   # Presidio analyzer; unset disables NER
  timeout: 10s
  language: en
  # rate: 20                     # requests per second

server:
  addr: ":8080"
  max_upload_bytes: 26214400

logging:
  level: info
  format: json

cache:
  enabled: false
  # redis_url: redis://localhost:6379/0
  ttl: 1h
`
