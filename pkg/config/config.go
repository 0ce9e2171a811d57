package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines the decoder configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Issuers IssuersConfig `yaml:"issuers"`
	Report  ReportConfig  `yaml:"report"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IssuersConfig points at a replacement issuer table. Empty means the
// embedded table is used.
type IssuersConfig struct {
	Path string `yaml:"path"`
}

type ReportConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}

	if path := os.Getenv("TRANSIT_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if level := os.Getenv("TRANSIT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("TRANSIT_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if path := os.Getenv("TRANSIT_ISSUERS_PATH"); path != "" {
		cfg.Issuers.Path = path
	}
	if verbose := os.Getenv("TRANSIT_VERBOSE"); verbose != "" {
		v, err := strconv.ParseBool(verbose)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRANSIT_VERBOSE: %w", err)
		}
		cfg.Report.Verbose = v
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("invalid log format %q", cfg.Log.Format)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
