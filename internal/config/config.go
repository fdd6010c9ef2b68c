// Package config loads scraper configuration from an optional YAML file
// and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML values like "30s" or "2m" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config holds the full scraper configuration.
type Config struct {
	// LeagueID is the classic league to harvest.
	LeagueID int `yaml:"league_id"`

	// BaseURL is the FPL API base URL.
	BaseURL string `yaml:"base_url"`

	// TotalPages is the number of standings pages to fetch.
	TotalPages int `yaml:"total_pages"`

	// Concurrency caps simultaneous requests against the API.
	Concurrency int `yaml:"concurrency"`

	// MaxAttempts is the per-page attempt budget.
	MaxAttempts int `yaml:"max_attempts"`

	// RequestTimeout bounds each HTTP attempt.
	RequestTimeout Duration `yaml:"request_timeout"`

	// OutputPath receives the harvested records, one JSON object per line.
	OutputPath string `yaml:"output_path"`

	// Compress gzips the output file.
	Compress bool `yaml:"compress"`

	// FailureReportPath receives the failed-pages report.
	FailureReportPath string `yaml:"failure_report_path"`

	// ProgressInterval logs progress every N pages (0 disables).
	ProgressInterval int `yaml:"progress_interval"`

	// UserAgent identifies the scraper to the API.
	UserAgent string `yaml:"user_agent"`

	// RedisURL enables the resume journal when set (host:port).
	RedisURL string `yaml:"redis_url"`

	// ArchiveURL enables artifact archiving when set (file://, gs://, s3://).
	ArchiveURL string `yaml:"archive_url"`

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9090").
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogPretty enables human-readable console logs.
	LogPretty bool `yaml:"log_pretty"`
}

// Default returns the configuration for the overall-ranking league.
func Default() Config {
	return Config{
		LeagueID:          314,
		BaseURL:           "https://fantasy.premierleague.com",
		TotalPages:        214849,
		Concurrency:       50,
		MaxAttempts:       5,
		RequestTimeout:    Duration(30 * time.Second),
		OutputPath:        "player_data.json",
		FailureReportPath: "failed_attempts.json",
		ProgressInterval:  10000,
		UserAgent:         "FPLscraper/1.0",
		LogLevel:          "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load for main: it panics on invalid configuration.
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for values the scraper cannot run with.
func (c Config) Validate() error {
	if c.LeagueID <= 0 {
		return fmt.Errorf("league_id must be positive (got %d)", c.LeagueID)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.TotalPages <= 0 {
		return fmt.Errorf("total_pages must be positive (got %d)", c.TotalPages)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive (got %d)", c.Concurrency)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive (got %d)", c.MaxAttempts)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	return nil
}

// applyEnv overrides individual fields from the environment. Unparseable
// values keep the existing setting.
func applyEnv(cfg *Config) {
	setInt(&cfg.LeagueID, "LEAGUE_ID")
	setString(&cfg.BaseURL, "BASE_URL")
	setInt(&cfg.TotalPages, "TOTAL_PAGES")
	setInt(&cfg.Concurrency, "CONCURRENCY")
	setInt(&cfg.MaxAttempts, "MAX_ATTEMPTS")
	setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	setString(&cfg.OutputPath, "OUTPUT_PATH")
	setBool(&cfg.Compress, "COMPRESS")
	setString(&cfg.FailureReportPath, "FAILURE_REPORT_PATH")
	setInt(&cfg.ProgressInterval, "PROGRESS_INTERVAL")
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.ArchiveURL, "ARCHIVE_URL")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setBool(&cfg.LogPretty, "LOG_PRETTY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = Duration(parsed)
		}
	}
}
