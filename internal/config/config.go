// Package config loads the typed run configuration via Viper, with
// mapstructure-tagged defaults the same way the teacher's heuristics
// config does.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ThresholdRule is one CEL-evaluated policy rule, loaded verbatim from
// config and handed to pkg/policy at startup.
type ThresholdRule struct {
	ID          string   `mapstructure:"id"`
	Objective   string   `mapstructure:"objective"`
	Condition   string   `mapstructure:"condition"`
	Severity    string   `mapstructure:"severity"`
	Priority    int      `mapstructure:"priority"`
	TargetKinds []string `mapstructure:"target_kinds"`
}

// ConcurrencyConfig bounds the orchestrator's worker pool and wall clock.
type ConcurrencyConfig struct {
	MaxParallelAnalyzers int           `mapstructure:"max_parallel_analyzers"`
	WallClockTimeout     time.Duration `mapstructure:"wall_clock_timeout"`
	APICallBudget        int           `mapstructure:"api_call_budget"`
}

// RateLimitConfig bounds the API client's outbound call rate.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxRetries        int     `mapstructure:"max_retries"`
}

// ProfileConfig identifies which deployment and credential profile a run
// targets.
type ProfileConfig struct {
	Name         string `mapstructure:"name"`
	BaseURL      string `mapstructure:"base_url"`
	CredentialID string `mapstructure:"credential_id"`
}

// PricingConfig overrides per-GB/per-search cost estimates the storage and
// cost analyzers use; zero values fall back to the analyzers' own defaults.
type PricingConfig struct {
	PerGBIngestUSD float64 `mapstructure:"per_gb_ingest_usd"`
	PerSearchUSD   float64 `mapstructure:"per_search_usd"`
}

// Config is the complete typed configuration for one cribl-hc run.
type Config struct {
	Profile        ProfileConfig     `mapstructure:"profile"`
	Concurrency    ConcurrencyConfig `mapstructure:"concurrency"`
	RateLimit      RateLimitConfig   `mapstructure:"rate_limit"`
	ObjectiveAllow []string          `mapstructure:"objective_allow"`
	Pricing        PricingConfig     `mapstructure:"pricing"`
	ThresholdRules []ThresholdRule   `mapstructure:"threshold_rules"`
	SlackWebhook   string            `mapstructure:"slack_webhook"`
	HistoryPath    string            `mapstructure:"history_path"`
	OtelEndpoint   string            `mapstructure:"otel_endpoint"`
	JSONLogs       bool              `mapstructure:"json_logs"`
}

// Default returns the safe defaults this domain ships with, the same
// role the teacher's DefaultHeuristicConfig plays: every field has a
// value even before any file or environment variable is read.
func Default() Config {
	return Config{
		Concurrency: ConcurrencyConfig{
			MaxParallelAnalyzers: 4,
			WallClockTimeout:     5 * time.Minute,
			APICallBudget:        100,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			MaxRetries:        3,
		},
		Pricing: PricingConfig{
			PerGBIngestUSD: 0.30,
			PerSearchUSD:   0.05,
		},
		JSONLogs: true,
	}
}

// Load reads configuration from path (if non-empty) and the CRIBL_HC_*
// environment, layered over Default(). A missing config file is not an
// error — Default() plus environment overrides is a valid configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("CRIBL_HC")
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
