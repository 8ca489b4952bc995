// Package config loads runner settings from .env, ROADSIDE_* variables and flags.
package config

import (
	"fmt"
	"time"

	"roadside_e2e/application/scenario"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const envPrefix = "roadside"

// Config is the full runner configuration. Flags override environment values.
type Config struct {
	Browser  string        `envconfig:"browser" default:"chromium"`
	Headless bool          `envconfig:"headless" default:"true"`
	SlowMo   time.Duration `envconfig:"slow_mo" default:"0s"`

	Workers int    `envconfig:"workers" default:"1"`
	Retries int    `envconfig:"retries" default:"0"`
	Trace   string `envconfig:"trace" default:"on-first-retry"`

	BaseURL   string `envconfig:"base_url"`
	UserAgent string `envconfig:"user_agent"`

	Timeout         time.Duration `envconfig:"timeout" default:"30s"`
	OptionalTimeout time.Duration `envconfig:"optional_timeout" default:"3s"`
	ActionTimeout   time.Duration `envconfig:"action_timeout" default:"30s"`
	Backoff         time.Duration `envconfig:"backoff" default:"250ms"`

	OutputDir    string `envconfig:"output_dir" default:"test-results"`
	LogLevel     string `envconfig:"log_level" default:"info"`
	AllowPayment bool   `envconfig:"allow_payment" default:"false"`
}

// Load reads an optional .env file and then the process environment
func Load(logger *logrus.Logger, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		// .env file is optional
		logger.Debug(".env file not found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// BindFlags registers flags whose defaults come from cfg, so parsing them
// overrides the environment in place.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Browser, "browser", c.Browser, "browser engine: chromium, firefox or webkit")
	flags.BoolVar(&c.Headless, "headless", c.Headless, "run the browser without a window")
	flags.DurationVar(&c.SlowMo, "slow-mo", c.SlowMo, "delay between browser operations")
	flags.IntVarP(&c.Workers, "workers", "w", c.Workers, "scenarios run in parallel")
	flags.IntVar(&c.Retries, "retries", c.Retries, "re-runs of a failed scenario")
	flags.StringVar(&c.Trace, "trace", c.Trace, "trace mode: off, on, on-first-retry or retain-on-failure")
	flags.StringVar(&c.BaseURL, "base-url", c.BaseURL, "base URL for scenarios without their own")
	flags.StringVar(&c.UserAgent, "user-agent", c.UserAgent, "user agent for scenarios without their own")
	flags.DurationVar(&c.Timeout, "timeout", c.Timeout, "wait for required elements")
	flags.DurationVar(&c.OptionalTimeout, "optional-timeout", c.OptionalTimeout, "wait for optional elements")
	flags.DurationVar(&c.ActionTimeout, "action-timeout", c.ActionTimeout, "limit for a single click, fill or load wait")
	flags.DurationVar(&c.Backoff, "backoff", c.Backoff, "longest pause between element searches")
	flags.StringVarP(&c.OutputDir, "output", "o", c.OutputDir, "directory for results and traces")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
	flags.BoolVar(&c.AllowPayment, "allow-payment", c.AllowPayment, "allow clicks that would submit a payment")
}

// Validate checks values the environment or flags may have broken
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Timeout <= 0 || c.OptionalTimeout <= 0 || c.ActionTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Backoff <= 0 {
		return fmt.Errorf("backoff must be positive, got %s", c.Backoff)
	}
	if _, err := scenario.ParseTraceMode(c.Trace); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unknown log level %s", c.LogLevel)
	}
	return nil
}

// TraceMode returns the parsed trace mode; call Validate first
func (c Config) TraceMode() scenario.TraceMode {
	mode, _ := scenario.ParseTraceMode(c.Trace)
	return mode
}

// Level returns the parsed log level, defaulting to info
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
