package config

import (
	"strings"

	"subpool/core/scenario"
	"subpool/native/subscription"
)

// Config is the root document describing the economics under test, the
// population model, the scenarios to run and the ambient service settings.
type Config struct {
	Tier       subscription.TierConfig  `json:"tier" toml:"tier" yaml:"tier"`
	Curve      subscription.CurveConfig `json:"curve" toml:"curve" yaml:"curve"`
	Fees       subscription.FeeConfig   `json:"fees" toml:"fees" yaml:"fees"`
	Simulation scenario.Params          `json:"simulation" toml:"simulation" yaml:"simulation"`
	Scenarios  []scenario.Scenario      `json:"scenarios" toml:"scenarios" yaml:"scenarios"`
	Logging    Logging                  `json:"logging" toml:"logging" yaml:"logging"`
	Server     Server                   `json:"server" toml:"server" yaml:"server"`
	Telemetry  Telemetry                `json:"telemetry" toml:"telemetry" yaml:"telemetry"`
	Webhook    Webhook                  `json:"webhook" toml:"webhook" yaml:"webhook"`
}

// Logging configures the structured logger.
type Logging struct {
	Level       string `json:"level" toml:"level" yaml:"level"`
	Environment string `json:"environment" toml:"environment" yaml:"environment"`
	File        string `json:"file" toml:"file" yaml:"file"`
	MaxSizeMB   int    `json:"maxSizeMB" toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `json:"maxBackups" toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `json:"maxAgeDays" toml:"max_age_days" yaml:"max_age_days"`
	Compress    bool   `json:"compress" toml:"compress" yaml:"compress"`
}

// Server configures the scenario HTTP API.
type Server struct {
	ListenAddress     string   `json:"listen" toml:"listen" yaml:"listen"`
	RequestsPerMinute float64  `json:"requestsPerMinute" toml:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int      `json:"burst" toml:"burst" yaml:"burst"`
	MaxMonths         int      `json:"maxMonths" toml:"max_months" yaml:"max_months"`
	LogRequests       bool     `json:"logRequests" toml:"log_requests" yaml:"log_requests"`
	AllowedOrigins    []string `json:"allowedOrigins" toml:"allowed_origins" yaml:"allowed_origins"`
}

// Telemetry configures OpenTelemetry export. SampleRatio keeps that
// fraction of root spans; zero keeps them all.
type Telemetry struct {
	Endpoint    string  `json:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Insecure    bool    `json:"insecure" toml:"insecure" yaml:"insecure"`
	Traces      bool    `json:"traces" toml:"traces" yaml:"traces"`
	Metrics     bool    `json:"metrics" toml:"metrics" yaml:"metrics"`
	SampleRatio float64 `json:"sampleRatio" toml:"sample_ratio" yaml:"sample_ratio"`
}

// Webhook configures completed-run notifications from the HTTP API. The
// secret is read from SecretEnv so it never lives in the config file.
type Webhook struct {
	URL         string `json:"url" toml:"url" yaml:"url"`
	SecretEnv   string `json:"secretEnv" toml:"secret_env" yaml:"secret_env"`
	MaxAttempts int    `json:"maxAttempts" toml:"max_attempts" yaml:"max_attempts"`
}

// Enabled reports whether a webhook endpoint is configured.
func (w Webhook) Enabled() bool { return strings.TrimSpace(w.URL) != "" }

// Scenario returns the named scenario, or the first one when name is empty.
func (c *Config) Scenario(name string) (scenario.Scenario, bool) {
	if c == nil || len(c.Scenarios) == 0 {
		return scenario.Scenario{}, false
	}
	if name == "" {
		return c.Scenarios[0], true
	}
	for _, sc := range c.Scenarios {
		if sc.Name == name {
			return sc, true
		}
	}
	return scenario.Scenario{}, false
}

// NewEngine builds an economics engine from the tier, curve and fee sections.
func (c *Config) NewEngine() (*subscription.Engine, error) {
	return subscription.NewEngine(c.Tier, c.Curve, c.Fees)
}
