package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"subpool/core/scenario"
)

// ErrScenarioTooLong is returned when a scenario runs longer than
// server.max_months allows.
var ErrScenarioTooLong = errors.New("config: scenario exceeds max months")

// CheckScenario validates sc against the run limits of this configuration.
// Every entry point that runs a scenario applies it, so configured, CLI
// overridden and HTTP supplied scenarios share one ceiling.
func (c *Config) CheckScenario(sc scenario.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if limit := c.Server.MaxMonths; limit > 0 && sc.Months > limit {
		return fmt.Errorf("%w: months %d, limit %d", ErrScenarioTooLong, sc.Months, limit)
	}
	return nil
}

// Validate checks every section. Economic sections are validated by the
// engine and simulator types themselves.
func (c *Config) Validate() error {
	if err := c.Tier.Validate(); err != nil {
		return err
	}
	if err := c.Curve.Validate(); err != nil {
		return err
	}
	if err := c.Fees.Validate(); err != nil {
		return err
	}
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	if c.Tier.InitialMintPrice == 0 && c.Tier.PricePerPeriod == 0 {
		return fmt.Errorf("tier: initial mint price and price per period cannot both be zero")
	}
	seen := make(map[string]struct{}, len(c.Scenarios))
	for i, sc := range c.Scenarios {
		if err := c.CheckScenario(sc); err != nil {
			return fmt.Errorf("scenarios[%d] %q: %w", i, sc.Name, err)
		}
		if _, dup := seen[sc.Name]; dup {
			return fmt.Errorf("scenarios[%d]: duplicate name %q", i, sc.Name)
		}
		seen[sc.Name] = struct{}{}
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits cannot be negative")
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server: rate limits cannot be negative")
	}
	if c.Server.MaxMonths < 0 {
		return fmt.Errorf("server: max_months cannot be negative")
	}
	if r := c.Telemetry.SampleRatio; math.IsNaN(r) || r < 0 || r > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0, 1]")
	}
	if c.Webhook.Enabled() {
		if !strings.HasPrefix(c.Webhook.URL, "http://") && !strings.HasPrefix(c.Webhook.URL, "https://") {
			return fmt.Errorf("webhook: url must be http or https")
		}
		if strings.TrimSpace(c.Webhook.SecretEnv) == "" {
			return fmt.Errorf("webhook: secret_env required when url is set")
		}
	}
	if c.Webhook.MaxAttempts < 0 {
		return fmt.Errorf("webhook: max_attempts cannot be negative")
	}
	return nil
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", level)
	}
}
