package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"subpool/core/scenario"
	"subpool/native/subscription"
)

const (
	defaultListenAddress     = ":8090"
	defaultRequestsPerMinute = 60
	defaultBurst             = 10
	defaultMaxMonths         = 120
	defaultTelemetryEndpoint = "localhost:4318"
	defaultLogLevel          = "info"
	defaultLogMaxSizeMB      = 100
	defaultLogMaxBackups     = 5
	defaultLogMaxAgeDays     = 28

	// DefaultStartTimestamp anchors the stock curve and scenarios at
	// 2025-01-01T00:00:00Z.
	DefaultStartTimestamp = int64(1_735_689_600)
)

// ErrPathRequired is returned when Load is called without a path.
var ErrPathRequired = errors.New("config: path required")

// Default returns the stock configuration: a 5-per-period tier routing 20%
// of net revenue to the pool, a 60 period curve with base 1.2, 1% protocol
// and 5% client fees, and a single five year base scenario.
func Default() *Config {
	cfg := &Config{
		Tier:  subscription.TierConfig{RewardBasisPoints: 2000, InitialMintPrice: 0, PricePerPeriod: 5},
		Curve: subscription.CurveConfig{NumPeriods: 60, FormulaBase: 1.2, StartTimestamp: DefaultStartTimestamp, MinMultiplier: 0},
		Fees:  subscription.FeeConfig{ProtocolBps: 100, ClientBps: 500},
		Scenarios: []scenario.Scenario{{
			Name:                 "base",
			StartTimestamp:       DefaultStartTimestamp,
			Months:               60,
			MonthlyGrowthRate:    0.05,
			TestSubscriptionDays: 360,
		}},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration at path. The format is chosen from the file
// extension (.toml, .yaml/.yml or .json); unknown keys are rejected.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses raw configuration bytes in the format named by ext, applies
// defaults and validates the result.
func Decode(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml", "tml":
		meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		if err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown fields %v", undecoded)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: encode toml: %w", err)
	}
	return buf.Bytes(), nil
}

func applyDefaults(cfg *Config) {
	cfg.Simulation = cfg.Simulation.WithDefaults()
	for i := range cfg.Scenarios {
		if cfg.Scenarios[i].StartTimestamp == 0 {
			cfg.Scenarios[i].StartTimestamp = cfg.Curve.StartTimestamp
		}
		if strings.TrimSpace(cfg.Scenarios[i].Name) == "" {
			cfg.Scenarios[i].Name = cfg.Scenarios[i].Label()
		}
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = defaultLogMaxBackups
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = defaultLogMaxAgeDays
	}
	if strings.TrimSpace(cfg.Server.ListenAddress) == "" {
		cfg.Server.ListenAddress = defaultListenAddress
	}
	if cfg.Server.RequestsPerMinute == 0 {
		cfg.Server.RequestsPerMinute = defaultRequestsPerMinute
	}
	if cfg.Server.Burst == 0 {
		cfg.Server.Burst = defaultBurst
	}
	if cfg.Server.MaxMonths == 0 {
		cfg.Server.MaxMonths = defaultMaxMonths
	}
	if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		cfg.Telemetry.Endpoint = defaultTelemetryEndpoint
	}
}
