package scenario

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// TestSubscriberAddress is reserved for the distinguished test
	// subscriber. It is excluded from population averages and growth.
	TestSubscriberAddress = "test-subscriber"

	// DefaultInitialSubscribers is the size of the cohort seeded at the start
	// of every run.
	DefaultInitialSubscribers = 100
	// DefaultAverageSubscriptionDays is the subscription length assigned to
	// every regular subscriber (12 periods of 30 days).
	DefaultAverageSubscriptionDays = 360
	// DefaultMaxSubscribers caps the admitted population of a run.
	DefaultMaxSubscribers = 1_000_000
)

var (
	// ErrInvalidParams is wrapped by every parameter validation failure.
	ErrInvalidParams = errors.New("scenario: invalid parameters")
	// ErrPopulationLimit is returned when geometric growth would admit more
	// subscribers than the configured cap.
	ErrPopulationLimit = errors.New("scenario: population limit exceeded")
	// ErrNilEngine is returned when a simulator is built without an engine.
	ErrNilEngine = errors.New("scenario: engine required")
)

// Params fixes the population model shared by every run of a simulator.
type Params struct {
	InitialSubscribers      int     `json:"initialSubscribers" toml:"initial_subscribers" yaml:"initial_subscribers"`
	AverageSubscriptionDays float64 `json:"averageSubscriptionDays" toml:"average_subscription_days" yaml:"average_subscription_days"`
	MaxSubscribers          int     `json:"maxSubscribers" toml:"max_subscribers" yaml:"max_subscribers"`
}

// DefaultParams returns the stock population model.
func DefaultParams() Params {
	return Params{
		InitialSubscribers:      DefaultInitialSubscribers,
		AverageSubscriptionDays: DefaultAverageSubscriptionDays,
		MaxSubscribers:          DefaultMaxSubscribers,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	return p.WithFallback(DefaultParams())
}

// WithFallback fills zero fields from base.
func (p Params) WithFallback(base Params) Params {
	if p.InitialSubscribers == 0 {
		p.InitialSubscribers = base.InitialSubscribers
	}
	if p.AverageSubscriptionDays == 0 {
		p.AverageSubscriptionDays = base.AverageSubscriptionDays
	}
	if p.MaxSubscribers == 0 {
		p.MaxSubscribers = base.MaxSubscribers
	}
	return p
}

// Validate checks the population model.
func (p Params) Validate() error {
	if p.InitialSubscribers <= 0 {
		return fmt.Errorf("%w: initial subscribers must be positive", ErrInvalidParams)
	}
	if !positiveFinite(p.AverageSubscriptionDays) {
		return fmt.Errorf("%w: average subscription days must be positive", ErrInvalidParams)
	}
	// The test subscriber is admitted on top of the initial cohort.
	if p.MaxSubscribers <= p.InitialSubscribers {
		return fmt.Errorf("%w: max subscribers %d must exceed the initial cohort %d", ErrInvalidParams, p.MaxSubscribers, p.InitialSubscribers)
	}
	return nil
}

// Scenario names one parameter set for a run.
type Scenario struct {
	Name                 string  `json:"name" toml:"name" yaml:"name"`
	StartTimestamp       int64   `json:"startTimestamp" toml:"start_timestamp" yaml:"start_timestamp"`
	Months               int     `json:"months" toml:"months" yaml:"months"`
	MonthlyGrowthRate    float64 `json:"monthlyGrowthRate" toml:"monthly_growth_rate" yaml:"monthly_growth_rate"`
	TestSubscriptionDays float64 `json:"testSubscriptionDays" toml:"test_subscription_days" yaml:"test_subscription_days"`
}

// Validate checks the run inputs.
func (s Scenario) Validate() error {
	return validateRun(s.Months, s.MonthlyGrowthRate, s.TestSubscriptionDays)
}

// Label returns the scenario name or a generated fallback.
func (s Scenario) Label() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return fmt.Sprintf("growth-%g-test-%gd", s.MonthlyGrowthRate, s.TestSubscriptionDays)
}

func validateRun(months int, growth, testDays float64) error {
	if months <= 0 {
		return fmt.Errorf("%w: months must be positive", ErrInvalidParams)
	}
	if math.IsNaN(growth) || math.IsInf(growth, 0) || growth < 0 {
		return fmt.Errorf("%w: monthly growth rate must be a non-negative number", ErrInvalidParams)
	}
	if !positiveFinite(testDays) {
		return fmt.Errorf("%w: test subscription days must be positive", ErrInvalidParams)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
