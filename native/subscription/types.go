package subscription

import (
	"fmt"
	"math"
)

const (
	// SecondsPerDay is the fixed day length used by the curve and expiry math.
	SecondsPerDay = 86_400
	// DaysPerPeriod is the fixed period length. Calendar months are not used.
	DaysPerPeriod = 30
	// SecondsPerPeriod is the length of one curve period in seconds.
	SecondsPerPeriod = DaysPerPeriod * SecondsPerDay
	// BasisPointsDenom is the basis-point denominator (10000 bps = 100%).
	BasisPointsDenom = 10_000
)

// TierConfig captures the reward terms of the single subscription tier.
type TierConfig struct {
	RewardBasisPoints uint32  `json:"rewardBasisPoints" toml:"reward_bps" yaml:"reward_bps"`
	InitialMintPrice  float64 `json:"initialMintPrice" toml:"initial_mint_price" yaml:"initial_mint_price"`
	PricePerPeriod    float64 `json:"pricePerPeriod" toml:"price_per_period" yaml:"price_per_period"`
}

// Validate ensures the tier terms are usable.
func (t TierConfig) Validate() error {
	if t.RewardBasisPoints > BasisPointsDenom {
		return fmt.Errorf("%w: tier reward bps %d exceeds %d", ErrInvalidConfig, t.RewardBasisPoints, BasisPointsDenom)
	}
	if !finiteNonNegative(t.InitialMintPrice) {
		return fmt.Errorf("%w: tier initial mint price must be a non-negative number", ErrInvalidConfig)
	}
	if !finiteNonNegative(t.PricePerPeriod) {
		return fmt.Errorf("%w: tier price per period must be a non-negative number", ErrInvalidConfig)
	}
	return nil
}

// CurveConfig parameterises the early adopter decay curve.
type CurveConfig struct {
	NumPeriods     int64   `json:"numPeriods" toml:"num_periods" yaml:"num_periods"`
	FormulaBase    float64 `json:"formulaBase" toml:"formula_base" yaml:"formula_base"`
	StartTimestamp int64   `json:"startTimestamp" toml:"start_timestamp" yaml:"start_timestamp"`
	MinMultiplier  float64 `json:"minMultiplier" toml:"min_multiplier" yaml:"min_multiplier"`
}

// Validate ensures the curve parameters describe a decaying curve.
func (c CurveConfig) Validate() error {
	if c.NumPeriods <= 0 {
		return fmt.Errorf("%w: curve num periods must be positive", ErrInvalidConfig)
	}
	if math.IsNaN(c.FormulaBase) || math.IsInf(c.FormulaBase, 0) || c.FormulaBase <= 1 {
		return fmt.Errorf("%w: curve formula base must be greater than 1", ErrInvalidConfig)
	}
	if !finiteNonNegative(c.MinMultiplier) {
		return fmt.Errorf("%w: curve min multiplier must be a non-negative number", ErrInvalidConfig)
	}
	return nil
}

// FeeConfig describes the basis-point cuts taken off the gross payment
// before the reward pool contribution is computed.
type FeeConfig struct {
	ProtocolBps uint32 `json:"protocolBps" toml:"protocol_bps" yaml:"protocol_bps"`
	ClientBps   uint32 `json:"clientBps" toml:"client_bps" yaml:"client_bps"`
}

// Validate ensures the fee cuts never exceed the gross payment.
func (f FeeConfig) Validate() error {
	if f.ProtocolBps > BasisPointsDenom {
		return fmt.Errorf("%w: protocol bps %d exceeds %d", ErrInvalidConfig, f.ProtocolBps, BasisPointsDenom)
	}
	if f.ClientBps > BasisPointsDenom {
		return fmt.Errorf("%w: client bps %d exceeds %d", ErrInvalidConfig, f.ClientBps, BasisPointsDenom)
	}
	if uint64(f.ProtocolBps)+uint64(f.ClientBps) > BasisPointsDenom {
		return fmt.Errorf("%w: combined fee bps %d exceeds %d", ErrInvalidConfig, f.ProtocolBps+f.ClientBps, BasisPointsDenom)
	}
	return nil
}

// Admission is the fee split and share accrual computed for one subscriber.
type Admission struct {
	SubscriptionDays   float64 `json:"subscriptionDays"`
	SubscriptionMonths float64 `json:"subscriptionMonths"`
	Payment            float64 `json:"payment"`
	ProtocolFee        float64 `json:"protocolFee"`
	ClientFee          float64 `json:"clientFee"`
	NetPayment         float64 `json:"netPayment"`
	RewardAmount       float64 `json:"rewardAmount"`
	CreatorAmount      float64 `json:"creatorAmount"`
	Multiplier         float64 `json:"multiplier"`
	Shares             float64 `json:"shares"`
}

// Subscriber is an admitted subscriber. Records are frozen at admission;
// the share weight is never recomputed.
type Subscriber struct {
	Address           string  `json:"address"`
	SubscriptionStart int64   `json:"subscriptionStart"`
	ExpiresAt         int64   `json:"expiresAt"`
	RewardShares      float64 `json:"rewardShares"`
	TotalSpent        float64 `json:"totalSpent"`
	SubscriptionDays  float64 `json:"subscriptionDays"`
	RewardAmount      float64 `json:"rewardAmount"`
	Multiplier        float64 `json:"multiplier"`
	ProtocolFee       float64 `json:"protocolFee"`
	ClientFee         float64 `json:"clientFee"`
	NetPayment        float64 `json:"netPayment"`
}

// Active reports whether the nominal subscription window covers ts. Rewards
// do not depend on it: expired subscribers keep their frozen pool share.
func (s *Subscriber) Active(ts int64) bool {
	if s == nil {
		return false
	}
	return ts >= s.SubscriptionStart && ts < s.ExpiresAt
}

// ROI summarises a subscriber's return relative to the gross amount paid.
type ROI struct {
	Percent float64 `json:"roi"`
	Spent   float64 `json:"spent"`
	Rewards float64 `json:"rewards"`
}

// Totals is a copy of the cumulative pool accounting.
type Totals struct {
	RewardPool       float64 `json:"rewardPool"`
	TotalShares      float64 `json:"totalShares"`
	CreatorBalance   float64 `json:"creatorBalance"`
	ProtocolEarnings float64 `json:"protocolEarnings"`
	ClientEarnings   float64 `json:"clientEarnings"`
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
