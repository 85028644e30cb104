package subscription

import (
	"fmt"
	"math"
	"strings"

	"subpool/core/events"
	"subpool/core/types"
)

// Engine computes fee splits, decay multipliers and reward shares for a
// fixed tier, curve and fee configuration. It holds no subscriber state;
// every stateful operation takes the State it acts on.
type Engine struct {
	tier    TierConfig
	curve   CurveConfig
	fees    FeeConfig
	emitter events.Emitter
}

// NewEngine validates the configuration and constructs an engine.
func NewEngine(tier TierConfig, curve CurveConfig, fees FeeConfig) (*Engine, error) {
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	if err := curve.Validate(); err != nil {
		return nil, err
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	return &Engine{tier: tier, curve: curve, fees: fees, emitter: events.NoopEmitter{}}, nil
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Tier returns the tier configuration.
func (e *Engine) Tier() TierConfig { return e.tier }

// Curve returns the curve configuration.
func (e *Engine) Curve() CurveConfig { return e.curve }

// Fees returns the fee configuration.
func (e *Engine) Fees() FeeConfig { return e.fees }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

// CalculateMultiplier returns the early adopter multiplier for a subscriber
// admitted at timestamp. The value is highest at the start of the curve,
// decays geometrically each period and clamps to the configured floor once
// the curve horizon is reached.
func (e *Engine) CalculateMultiplier(timestamp int64) float64 {
	elapsed := periodsElapsed(timestamp, e.curve.StartTimestamp)
	if elapsed >= e.curve.NumPeriods {
		return e.curve.MinMultiplier
	}
	remaining := e.curve.NumPeriods - elapsed
	return math.Max(math.Pow(e.curve.FormulaBase, float64(remaining)), e.curve.MinMultiplier)
}

// Quote computes the admission breakdown for a subscription of the given
// length starting at timestamp without touching any state.
func (e *Engine) Quote(timestamp int64, subscriptionDays float64) (Admission, error) {
	if !validDays(subscriptionDays) {
		return Admission{}, ErrInvalidDuration
	}
	months := subscriptionDays / DaysPerPeriod
	payment := e.tier.InitialMintPrice + months*e.tier.PricePerPeriod
	protocolFee := bpsOf(payment, e.fees.ProtocolBps)
	clientFee := bpsOf(payment, e.fees.ClientBps)
	net := payment - protocolFee - clientFee
	reward := bpsOf(net, e.tier.RewardBasisPoints)
	multiplier := e.CalculateMultiplier(timestamp)
	return Admission{
		SubscriptionDays:   subscriptionDays,
		SubscriptionMonths: months,
		Payment:            payment,
		ProtocolFee:        protocolFee,
		ClientFee:          clientFee,
		NetPayment:         net,
		RewardAmount:       reward,
		CreatorAmount:      net - reward,
		Multiplier:         multiplier,
		Shares:             reward * multiplier * (months / 12),
	}, nil
}

// AddSubscriber admits address into state at timestamp. Addresses must be
// unique per state: a second admission is rejected and leaves the state
// untouched.
func (e *Engine) AddSubscriber(state *State, address string, timestamp int64, subscriptionDays float64) (*Subscriber, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if strings.TrimSpace(address) == "" {
		return nil, ErrInvalidAddress
	}
	if _, exists := state.lookup(address); exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubscriber, address)
	}
	adm, err := e.Quote(timestamp, subscriptionDays)
	if err != nil {
		return nil, err
	}
	sub := Subscriber{
		Address:           address,
		SubscriptionStart: timestamp,
		ExpiresAt:         expiry(timestamp, subscriptionDays),
		RewardShares:      adm.Shares,
		TotalSpent:        adm.Payment,
		SubscriptionDays:  subscriptionDays,
		RewardAmount:      adm.RewardAmount,
		Multiplier:        adm.Multiplier,
		ProtocolFee:       adm.ProtocolFee,
		ClientFee:         adm.ClientFee,
		NetPayment:        adm.NetPayment,
	}
	state.admit(sub, adm)
	e.emit(SubscriberAdmittedEvent(address, timestamp, adm))
	return &sub, nil
}

// CalculateRewards returns the subscriber's proportional view of the current
// pool. Rewards before the subscription start are zero. Expiry is not
// checked: frozen shares keep claiming against the growing pool.
func (e *Engine) CalculateRewards(state *State, address string, currentTimestamp int64) (float64, error) {
	if state == nil {
		return 0, ErrNilState
	}
	sub, ok := state.lookup(address)
	if !ok {
		return 0, ErrSubscriberNotFound
	}
	if currentTimestamp < sub.SubscriptionStart {
		return 0, nil
	}
	totals := state.totals
	if totals.TotalShares == 0 {
		return 0, ErrNoShares
	}
	return totals.RewardPool * (sub.RewardShares / totals.TotalShares), nil
}

// CalculateROI returns the percentage gain or loss of the subscriber's
// current rewards against the gross amount paid at admission.
func (e *Engine) CalculateROI(state *State, address string, currentTimestamp int64) (ROI, error) {
	if state == nil {
		return ROI{}, ErrNilState
	}
	sub, ok := state.lookup(address)
	if !ok {
		return ROI{}, ErrSubscriberNotFound
	}
	if sub.TotalSpent == 0 {
		return ROI{}, ErrZeroSpend
	}
	rewards, err := e.CalculateRewards(state, address, currentTimestamp)
	if err != nil {
		return ROI{Spent: sub.TotalSpent}, err
	}
	return ROI{
		Percent: (rewards/sub.TotalSpent - 1) * 100,
		Spent:   sub.TotalSpent,
		Rewards: rewards,
	}, nil
}
