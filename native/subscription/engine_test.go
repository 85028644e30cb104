package subscription

import (
	"errors"
	"math"
	"testing"

	"subpool/core/events"
)

const curveStart = int64(1_700_000_000)

func workedExampleEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(
		TierConfig{RewardBasisPoints: 2000, InitialMintPrice: 0, PricePerPeriod: 5},
		CurveConfig{NumPeriods: 60, FormulaBase: 1.2, StartTimestamp: curveStart, MinMultiplier: 0},
		FeeConfig{ProtocolBps: 100, ClientBps: 500},
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestWorkedExample(t *testing.T) {
	engine := workedExampleEngine(t)
	state := NewState()

	adm, err := engine.Quote(curveStart, 360)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	checks := []struct {
		name string
		got  float64
		want float64
		tol  float64
	}{
		{"payment", adm.Payment, 60, 1e-9},
		{"protocolFee", adm.ProtocolFee, 0.6, 1e-9},
		{"clientFee", adm.ClientFee, 3.0, 1e-9},
		{"netPayment", adm.NetPayment, 56.4, 1e-9},
		{"rewardAmount", adm.RewardAmount, 11.28, 1e-9},
		{"multiplier", adm.Multiplier, math.Pow(1.2, 60), 1e-9},
		{"shares", adm.Shares, 635_600, 50},
	}
	for _, c := range checks {
		if !approxEqual(c.got, c.want, c.tol) {
			t.Fatalf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
	if !approxEqual(adm.Multiplier, 56_347.5, 1) {
		t.Fatalf("multiplier should be about 56347.5, got %v", adm.Multiplier)
	}

	sub, err := engine.AddSubscriber(state, "alice", curveStart, 360)
	if err != nil {
		t.Fatalf("add subscriber: %v", err)
	}
	totals := state.Totals()
	if totals.TotalShares != sub.RewardShares {
		t.Fatalf("total shares %v != subscriber shares %v", totals.TotalShares, sub.RewardShares)
	}
	for _, ts := range []int64{curveStart, curveStart + SecondsPerPeriod, curveStart + 100*SecondsPerPeriod} {
		rewards, err := engine.CalculateRewards(state, "alice", ts)
		if err != nil {
			t.Fatalf("rewards at %d: %v", ts, err)
		}
		if rewards != totals.RewardPool {
			t.Fatalf("sole subscriber should own the whole pool: got %v want %v", rewards, totals.RewardPool)
		}
		if !approxEqual(rewards, 11.28, 1e-9) {
			t.Fatalf("rewards: got %v want 11.28", rewards)
		}
	}
	if !approxEqual(totals.CreatorBalance, 56.4-11.28, 1e-9) {
		t.Fatalf("creator balance: got %v", totals.CreatorBalance)
	}
	if !approxEqual(totals.ProtocolEarnings, 0.6, 1e-9) || !approxEqual(totals.ClientEarnings, 3.0, 1e-9) {
		t.Fatalf("fee earnings: got protocol=%v client=%v", totals.ProtocolEarnings, totals.ClientEarnings)
	}
	if sub.ExpiresAt != curveStart+360*SecondsPerDay {
		t.Fatalf("expiry: got %d", sub.ExpiresAt)
	}
}

func TestCalculateMultiplierBoundary(t *testing.T) {
	engine := workedExampleEngine(t)
	horizon := curveStart + 60*SecondsPerPeriod
	if got := engine.CalculateMultiplier(horizon); got != 0 {
		t.Fatalf("multiplier at horizon: got %v want 0", got)
	}
	if got := engine.CalculateMultiplier(horizon - SecondsPerPeriod); got != 1.2 {
		t.Fatalf("multiplier one period before horizon: got %v want 1.2", got)
	}
	if got := engine.CalculateMultiplier(horizon - 1); got != 1.2 {
		t.Fatalf("multiplier one second before horizon: got %v want 1.2", got)
	}
	if got := engine.CalculateMultiplier(horizon + 10*SecondsPerPeriod); got != 0 {
		t.Fatalf("multiplier past horizon: got %v want 0", got)
	}
}

func TestCalculateMultiplierDecaysAndClamps(t *testing.T) {
	engine, err := NewEngine(
		TierConfig{RewardBasisPoints: 2000, PricePerPeriod: 5},
		CurveConfig{NumPeriods: 10, FormulaBase: 2, StartTimestamp: curveStart, MinMultiplier: 8},
		FeeConfig{},
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	prev := math.Inf(1)
	for period := int64(0); period < 12; period++ {
		got := engine.CalculateMultiplier(curveStart + period*SecondsPerPeriod)
		if got > prev {
			t.Fatalf("multiplier increased at period %d: %v > %v", period, got, prev)
		}
		if got < 8 {
			t.Fatalf("multiplier below floor at period %d: %v", period, got)
		}
		prev = got
	}
	if got := engine.CalculateMultiplier(curveStart); got != 1024 {
		t.Fatalf("multiplier at start: got %v want 1024", got)
	}
	// 2^2 = 4 is clamped to the floor of 8.
	if got := engine.CalculateMultiplier(curveStart + 8*SecondsPerPeriod); got != 8 {
		t.Fatalf("clamped multiplier: got %v want 8", got)
	}
	// Before the curve start the period count is negative.
	if got := engine.CalculateMultiplier(curveStart - 1); got != 2048 {
		t.Fatalf("multiplier before start: got %v want 2048", got)
	}
}

func TestRewardsZeroBeforeStart(t *testing.T) {
	engine := workedExampleEngine(t)
	state := NewState()
	starts := map[string]int64{
		"a": curveStart,
		"b": curveStart + 3*SecondsPerPeriod,
		"c": curveStart + 7*SecondsPerPeriod + 42,
	}
	for _, addr := range []string{"a", "b", "c"} {
		if _, err := engine.AddSubscriber(state, addr, starts[addr], 360); err != nil {
			t.Fatalf("add %s: %v", addr, err)
		}
	}
	for addr, start := range starts {
		for _, ts := range []int64{start - 1, start - SecondsPerPeriod, 0} {
			rewards, err := engine.CalculateRewards(state, addr, ts)
			if err != nil {
				t.Fatalf("rewards %s at %d: %v", addr, ts, err)
			}
			if rewards != 0 {
				t.Fatalf("expected zero rewards for %s before start, got %v", addr, rewards)
			}
		}
		rewards, err := engine.CalculateRewards(state, addr, start)
		if err != nil {
			t.Fatalf("rewards %s at start: %v", addr, err)
		}
		if rewards <= 0 {
			t.Fatalf("expected positive rewards for %s at start, got %v", addr, rewards)
		}
	}
}

func TestROIZeroWhenRewardsEqualSpend(t *testing.T) {
	engine, err := NewEngine(
		TierConfig{RewardBasisPoints: BasisPointsDenom, InitialMintPrice: 10, PricePerPeriod: 5},
		CurveConfig{NumPeriods: 12, FormulaBase: 1.5, StartTimestamp: curveStart},
		FeeConfig{},
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	state := NewState()
	if _, err := engine.AddSubscriber(state, "solo", curveStart, 360); err != nil {
		t.Fatalf("add: %v", err)
	}
	roi, err := engine.CalculateROI(state, "solo", curveStart)
	if err != nil {
		t.Fatalf("roi: %v", err)
	}
	if roi.Rewards != roi.Spent {
		t.Fatalf("expected rewards == spent, got %v vs %v", roi.Rewards, roi.Spent)
	}
	if roi.Percent != 0 {
		t.Fatalf("expected zero ROI, got %v", roi.Percent)
	}
	if roi.Spent != 70 {
		t.Fatalf("expected spend of 70, got %v", roi.Spent)
	}
}

func TestROISignFollowsRewards(t *testing.T) {
	engine := workedExampleEngine(t)
	state := NewState()
	if _, err := engine.AddSubscriber(state, "early", curveStart, 360); err != nil {
		t.Fatalf("add early: %v", err)
	}
	for i := 0; i < 50; i++ {
		addr := "late-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		if _, err := engine.AddSubscriber(state, addr, curveStart+30*SecondsPerPeriod, 360); err != nil {
			t.Fatalf("add %s: %v", addr, err)
		}
	}
	now := curveStart + 31*SecondsPerPeriod
	early, err := engine.CalculateROI(state, "early", now)
	if err != nil {
		t.Fatalf("early roi: %v", err)
	}
	late, err := engine.CalculateROI(state, "late-aa", now)
	if err != nil {
		t.Fatalf("late roi: %v", err)
	}
	if early.Rewards <= late.Rewards {
		t.Fatalf("early subscriber should out-earn late ones: %v <= %v", early.Rewards, late.Rewards)
	}
	if late.Percent >= 0 {
		t.Fatalf("late subscriber should be under water, got %v%%", late.Percent)
	}
	want := (early.Rewards/early.Spent - 1) * 100
	if early.Percent != want {
		t.Fatalf("roi formula mismatch: got %v want %v", early.Percent, want)
	}
}

func TestLongerSubscriptionsAccrueProportionalShares(t *testing.T) {
	engine := workedExampleEngine(t)
	twelve, err := engine.Quote(curveStart, 360)
	if err != nil {
		t.Fatalf("quote 12: %v", err)
	}
	twentyFour, err := engine.Quote(curveStart, 720)
	if err != nil {
		t.Fatalf("quote 24: %v", err)
	}
	// Twice the payment and twice the annualised length scale.
	if !approxEqual(twentyFour.Shares, 4*twelve.Shares, 1e-6) {
		t.Fatalf("expected 24 month shares to be 4x the 12 month shares: %v vs %v", twentyFour.Shares, twelve.Shares)
	}
	if !approxEqual(twentyFour.Shares/twentyFour.RewardAmount, 2*twelve.Shares/twelve.RewardAmount, 1e-9) {
		t.Fatalf("length scaling per reward unit should double")
	}
}

func TestUnknownSubscriber(t *testing.T) {
	engine := workedExampleEngine(t)
	state := NewState()
	if _, err := engine.CalculateRewards(state, "ghost", curveStart); !errors.Is(err, ErrSubscriberNotFound) {
		t.Fatalf("expected ErrSubscriberNotFound, got %v", err)
	}
	roi, err := engine.CalculateROI(state, "ghost", curveStart)
	if !errors.Is(err, ErrSubscriberNotFound) {
		t.Fatalf("expected ErrSubscriberNotFound, got %v", err)
	}
	if roi != (ROI{}) {
		t.Fatalf("expected zero ROI for unknown subscriber, got %+v", roi)
	}
}

func TestNoSharesReported(t *testing.T) {
	engine := workedExampleEngine(t)
	state := NewState()
	// Past the horizon the multiplier is the zero floor, so no shares accrue.
	ts := curveStart + 61*SecondsPerPeriod
	sub, err := engine.AddSubscriber(state, "late", ts, 360)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sub.RewardShares != 0 {
		t.Fatalf("expected zero shares, got %v", sub.RewardShares)
	}
	if _, err := engine.CalculateRewards(state, "late", ts); !errors.Is(err, ErrNoShares) {
		t.Fatalf("expected ErrNoShares, got %v", err)
	}
	if _, err := engine.CalculateROI(state, "late", ts); !errors.Is(err, ErrNoShares) {
		t.Fatalf("expected ErrNoShares from ROI, got %v", err)
	}
}

func TestZeroSpendReported(t *testing.T) {
	engine, err := NewEngine(
		TierConfig{RewardBasisPoints: 2000},
		CurveConfig{NumPeriods: 12, FormulaBase: 1.1, StartTimestamp: curveStart, MinMultiplier: 1},
		FeeConfig{},
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	state := NewState()
	if _, err := engine.AddSubscriber(state, "free", curveStart, 360); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := engine.CalculateROI(state, "free", curveStart); !errors.Is(err, ErrZeroSpend) {
		t.Fatalf("expected ErrZeroSpend, got %v", err)
	}
	if _, err := engine.CalculateRewards(state, "free", curveStart); !errors.Is(err, ErrNoShares) {
		t.Fatalf("expected ErrNoShares, got %v", err)
	}
}

func TestDuplicateAdmissionRejected(t *testing.T) {
	engine := workedExampleEngine(t)
	state := NewState()
	if _, err := engine.AddSubscriber(state, "dup", curveStart, 360); err != nil {
		t.Fatalf("first add: %v", err)
	}
	before := state.Totals()
	if _, err := engine.AddSubscriber(state, "dup", curveStart+SecondsPerPeriod, 720); !errors.Is(err, ErrDuplicateSubscriber) {
		t.Fatalf("expected ErrDuplicateSubscriber, got %v", err)
	}
	if state.Totals() != before {
		t.Fatalf("rejected admission mutated totals: %+v -> %+v", before, state.Totals())
	}
	if state.Len() != 1 {
		t.Fatalf("expected one subscriber, got %d", state.Len())
	}
	sub, _ := state.Subscriber("dup")
	if sub.SubscriptionStart != curveStart {
		t.Fatalf("original record overwritten")
	}
}

func TestAddSubscriberValidation(t *testing.T) {
	engine := workedExampleEngine(t)
	if _, err := engine.AddSubscriber(nil, "a", curveStart, 30); !errors.Is(err, ErrNilState) {
		t.Fatalf("expected ErrNilState, got %v", err)
	}
	state := NewState()
	if _, err := engine.AddSubscriber(state, "  ", curveStart, 30); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	for _, days := range []float64{0, -30, math.NaN(), math.Inf(1)} {
		if _, err := engine.AddSubscriber(state, "a", curveStart, days); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("days=%v: expected ErrInvalidDuration, got %v", days, err)
		}
	}
	if state.Len() != 0 {
		t.Fatalf("failed admissions must not mutate state")
	}
}

// Expired subscribers keep a live view of the growing pool. This documents
// the current behaviour; the window is exposed through Active only.
func TestRewardsContinueAfterExpiry(t *testing.T) {
	engine := workedExampleEngine(t)
	state := NewState()
	sub, err := engine.AddSubscriber(state, "short", curveStart, 30)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	after := sub.ExpiresAt + 5*SecondsPerPeriod
	if sub.Active(after) {
		t.Fatalf("subscriber should be inactive after expiry")
	}
	if !sub.Active(curveStart) {
		t.Fatalf("subscriber should be active at start")
	}
	before, err := engine.CalculateRewards(state, "short", after)
	if err != nil {
		t.Fatalf("rewards: %v", err)
	}
	if before <= 0 {
		t.Fatalf("expired subscriber should still see pool rewards, got %v", before)
	}
	if _, err := engine.AddSubscriber(state, "newcomer", after, 360); err != nil {
		t.Fatalf("add newcomer: %v", err)
	}
	later, err := engine.CalculateRewards(state, "short", after)
	if err != nil {
		t.Fatalf("rewards after newcomer: %v", err)
	}
	if later == before {
		t.Fatalf("expected rewards to move with the pool after a new admission")
	}
}

func TestAdmissionEventEmitted(t *testing.T) {
	engine := workedExampleEngine(t)
	rec := &events.Recorder{}
	engine.SetEmitter(rec)
	state := NewState()
	if _, err := engine.AddSubscriber(state, "alice", curveStart, 360); err != nil {
		t.Fatalf("add: %v", err)
	}
	got := rec.Events()
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	if got[0].EventType() != EventTypeSubscriberAdmitted {
		t.Fatalf("unexpected event type %q", got[0].EventType())
	}
	env, ok := got[0].(eventEnvelope)
	if !ok {
		t.Fatalf("unexpected event envelope %T", got[0])
	}
	if env.Event().Attribute("address") != "alice" || env.Event().Attribute("payment") != "60" {
		t.Fatalf("unexpected attributes: %v", env.Event().Attributes)
	}
	engine.SetEmitter(nil)
	if _, err := engine.AddSubscriber(state, "bob", curveStart, 360); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if len(rec.Events()) != 1 {
		t.Fatalf("detached recorder should not receive events")
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	validTier := TierConfig{RewardBasisPoints: 2000, PricePerPeriod: 5}
	validCurve := CurveConfig{NumPeriods: 60, FormulaBase: 1.2}
	validFees := FeeConfig{ProtocolBps: 100, ClientBps: 500}
	cases := map[string]struct {
		tier  TierConfig
		curve CurveConfig
		fees  FeeConfig
	}{
		"reward bps":      {TierConfig{RewardBasisPoints: 10_001}, validCurve, validFees},
		"negative price":  {TierConfig{PricePerPeriod: -1}, validCurve, validFees},
		"zero periods":    {validTier, CurveConfig{FormulaBase: 1.2}, validFees},
		"base of one":     {validTier, CurveConfig{NumPeriods: 1, FormulaBase: 1}, validFees},
		"negative floor":  {validTier, CurveConfig{NumPeriods: 1, FormulaBase: 2, MinMultiplier: -1}, validFees},
		"fee overflow":    {validTier, validCurve, FeeConfig{ProtocolBps: 6000, ClientBps: 5000}},
		"protocol bps":    {validTier, validCurve, FeeConfig{ProtocolBps: 10_001}},
		"nan mint price":  {TierConfig{InitialMintPrice: math.NaN()}, validCurve, validFees},
		"infinite base":   {validTier, CurveConfig{NumPeriods: 1, FormulaBase: math.Inf(1)}, validFees},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewEngine(tc.tier, tc.curve, tc.fees); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
