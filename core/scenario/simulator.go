package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"subpool/native/subscription"
	"subpool/observability/logging"
	"subpool/observability/metrics"
)

// Option customises a Simulator.
type Option func(*Simulator)

// WithLogger overrides the logger used for run progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics overrides the telemetry sink. A nil sink disables metrics.
func WithMetrics(m *metrics.ScenarioMetrics) Option {
	return func(s *Simulator) { s.telemetry = m }
}

// Simulator drives the economics engine month by month. It is not safe for
// concurrent use; each run replaces the previous run's state wholesale.
type Simulator struct {
	engine    *subscription.Engine
	params    Params
	logger    *slog.Logger
	telemetry *metrics.ScenarioMetrics

	state   *subscription.State
	regular []string
	nextID  int
}

// New constructs a simulator for engine using params. Zero-valued params
// fields fall back to DefaultParams.
func New(engine *subscription.Engine, params Params, opts ...Option) (*Simulator, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	sim := &Simulator{
		engine:    engine,
		params:    params,
		logger:    slog.Default(),
		telemetry: metrics.Scenario(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sim)
		}
	}
	return sim, nil
}

// Params returns the population model in use.
func (s *Simulator) Params() Params { return s.params }

// State returns the state of the most recent run, or nil before the first run.
func (s *Simulator) State() *subscription.State { return s.state }

// Run simulates the named scenario.
func (s *Simulator) Run(sc Scenario) ([]Snapshot, error) {
	snapshots, err := s.simulate(sc.Label(), sc.StartTimestamp, sc.Months, sc.MonthlyGrowthRate, sc.TestSubscriptionDays)
	if err != nil {
		s.telemetry.ObserveRun("error")
		return nil, err
	}
	s.telemetry.ObserveRun("ok")
	s.telemetry.ObservePoolDrift(sc.Label(), s.state.Audit().PoolDrift)
	return snapshots, nil
}

// Simulate resets the state, seeds the initial cohort and the test
// subscriber at startTimestamp, then grows the regular population by
// monthlyGrowthRate for months periods. It returns one snapshot per month.
func (s *Simulator) Simulate(startTimestamp int64, months int, monthlyGrowthRate float64, testSubscriptionDays float64) ([]Snapshot, error) {
	return s.Run(Scenario{
		StartTimestamp:       startTimestamp,
		Months:               months,
		MonthlyGrowthRate:    monthlyGrowthRate,
		TestSubscriptionDays: testSubscriptionDays,
	})
}

func (s *Simulator) simulate(label string, start int64, months int, growth, testDays float64) ([]Snapshot, error) {
	if err := validateRun(months, growth, testDays); err != nil {
		return nil, err
	}
	s.reset()
	logger := s.logger.With(logging.MaskField("scenario", label))
	logger.Info("scenario: run started",
		slog.Int64("start", start),
		slog.Int("months", months),
		slog.Float64("growth", growth),
		slog.Float64("testDays", testDays),
	)

	if err := s.admitRegular(s.params.InitialSubscribers, start); err != nil {
		return nil, err
	}
	if _, err := s.engine.AddSubscriber(s.state, TestSubscriberAddress, start, testDays); err != nil {
		return nil, fmt.Errorf("scenario: admit test subscriber: %w", err)
	}
	s.telemetry.ObserveAdmissions(1)

	snapshots := make([]Snapshot, 0, months)
	for month := 1; month <= months; month++ {
		ts := start + int64(month)*subscription.SecondsPerPeriod
		joined, err := s.grow(growth, ts)
		if err != nil {
			return nil, err
		}
		snap, err := s.aggregate(month, ts)
		if err != nil {
			return nil, err
		}
		snap.NewSubscribers = joined
		snapshots = append(snapshots, snap)
		s.telemetry.ObserveMonth(label, metrics.MonthSample{
			RewardPool:         snap.RewardPool,
			TotalShares:        snap.TotalShares,
			RegularSubscribers: snap.RegularSubscribers,
			AverageROI:         snap.AverageROI,
			TestROI:            snap.TestSubscriberROI,
		})
		logger.Debug("scenario: month simulated",
			slog.Int("month", month),
			slog.Int("regular", snap.RegularSubscribers),
			slog.Int("joined", joined),
			slog.Float64("avgRoi", snap.AverageROI),
			slog.Float64("testRoi", snap.TestSubscriberROI),
		)
	}
	final := snapshots[len(snapshots)-1]
	logger.Info("scenario: run finished",
		slog.Int("regular", final.RegularSubscribers),
		slog.Float64("rewardPool", final.RewardPool),
		slog.Float64("avgRoi", final.AverageROI),
		slog.Float64("testRoi", final.TestSubscriberROI),
	)
	return snapshots, nil
}

func (s *Simulator) reset() {
	s.state = subscription.NewState()
	s.regular = s.regular[:0]
	s.nextID = 0
}

// grow admits floor(regular * rate) subscribers at ts. The test subscriber
// is not part of the growth base.
func (s *Simulator) grow(rate float64, ts int64) (int, error) {
	want := math.Floor(float64(len(s.regular)) * rate)
	if want <= 0 {
		return 0, nil
	}
	if want > float64(s.params.MaxSubscribers) {
		return 0, s.populationError(want)
	}
	count := int(want)
	if err := s.admitRegular(count, ts); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Simulator) admitRegular(count int, ts int64) error {
	if s.state.Len()+count > s.params.MaxSubscribers {
		return s.populationError(float64(count))
	}
	for i := 0; i < count; i++ {
		addr := "sub-" + strconv.Itoa(s.nextID)
		s.nextID++
		if _, err := s.engine.AddSubscriber(s.state, addr, ts, s.params.AverageSubscriptionDays); err != nil {
			return fmt.Errorf("scenario: admit %s: %w", addr, err)
		}
		s.regular = append(s.regular, addr)
	}
	s.telemetry.ObserveAdmissions(count)
	return nil
}

func (s *Simulator) populationError(requested float64) error {
	return fmt.Errorf("%w: %d admitted, %.0f requested, limit %d", ErrPopulationLimit, s.state.Len(), requested, s.params.MaxSubscribers)
}

func (s *Simulator) aggregate(month int, ts int64) (Snapshot, error) {
	var totalROI, totalRewards float64
	for _, addr := range s.regular {
		roi, err := s.roi(addr, ts)
		if err != nil {
			return Snapshot{}, err
		}
		totalROI += roi.Percent
		totalRewards += roi.Rewards
	}
	test, err := s.roi(TestSubscriberAddress, ts)
	if err != nil {
		return Snapshot{}, err
	}
	totals := s.state.Totals()
	return Snapshot{
		Month:                 month,
		Timestamp:             ts,
		RegularSubscribers:    len(s.regular),
		AverageROI:            totalROI / float64(len(s.regular)),
		CreatorEarnings:       totals.CreatorBalance,
		ProtocolEarnings:      totals.ProtocolEarnings,
		ClientEarnings:        totals.ClientEarnings,
		TotalRewards:          totalRewards + test.Rewards,
		TestSubscriberROI:     test.Percent,
		TestSubscriberRewards: test.Rewards,
		RewardPool:            totals.RewardPool,
		TotalShares:           totals.TotalShares,
	}, nil
}

// roi treats an empty share pool as zero rewards: nobody holds a claim, so
// every subscriber has lost their whole spend.
func (s *Simulator) roi(addr string, ts int64) (subscription.ROI, error) {
	roi, err := s.engine.CalculateROI(s.state, addr, ts)
	switch {
	case err == nil:
		return roi, nil
	case errors.Is(err, subscription.ErrNoShares):
		return subscription.ROI{Percent: -100, Spent: roi.Spent}, nil
	default:
		return subscription.ROI{}, fmt.Errorf("scenario: roi for %s: %w", addr, err)
	}
}
