package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ScenarioMetrics exposes the reward pool economics of simulation runs.
type ScenarioMetrics struct {
	admissions         prometheus.Counter
	runs               *prometheus.CounterVec
	rewardPool         *prometheus.GaugeVec
	totalShares        *prometheus.GaugeVec
	regularSubscribers *prometheus.GaugeVec
	averageROI         *prometheus.GaugeVec
	testROI            *prometheus.GaugeVec
	poolDrift          *prometheus.GaugeVec
}

var (
	scenarioOnce     sync.Once
	scenarioRegistry *ScenarioMetrics
)

// Scenario returns the lazily-initialised simulation metrics registered with
// the default Prometheus registry.
func Scenario() *ScenarioMetrics {
	scenarioOnce.Do(func() {
		scenarioRegistry = &ScenarioMetrics{
			admissions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "subpool_admissions_total",
				Help: "Count of subscribers admitted across all simulation runs.",
			}),
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "subpool_scenario_runs_total",
				Help: "Count of scenario runs by outcome.",
			}, []string{"outcome"}),
			rewardPool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "subpool_reward_pool",
				Help: "Cumulative reward pool at the latest simulated month.",
			}, []string{"scenario"}),
			totalShares: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "subpool_total_shares",
				Help: "Total accrued reward shares at the latest simulated month.",
			}, []string{"scenario"}),
			regularSubscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "subpool_regular_subscribers",
				Help: "Regular subscriber population at the latest simulated month.",
			}, []string{"scenario"}),
			averageROI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "subpool_average_roi_percent",
				Help: "Average regular subscriber ROI at the latest simulated month.",
			}, []string{"scenario"}),
			testROI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "subpool_test_subscriber_roi_percent",
				Help: "Test subscriber ROI at the latest simulated month.",
			}, []string{"scenario"}),
			poolDrift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "subpool_pool_rounding_drift",
				Help: "Absolute drift between the running reward pool and an exact recomputation.",
			}, []string{"scenario"}),
		}
		prometheus.MustRegister(
			scenarioRegistry.admissions,
			scenarioRegistry.runs,
			scenarioRegistry.rewardPool,
			scenarioRegistry.totalShares,
			scenarioRegistry.regularSubscribers,
			scenarioRegistry.averageROI,
			scenarioRegistry.testROI,
			scenarioRegistry.poolDrift,
		)
	})
	return scenarioRegistry
}

// ObserveAdmissions records newly admitted subscribers.
func (m *ScenarioMetrics) ObserveAdmissions(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.admissions.Add(float64(count))
}

// ObserveRun records the outcome of a scenario run.
func (m *ScenarioMetrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// MonthSample carries the per-month values published as gauges.
type MonthSample struct {
	RewardPool         float64
	TotalShares        float64
	RegularSubscribers int
	AverageROI         float64
	TestROI            float64
}

// ObserveMonth publishes the latest month of a scenario.
func (m *ScenarioMetrics) ObserveMonth(scenario string, sample MonthSample) {
	if m == nil {
		return
	}
	scenario = scenarioLabel(scenario)
	m.rewardPool.WithLabelValues(scenario).Set(sample.RewardPool)
	m.totalShares.WithLabelValues(scenario).Set(sample.TotalShares)
	m.regularSubscribers.WithLabelValues(scenario).Set(float64(sample.RegularSubscribers))
	m.averageROI.WithLabelValues(scenario).Set(sample.AverageROI)
	m.testROI.WithLabelValues(scenario).Set(sample.TestROI)
}

// ObservePoolDrift records the rounding drift measured after a run.
func (m *ScenarioMetrics) ObservePoolDrift(scenario string, drift float64) {
	if m == nil {
		return
	}
	m.poolDrift.WithLabelValues(scenarioLabel(scenario)).Set(drift)
}

// AdmissionsCounter exposes the admissions counter for assertions.
func (m *ScenarioMetrics) AdmissionsCounter() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.admissions
}

// RunsCounterVec exposes the runs counter for assertions.
func (m *ScenarioMetrics) RunsCounterVec() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.runs
}

// AverageROIGaugeVec exposes the average ROI gauge for assertions.
func (m *ScenarioMetrics) AverageROIGaugeVec() *prometheus.GaugeVec {
	if m == nil {
		return nil
	}
	return m.averageROI
}

// RegularSubscribersGaugeVec exposes the population gauge for assertions.
func (m *ScenarioMetrics) RegularSubscribersGaugeVec() *prometheus.GaugeVec {
	if m == nil {
		return nil
	}
	return m.regularSubscribers
}

func scenarioLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
