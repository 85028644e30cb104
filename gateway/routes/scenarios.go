package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"subpool/config"
	"subpool/core/scenario"
	"subpool/gateway/middleware"
	"subpool/integrations/exports"
	"subpool/integrations/webhooks"
	"subpool/native/subscription"
	"subpool/observability/logging"
	"subpool/observability/metrics"
)

const maxBodyBytes = 1 << 20

var (
	errBadRequest       = errors.New("routes: bad request")
	errScenarioNotFound = errors.New("routes: scenario not found")
)

// RunRequest selects a configured scenario by name or supplies one inline,
// optionally overriding the economic sections of the base configuration.
type RunRequest struct {
	ScenarioName string                    `json:"scenarioName,omitempty"`
	Scenario     *scenario.Scenario        `json:"scenario,omitempty"`
	Tier         *subscription.TierConfig  `json:"tier,omitempty"`
	Curve        *subscription.CurveConfig `json:"curve,omitempty"`
	Fees         *subscription.FeeConfig   `json:"fees,omitempty"`
	Simulation   *scenario.Params          `json:"simulation,omitempty"`
}

// RunResponse carries the full monthly series of one run.
type RunResponse struct {
	RunID       string                   `json:"runId"`
	Scenario    scenario.Scenario        `json:"scenario"`
	Fingerprint string                   `json:"configFingerprint"`
	Checksum    string                   `json:"checksum"`
	Snapshots   []scenario.Snapshot      `json:"snapshots"`
	Audit       subscription.AuditReport `json:"audit"`
}

// QuoteRequest prices one admission against the base configuration.
type QuoteRequest struct {
	Timestamp        int64   `json:"timestamp"`
	SubscriptionDays float64 `json:"subscriptionDays"`
}

type scenarioAPI struct {
	base     *config.Config
	notifier Notifier
	metrics  *metrics.ScenarioMetrics
	logger   *slog.Logger
}

func (a *scenarioAPI) list(w http.ResponseWriter, r *http.Request) {
	scenarios := a.base.Scenarios
	if scenarios == nil {
		scenarios = []scenario.Scenario{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": scenarios})
}

func (a *scenarioAPI) run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	cfg, sc, err := a.resolve(req)
	if err != nil {
		a.fail(w, err)
		return
	}
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		a.fail(w, err)
		return
	}
	engine, err := cfg.NewEngine()
	if err != nil {
		a.fail(w, err)
		return
	}
	runID := uuid.NewString()
	opts := []scenario.Option{scenario.WithLogger(a.logger.With(logging.MaskField("run_id", runID)))}
	if a.metrics != nil {
		opts = append(opts, scenario.WithMetrics(a.metrics))
	}
	sim, err := scenario.New(engine, cfg.Simulation, opts...)
	if err != nil {
		a.fail(w, err)
		return
	}
	series, err := sim.Run(sc)
	if err != nil {
		a.fail(w, err)
		return
	}
	_, checksum, err := exports.SnapshotsJSONL(exports.Run{ID: runID, Scenario: sc.Label(), Fingerprint: fingerprint}, series)
	if err != nil {
		a.fail(w, err)
		return
	}

	resp := RunResponse{
		RunID:       runID,
		Scenario:    sc,
		Fingerprint: fingerprint,
		Checksum:    checksum,
		Snapshots:   series,
		Audit:       sim.State().Audit(),
	}
	a.notify(resp)
	writeJSON(w, http.StatusOK, resp)
}

// resolve layers the request overrides on a copy of the base configuration.
func (a *scenarioAPI) resolve(req RunRequest) (*config.Config, scenario.Scenario, error) {
	cfg := *a.base
	if req.Tier != nil {
		cfg.Tier = *req.Tier
	}
	if req.Curve != nil {
		cfg.Curve = *req.Curve
	}
	if req.Fees != nil {
		cfg.Fees = *req.Fees
	}
	if req.Simulation != nil {
		params := req.Simulation.WithFallback(a.base.Simulation)
		if params.MaxSubscribers > a.base.Simulation.MaxSubscribers {
			return nil, scenario.Scenario{}, fmt.Errorf("%w: max subscribers cannot exceed %d", errBadRequest, a.base.Simulation.MaxSubscribers)
		}
		cfg.Simulation = params
	}
	for _, validate := range []func() error{cfg.Tier.Validate, cfg.Curve.Validate, cfg.Fees.Validate, cfg.Simulation.Validate} {
		if err := validate(); err != nil {
			return nil, scenario.Scenario{}, err
		}
	}
	if cfg.Tier.InitialMintPrice == 0 && cfg.Tier.PricePerPeriod == 0 {
		return nil, scenario.Scenario{}, fmt.Errorf("%w: tier must charge a mint price or a period price", errBadRequest)
	}

	var sc scenario.Scenario
	switch {
	case req.Scenario != nil && strings.TrimSpace(req.ScenarioName) != "":
		return nil, sc, fmt.Errorf("%w: scenario and scenarioName are mutually exclusive", errBadRequest)
	case req.Scenario != nil:
		sc = *req.Scenario
		if sc.StartTimestamp == 0 {
			sc.StartTimestamp = cfg.Curve.StartTimestamp
		}
	default:
		found, ok := a.base.Scenario(req.ScenarioName)
		if !ok {
			return nil, sc, fmt.Errorf("%w: %q", errScenarioNotFound, req.ScenarioName)
		}
		sc = found
	}
	if err := a.base.CheckScenario(sc); err != nil {
		return nil, sc, err
	}
	return &cfg, sc, nil
}

func (a *scenarioAPI) notify(resp RunResponse) {
	if a.notifier == nil {
		return
	}
	final, _ := scenario.Final(resp.Snapshots)
	err := a.notifier.EnqueueCompleted(webhooks.ScenarioCompletedPayload{
		RunID:       resp.RunID,
		Scenario:    resp.Scenario.Label(),
		Fingerprint: resp.Fingerprint,
		Months:      len(resp.Snapshots),
		Final:       final,
		Checksum:    resp.Checksum,
	})
	if err != nil {
		a.logger.Warn("webhook enqueue failed", logging.MaskField("run_id", resp.RunID), slog.Any("error", err))
	}
}

func (a *scenarioAPI) quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	engine, err := a.base.NewEngine()
	if err != nil {
		a.fail(w, err)
		return
	}
	adm, err := engine.Quote(req.Timestamp, req.SubscriptionDays)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adm)
}

func (a *scenarioAPI) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, middleware.ErrorBody{Error: err.Error()})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
