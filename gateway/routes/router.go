package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subpool/config"
	"subpool/core/scenario"
	"subpool/gateway/middleware"
	"subpool/integrations/webhooks"
	"subpool/native/subscription"
	"subpool/observability/metrics"
)

// Rate limit keys, also used as route labels.
const (
	RouteHealth    = "health"
	RouteScenarios = "scenarios"
	RouteQuote     = "quote"
)

// Notifier receives completed-run notifications.
type Notifier interface {
	EnqueueCompleted(payload webhooks.ScenarioCompletedPayload) error
}

type Config struct {
	// Base supplies the economics and population model every request starts
	// from. Requests may override sections but never mutate it.
	Base          *config.Config
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Notifier      Notifier
	Metrics       *metrics.ScenarioMetrics
	Logger        *slog.Logger
}

var errBaseConfigRequired = errors.New("routes: base config required")

func New(cfg Config) (http.Handler, error) {
	if cfg.Base == nil {
		return nil, errBaseConfigRequired
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	api := &scenarioAPI{
		base:     cfg.Base,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	route := func(name string, sr chi.Router) {
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware(name))
		}
		if obs != nil {
			sr.Use(obs.Middleware(name))
		}
	}

	r.Group(func(sr chi.Router) {
		route(RouteHealth, sr)
		sr.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	})
	r.Group(func(sr chi.Router) {
		route(RouteScenarios, sr)
		sr.Post("/v1/scenarios/run", api.run)
		sr.Get("/v1/scenarios", api.list)
	})
	r.Group(func(sr chi.Router) {
		route(RouteQuote, sr)
		sr.Post("/v1/quote", api.quote)
	})

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}
	return r, nil
}

// Limits derives the per-route rate limits from the server section.
func Limits(server config.Server) map[string]middleware.RateLimit {
	limit := middleware.RateLimit{RequestsPerMinute: server.RequestsPerMinute, Burst: server.Burst}
	return map[string]middleware.RateLimit{
		RouteScenarios: limit,
		RouteQuote:     limit,
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, scenario.ErrInvalidParams),
		errors.Is(err, subscription.ErrInvalidConfig),
		errors.Is(err, subscription.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, scenario.ErrPopulationLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errScenarioNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
