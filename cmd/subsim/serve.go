package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"subpool/config"
	"subpool/gateway/middleware"
	"subpool/gateway/routes"
	"subpool/integrations/webhooks"
	"subpool/observability/metrics"
	telemetry "subpool/observability/otel"
)

const serviceName = "subsim"

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath string
		listen  string
	)
	fs.StringVar(&cfgPath, "config", "", "path to configuration (defaults to the built-in economics)")
	fs.StringVar(&listen, "listen", "", "override server.listen")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if listen != "" {
		cfg.Server.ListenAddress = listen
	}
	logger, closer, err := setupLogging(cfg, serviceName, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error configuring logging: %v\n", err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Logging.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", slog.Any("error", err))
		return 1
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	handler, cleanup, err := buildHandler(cfg, logger)
	if err != nil {
		logger.Error("configure routes", slog.Any("error", err))
		return 1
	}
	defer cleanup()

	listener, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		logger.Error("listen", slog.Any("error", err))
		return 1
	}
	if err := serve(ctx, listener, handler, logger); err != nil {
		logger.Error("serve", slog.Any("error", err))
		return 1
	}
	return 0
}

// buildHandler assembles the API handler and its webhook dispatcher. The
// returned cleanup stops the dispatcher.
func buildHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, func(), error) {
	cleanup := func() {}
	var notifier routes.Notifier
	if cfg.Webhook.Enabled() {
		secret := os.Getenv(cfg.Webhook.SecretEnv)
		if strings.TrimSpace(secret) == "" {
			return nil, cleanup, fmt.Errorf("webhook secret env %s is empty", cfg.Webhook.SecretEnv)
		}
		opts := []webhooks.Option{webhooks.WithLogger(logger)}
		if cfg.Webhook.MaxAttempts > 0 {
			opts = append(opts, webhooks.WithRetryPolicy(cfg.Webhook.MaxAttempts, 0, 0))
		}
		dispatcher, err := webhooks.NewDispatcher(cfg.Webhook.URL, []byte(secret), opts...)
		if err != nil {
			return nil, cleanup, err
		}
		notifier = dispatcher
		cleanup = dispatcher.Close
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: serviceName,
		LogRequests: cfg.Server.LogRequests,
	}, logger)
	limiter := middleware.NewRateLimiter(routes.Limits(cfg.Server), logger)
	limiter.OnThrottle(obs.RecordThrottle)

	router, err := routes.New(routes.Config{
		Base:          cfg,
		RateLimiter:   limiter,
		Observability: obs,
		CORS:          middleware.CORSConfig{AllowedOrigins: cfg.Server.AllowedOrigins},
		Notifier:      notifier,
		Metrics:       metrics.Scenario(),
		Logger:        logger,
	})
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	handler := http.Handler(router)
	if cfg.Telemetry.Traces {
		handler = otelhttp.NewHandler(router, serviceName)
	}
	return handler, cleanup, nil
}

// serve runs the HTTP server on listener until ctx is cancelled, then shuts
// it down gracefully.
func serve(ctx context.Context, listener net.Listener, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", listener.Addr().String()))
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
