package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lsm/cloudwatch-stdf/internal/app"
	"github.com/lsm/cloudwatch-stdf/internal/config"
	"github.com/lsm/cloudwatch-stdf/internal/observability"
	httpsource "github.com/lsm/cloudwatch-stdf/internal/source/http"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFlag    = flag.String("config", "", "Path to config file. Can also be set via STDF_CONFIG_FILE env var.")
		listenFlag    = flag.String("listen", "", "Override trigger listen address (e.g., :8080)")
		metricsFlag   = flag.String("metrics-addr", "", "Override metrics address (e.g., :9090)")
		transportFlag = flag.String("transport", "", "Override transport (sns, kafka, nats, pubsub, cloudevents, http, stdout)")
		logLevelFlag  = flag.String("log-level", "", "Log level (debug, info, warn, error). Can also be set via STDF_LOG_LEVEL env var.")
	)
	flag.Parse()

	if *configFlag != "" {
		if err := os.Setenv(config.EnvConfigFile, *configFlag); err != nil {
			return fmt.Errorf("set config path: %w", err)
		}
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *listenFlag != "" {
		cfg.ListenAddr = *listenFlag
	}
	if *metricsFlag != "" {
		cfg.MetricsAddr = *metricsFlag
	}
	if *transportFlag != "" {
		cfg.Transport = *transportFlag
	}

	levelSource := *logLevelFlag
	if levelSource == "" {
		levelSource = cfg.LogLevel
	}
	logger := observability.NewLogger(os.Stdout, "cloudwatch-stdf", observability.ParseLevel(levelSource))
	slog.SetDefault(logger)

	tp, err := tracing.New(context.Background(), cfg.Tracing, tracing.Options{ServiceName: "cloudwatch-stdf"}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := app.Build(ctx, cfg, app.Options{
		Logger:     logger,
		Tracer:     tp.Tracer(),
		Registerer: reg,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("failed to close transport", "error", err)
		}
	}()

	health := observability.NewHealthServer(map[string]string{"transport": cfg.Transport})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsMux.Handle("GET /healthz", health.Handler())
	metricsMux.Handle("GET /readyz", health.Handler())

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	trigger, err := httpsource.NewSource(httpsource.Config{ListenAddr: cfg.ListenAddr}, logger)
	if err != nil {
		return fmt.Errorf("create trigger: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("metrics server starting", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	go func() {
		if err := trigger.Start(ctx, rt.Dispatcher.HandleRaw); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("trigger: %w", err)
		}
	}()

	select {
	case <-trigger.Ready():
		health.SetReady(true)
		logger.Info("cloudwatch-stdf started", "transport", cfg.Transport, "topic", cfg.Settings.Topic())
	case err := <-errCh:
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
