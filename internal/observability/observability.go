// Package observability wires logging, metrics, and tracing for the service.
package observability

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config holds observability settings.
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	MetricsAddress string
}

// Observability bundles the logger, prometheus registry, and tracer handed to
// every module.
type Observability struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  OperationMetrics
	Tracer   trace.Tracer

	metricsServer *http.Server
}

// Init builds the shared logger, metrics registry, and tracer. When
// MetricsAddress is set, a promhttp listener is started on it.
func Init(ctx context.Context, cfg Config) (*Observability, error) {
	logger := NewLogger(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obs := &Observability{
		Logger:   logger,
		Registry: registry,
		Metrics:  NewOperationMetrics(registry),
		Tracer:   otel.Tracer(cfg.ServiceName),
	}

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		obs.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := obs.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		logger.InfoContext(ctx, "Metrics server listening", slog.String("address", cfg.MetricsAddress))
	}

	return obs, nil
}

// NewLogger builds the service-wide JSON slog logger.
func NewLogger(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)
	slog.SetDefault(logger)
	return logger
}

// Shutdown stops the metrics listener.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o.metricsServer != nil {
		return o.metricsServer.Shutdown(ctx)
	}
	return nil
}
