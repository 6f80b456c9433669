package prometheus

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logger = slog.New(slog.DiscardHandler)

type PrometheusBackend struct {
	Config

	reg    *prometheus.Registry
	server *http.Server
}

func (b *PrometheusBackend) String() string {
	return "Prometheus"
}

func NewPrometheusBackend(c *Config, sources ...Source) (*PrometheusBackend, error) {
	if c.Log {
		logger = slog.Default().With("t", "prometheus")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initialising the prometheus backend")

	b := PrometheusBackend{Config: *c}

	// Create a non-global registry.
	b.reg = prometheus.NewRegistry()

	if err := b.reg.Register(newCollector(sources...)); err != nil {
		return nil, fmt.Errorf("error registering the metrics: %w", err)
	}

	if b.RuntimeMetrics {
		if err := b.reg.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("error registering the go collector: %w", err)
		}
		if err := b.reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("error registering the process collector: %w", err)
		}
	}

	handler := http.NewServeMux()
	handler.Handle("/metrics", b.Handler())

	b.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", b.BindAddress, b.Port),
		Handler: handler,
	}

	return &b, nil
}

// Handler serves the registered metrics.
func (b *PrometheusBackend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// Run serves the metrics until done is closed.
func (b *PrometheusBackend) Run(done <-chan struct{}) {
	logger.Debug("running the prometheus backend", "addr", b.server.Addr)

	go func() {
		if err := b.server.ListenAndServe(); err != nil {
			logger.Info("stopped listening", "err", err)
		}
	}()

	<-done
	logger.Debug("cleanly exiting the prometheus backend")
}

func (b *PrometheusBackend) Cleanup() error {
	logger.Debug("cleaning up the prometheus backend")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down the metrics server: %w", err)
	}

	return nil
}
