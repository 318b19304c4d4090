package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medok/medok-backend/internal/app"
	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/metrics"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/outbox/registry"
)

func main() {
	os.Exit(app.Main("outbox-publisher", run))
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	dbClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := rt.PubSub(ctx)
	if err != nil {
		return err
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	relay, err := NewRelay(RelayParams{
		Config:   cfg.Outbox,
		Logger:   logg,
		DB:       dbClient,
		PubSub:   pubsubClient,
		Events:   outbox.NewRepository(dbClient.DB()),
		Letters:  outbox.NewDeadLetters(dbClient.DB()),
		Registry: eventRegistry,
		Metrics:  metrics.NewOutboxMetrics(promRegistry),
	})
	if err != nil {
		return err
	}

	metricsServer := serveMetrics(ctx, cfg.App.Port, promRegistry, logg)
	rt.Defer("metrics server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return relay.Run(ctx)
}

// serveMetrics exposes the publisher counters for scraping.
func serveMetrics(ctx context.Context, port string, gatherer prometheus.Gatherer, logg *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return server
}
