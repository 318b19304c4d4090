package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medok/medok-backend/internal/app"
	"github.com/medok/medok-backend/internal/cron"
	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/internal/shifts"
	"github.com/medok/medok-backend/pkg/metrics"
	"github.com/medok/medok-backend/pkg/outbox"
)

func main() {
	os.Exit(app.Main("cron-worker", run))
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	dbClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	shiftService, err := shifts.NewService(shifts.ServiceParams{
		DB:     dbClient,
		Repo:   shifts.NewRepository(dbClient.DB()),
		Outbox: outbox.NewService(outboxRepo, logg),
	})
	if err != nil {
		return err
	}

	prefill, err := cron.NewShiftPrefillJob(cron.ShiftPrefillJobParams{
		Logger:   logg,
		Profiles: profiles.NewRepository(dbClient.DB()),
		Shifts:   shiftService,
	})
	if err != nil {
		return err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
	})
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(prefill, retention)
	if err != nil {
		return err
	}

	locker, err := cron.NewRedisLocker(redisClient, cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Locker:     locker,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedule:   cfg.Cron.Schedule,
		RunOnStart: cfg.App.IsDev(),
	})
	if err != nil {
		return err
	}
	return service.Run(ctx)
}
