package cron

import (
	"context"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/metrics"
)

const defaultSchedule = "@every 1h"

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.CronJobMetrics
	Schedule string
	// RunOnStart triggers every job once before the schedule takes over.
	RunOnStart bool
}

// Service runs registered jobs on robfig/cron schedules behind a distributed lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	locker     Locker
	metrics    *metrics.CronJobMetrics
	schedule   string
	runOnStart bool
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	registry := params.Registry
	if registry == nil {
		registry, _ = NewRegistry()
	}
	schedule := params.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		locker:     params.Locker,
		metrics:    params.Metrics,
		schedule:   schedule,
		runOnStart: params.RunOnStart,
	}, nil
}

// Run schedules every job and blocks until ctx is canceled, then waits for running jobs.
func (s *Service) Run(ctx context.Context) error {
	scheduler := robfig.New(
		robfig.WithLocation(time.UTC),
		robfig.WithChain(robfig.SkipIfStillRunning(cronLogger{ctx: ctx, logg: s.logg})),
	)
	for _, job := range s.registry.Jobs() {
		job := job
		spec := s.schedule
		if custom, ok := job.(Scheduled); ok && custom.Schedule() != "" {
			spec = custom.Schedule()
		}
		if _, err := scheduler.AddFunc(spec, func() { s.RunJob(ctx, job) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name(), spec, err)
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "schedule": spec}), "cron job scheduled")
	}

	if s.runOnStart {
		for _, job := range s.registry.Jobs() {
			s.RunJob(ctx, job)
		}
	}

	scheduler.Start()
	<-ctx.Done()
	s.logg.Info(ctx, "cron service stopping")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

// RunJob executes one job if this replica wins its lock.
func (s *Service) RunJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})

	release, ok, err := s.locker.TryLock(ctx, job.Name())
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.metrics.Failed(job.Name())
		return
	}
	if !ok {
		s.logg.Info(jobCtx, "job locked by another instance; skipping")
		s.metrics.Skipped(job.Name())
		return
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveRun(job.Name(), duration, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}

// cronLogger adapts the structured logger to robfig's Logger interface.
type cronLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logg.Info(l.logg.WithFields(l.ctx, fields(keysAndValues)), msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logg.Error(l.logg.WithFields(l.ctx, fields(keysAndValues)), msg, err)
}

func fields(keysAndValues []interface{}) map[string]any {
	out := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
