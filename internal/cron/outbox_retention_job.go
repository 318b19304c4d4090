package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medok/medok-backend/pkg/logger"
)

// DefaultOutboxRetention is how long published outbox rows are kept for
// inspection before the daily sweep removes them.
const DefaultOutboxRetention = 30 * 24 * time.Hour

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository publishedPruner
	Retention  time.Duration
	Now        func() time.Time
}

type outboxRetentionJob struct {
	logg   *logger.Logger
	pruner publishedPruner
	keep   time.Duration
	now    func() time.Time
}

func NewOutboxRetentionJob(p OutboxRetentionJobParams) (Job, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.Repository == nil:
		return nil, errors.New("outbox repository required")
	case p.Retention < 0:
		return nil, fmt.Errorf("negative outbox retention %s", p.Retention)
	}
	job := &outboxRetentionJob{logg: p.Logger, pruner: p.Repository, keep: p.Retention, now: p.Now}
	if job.keep == 0 {
		job.keep = DefaultOutboxRetention
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

func (*outboxRetentionJob) Name() string { return "outbox_retention" }

func (*outboxRetentionJob) Schedule() string { return "@daily" }

// Run deletes rows published before the cutoff. Unpublished rows and dead
// letters are never touched.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	n, err := j.pruner.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "rows_deleted": n}), "outbox pruned")
	return nil
}
