package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/medok/medok-backend/pkg/logger"
)

const defaultPrefillBatch = 200

type assignedProfiles interface {
	ListAssignedIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type monthPrefiller interface {
	PrefillMonth(ctx context.Context, userID uuid.UUID, month time.Time) (int, error)
}

type ShiftPrefillJobParams struct {
	Logger    *logger.Logger
	Profiles  assignedProfiles
	Shifts    monthPrefiller
	BatchSize int
	Now       func() time.Time
}

// NewShiftPrefillJob seeds next month's default rotation for every hospital-assigned profile.
func NewShiftPrefillJob(params ShiftPrefillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Shifts == nil {
		return nil, fmt.Errorf("shift service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPrefillBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &shiftPrefillJob{
		logg:     params.Logger,
		profiles: params.Profiles,
		shifts:   params.Shifts,
		batch:    batch,
		now:      now,
	}, nil
}

type shiftPrefillJob struct {
	logg     *logger.Logger
	profiles assignedProfiles
	shifts   monthPrefiller
	batch    int
	now      func() time.Time
}

func (j *shiftPrefillJob) Name() string { return "shift_prefill" }

func (j *shiftPrefillJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	var (
		errs     error
		users    int
		prefills int
		rows     int
		after    uuid.UUID
	)
	for {
		ids, err := j.profiles.ListAssignedIDs(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list assigned profiles: %w", err))
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return multierr.Append(errs, err)
			}
			users++
			created, err := j.shifts.PrefillMonth(ctx, id, month)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("prefill %s: %w", id, err))
				continue
			}
			if created > 0 {
				prefills++
				rows += created
			}
		}
		if len(ids) < j.batch {
			break
		}
		after = ids[len(ids)-1]
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"month":         month.Format("2006-01"),
		"users_scanned": users,
		"users_filled":  prefills,
		"rows_created":  rows,
		"failures":      len(multierr.Errors(errs)),
	}), "shift prefill complete")
	return errs
}
