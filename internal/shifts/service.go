package shifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/outbox/payloads"
)

// Service owns a user's monthly calendar.
type Service interface {
	LoadMonth(ctx context.Context, userID uuid.UUID, month string) ([]ShiftDTO, error)
	Create(ctx context.Context, userID uuid.UUID, req CreateShiftRequest) (*ShiftDTO, error)
	Update(ctx context.Context, userID, shiftID uuid.UUID, req UpdateShiftRequest) (*ShiftDTO, error)
	PrefillMonth(ctx context.Context, userID uuid.UUID, month time.Time) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Shift, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	UpdateType(ctx context.Context, id uuid.UUID, shiftType enums.ShiftType) error
}

// ServiceParams bundles the dependencies required to build the shift service.
type ServiceParams struct {
	DB     txRunner
	Repo   repository
	Outbox outbox.Emitter
}

type service struct {
	db     txRunner
	repo   repository
	outbox outbox.Emitter
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("shift repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{db: params.DB, repo: params.Repo, outbox: params.Outbox}, nil
}

// LoadMonth returns the month's shifts, seeding the default rotation when the month is empty.
func (s *service) LoadMonth(ctx context.Context, userID uuid.UUID, month string) ([]ShiftDTO, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	first, last := MonthBounds(start)

	rows, err := s.repo.ListRange(ctx, userID, first, last)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shifts")
	}
	if len(rows) > 0 {
		return FromModels(rows), nil
	}

	defaults, err := DefaultMonth(userID, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate default shifts")
	}
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return NewRepository(tx).Upsert(ctx, defaults)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save default shifts")
	}

	rows, err = s.repo.ListRange(ctx, userID, first, last)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload shifts")
	}
	return FromModels(rows), nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateShiftRequest) (*ShiftDTO, error) {
	date, err := time.ParseInLocation(time.DateOnly, req.Date, time.UTC)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	if !req.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shift type")
	}

	var saved *models.Shift
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if err := repo.Upsert(ctx, []models.Shift{{
			ID:     uuid.New(),
			UserID: userID,
			Date:   date,
			Type:   req.Type,
		}}); err != nil {
			return err
		}
		row, err := repo.FindByUserDate(ctx, userID, date)
		if err != nil {
			return err
		}
		saved = row
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shift")
	}
	dto := FromModel(*saved)
	return &dto, nil
}

// Update changes only the type; the caller must own the shift.
func (s *service) Update(ctx context.Context, userID, shiftID uuid.UUID, req UpdateShiftRequest) (*ShiftDTO, error) {
	if !req.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shift type")
	}
	row, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
	}
	if row.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shift belongs to another user")
	}
	if err := s.repo.UpdateType(ctx, shiftID, req.Type); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shift")
	}
	updated, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload shift")
	}
	dto := FromModel(*updated)
	return &dto, nil
}

// PrefillMonth seeds the default rotation for a month that has no rows yet and
// reports how many were created. Months that already hold any shift are left alone.
func (s *service) PrefillMonth(ctx context.Context, userID uuid.UUID, month time.Time) (int, error) {
	first, last := MonthBounds(month)
	created := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		count, err := repo.CountRange(ctx, userID, first, last)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		defaults, err := DefaultMonth(userID, first)
		if err != nil {
			return err
		}
		if err := repo.Upsert(ctx, defaults); err != nil {
			return err
		}
		created = len(defaults)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShiftMonthPrefilled,
			AggregateType: enums.AggregateShift,
			AggregateID:   userID,
			Data: payloads.ShiftMonthPrefilledEvent{
				UserID:  userID,
				Month:   first.Format(MonthLayout),
				Created: created,
			},
		})
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prefill month")
	}
	return created, nil
}
