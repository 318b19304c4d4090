package shifts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medok/medok-backend/internal/repo"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
)

// UpsertBatchSize bounds how many rows go into a single INSERT.
const UpsertBatchSize = 10

// Repository persists shift rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository that runs inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// ListRange returns the user's shifts between from and to inclusive, oldest first.
func (r *Repository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Shift, error) {
	var rows []models.Shift
	if err := r.DB(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, NormalizeDate(from), NormalizeDate(to)).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountRange counts the user's shifts between from and to inclusive.
func (r *Repository) CountRange(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Shift{}).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, NormalizeDate(from), NormalizeDate(to)).
		Count(&count).Error
	return count, err
}

// Upsert writes rows keyed on (user_id, date); an existing day keeps its id and takes the new type.
func (r *Repository) Upsert(ctx context.Context, rows []models.Shift) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "updated_at"}),
		}).
		CreateInBatches(rows, UpsertBatchSize).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	var row models.Shift
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByUserDate loads the user's shift on one calendar day.
func (r *Repository) FindByUserDate(ctx context.Context, userID uuid.UUID, date time.Time) (*models.Shift, error) {
	var row models.Shift
	if err := r.DB(ctx).
		Where("user_id = ? AND date = ?", userID, NormalizeDate(date)).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateType changes only the type column.
func (r *Repository) UpdateType(ctx context.Context, id uuid.UUID, shiftType enums.ShiftType) error {
	res := r.DB(ctx).
		Model(&models.Shift{}).
		Where("id = ?", id).
		Updates(map[string]any{"type": shiftType, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByIDs loads the given shifts keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Shift, error) {
	out := make(map[uuid.UUID]models.Shift, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Shift
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
