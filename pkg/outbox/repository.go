package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medok/medok-backend/pkg/db/models"
)

var errNoTx = errors.New("transaction required")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// ClaimBatch returns the oldest undelivered rows that still have attempts
// left. On Postgres the rows stay locked until tx ends and rows held by
// another relay are skipped.
func (r *Repository) ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := tx.Model(&models.OutboxEvent{}).Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var batch []models.OutboxEvent
	err := q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "created_at"}},
		{Column: clause.Column{Name: "id"}},
	}}).Limit(limit).Find(&batch).Error
	return batch, err
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{"published_at": time.Now().UTC(), "last_error": nil})
}

// RecordFailure counts one more failed attempt.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.update(tx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    cause.Error(),
	})
}

// Exhaust pins attempt_count at the relay limit so ClaimBatch never
// returns the row again.
func (r *Repository) Exhaust(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error {
	set := map[string]any{"attempt_count": attempts}
	if cause != nil {
		set["last_error"] = cause.Error()
	}
	return r.update(tx, id, set)
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, set map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(set).Error
}

// DeletePublishedBefore purges delivered rows older than cutoff.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL").
		Where("published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}
