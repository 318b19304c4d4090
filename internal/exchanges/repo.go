package exchanges

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/repo"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/pagination"
)

// Repository persists shift exchange requests.
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

func (r *Repository) Create(ctx context.Context, req *models.ShiftExchangeRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	return r.DB(ctx).Create(req).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShiftExchangeRequest, error) {
	var row models.ShiftExchangeRequest
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// TransitionFromPending moves a pending request to next and reports whether a row changed.
// A request that already left pending is never touched again.
func (r *Repository) TransitionFromPending(ctx context.Context, id uuid.UUID, next enums.ExchangeStatus, at time.Time) (bool, error) {
	res := r.DB(ctx).
		Model(&models.ShiftExchangeRequest{}).
		Where("id = ? AND status = ?", id, enums.ExchangeStatusPending).
		Updates(map[string]any{"status": next, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListForUser returns requests where the user is requester or requested, newest first.
// limit should already include the look-ahead row.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.ShiftExchangeRequest, error) {
	query := r.DB(ctx).
		Where("(requester_id = ? OR requested_id = ?)", userID, userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.ShiftExchangeRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
