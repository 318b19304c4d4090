package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/repo"
	"github.com/medok/medok-backend/pkg/db/models"
)

// Repository persists staff profiles.
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

func (r *Repository) Create(ctx context.Context, dto CreateProfileDTO) (*models.Profile, error) {
	profile := dto.ToModel()
	if err := r.DB(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.DB(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByIDs loads the given profiles keyed by id; missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := make(map[uuid.UUID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Profile
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ListByHospital returns every profile in the hospital ordered by role then name.
func (r *Repository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]models.Profile, error) {
	var rows []models.Profile
	if err := r.DB(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("role ASC").
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAssignedIDs pages through ids of hospital-assigned profiles in id order.
func (r *Repository) ListAssignedIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := r.DB(ctx).
		Model(&models.Profile{}).
		Where("hospital_id IS NOT NULL").
		Order("id ASC").
		Limit(limit)
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Update writes the given columns and returns the reloaded profile.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Profile, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		res := r.DB(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.FindByID(ctx, id)
}
