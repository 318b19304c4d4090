package reference

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/repo"
	"github.com/medok/medok-backend/pkg/db/models"
)

// Repository reads static region and hospital data.
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

// ListRegions returns every region ordered by English name.
func (r *Repository) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	if err := r.DB(ctx).Order("name_en ASC").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

// FindRegion loads a single region.
func (r *Repository) FindRegion(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	var region models.Region
	if err := r.DB(ctx).First(&region, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

// ListHospitals returns the hospitals in a region ordered by name.
func (r *Repository) ListHospitals(ctx context.Context, regionID uuid.UUID) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	if err := r.DB(ctx).
		Where("region_id = ?", regionID).
		Order("name ASC").
		Find(&hospitals).Error; err != nil {
		return nil, err
	}
	return hospitals, nil
}

// FindHospital loads a single hospital.
func (r *Repository) FindHospital(ctx context.Context, id uuid.UUID) (*models.Hospital, error) {
	var hospital models.Hospital
	if err := r.DB(ctx).First(&hospital, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &hospital, nil
}
