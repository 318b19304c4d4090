package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/repo"
	"github.com/medok/medok-backend/pkg/db/models"
)

// Repository exposes identity persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs an identities repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository that runs inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// Create inserts a new identity and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateIdentityDTO) (*models.Identity, error) {
	identity := dto.ToModel()
	if err := r.DB(ctx).Create(identity).Error; err != nil {
		return nil, err
	}
	return identity, nil
}

// FindByEmail retrieves the identity matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.DB(ctx).Where("email = ?", NormalizeEmail(email)).First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

// FindByID loads an identity by UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var identity models.Identity
	if err := r.DB(ctx).First(&identity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

// UpdateLastLogin refreshes the identity's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash replaces the stored argon2id hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.DB(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
