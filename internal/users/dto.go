package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/db/models"
)

// IdentityDTO is the transport shape that omits credentials.
type IdentityDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateIdentityDTO holds the data required by the repo to persist a new identity.
type CreateIdentityDTO struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
}

func FromModel(i *models.Identity) *IdentityDTO {
	if i == nil {
		return nil
	}
	return &IdentityDTO{
		ID:          i.ID,
		Email:       i.Email,
		LastLoginAt: i.LastLoginAt,
		CreatedAt:   i.CreatedAt,
	}
}

func (c CreateIdentityDTO) ToModel() *models.Identity {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &models.Identity{
		ID:           id,
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
	}
}

// NormalizeEmail trims and lowercases an address so lookups match the unique index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
