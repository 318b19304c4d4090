package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/types"
)

// ProfileDTO is the staff profile exposed to clients.
type ProfileDTO struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Email       *string           `json:"email,omitempty"`
	AvatarURL   *string           `json:"avatar_url,omitempty"`
	Role        enums.StaffRole   `json:"role"`
	Phone       *string           `json:"phone,omitempty"`
	Shift       enums.ShiftType   `json:"shift"`
	SocialLinks types.SocialLinks `json:"social_links"`
	HospitalID  *uuid.UUID        `json:"hospital_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// UpdateProfileRequest carries the self-service editable fields. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone       *string            `json:"phone,omitempty" validate:"omitempty,max=40"`
	AvatarURL   *string            `json:"avatar_url,omitempty" validate:"omitempty,url"`
	SocialLinks *types.SocialLinks `json:"social_links,omitempty"`
}

// CreateProfileDTO is used by registration to persist the profile next to its identity.
type CreateProfileDTO struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Role       enums.StaffRole
	Phone      *string
	HospitalID *uuid.UUID
}

func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	links := p.SocialLinks
	if links == nil {
		links = types.SocialLinks{}
	}
	return &ProfileDTO{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		AvatarURL:   p.AvatarURL,
		Role:        p.Role,
		Phone:       p.Phone,
		Shift:       p.Shift,
		SocialLinks: links,
		HospitalID:  p.HospitalID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (c CreateProfileDTO) ToModel() *models.Profile {
	email := c.Email
	return &models.Profile{
		ID:          c.ID,
		Name:        c.Name,
		Email:       &email,
		Role:        c.Role,
		Phone:       c.Phone,
		Shift:       enums.ShiftTypeDay,
		SocialLinks: types.SocialLinks{},
		HospitalID:  c.HospitalID,
	}
}
