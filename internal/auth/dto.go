package auth

import (
	"github.com/google/uuid"

	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/internal/users"
	"github.com/medok/medok-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates an identity and its staff profile in one step.
type RegisterRequest struct {
	Email      string          `json:"email" validate:"required,email"`
	Password   string          `json:"password" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Role       enums.StaffRole `json:"role" validate:"required"`
	Phone      *string         `json:"phone,omitempty"`
	RegionID   *uuid.UUID      `json:"region_id,omitempty"`
	HospitalID *uuid.UUID      `json:"hospital_id,omitempty"`
}

// RefreshRequest carries the refresh token paired with the expired access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest sets a new password for the signed-in identity.
type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	ExpiresIn    int                  `json:"expires_in"`
	User         *users.IdentityDTO   `json:"user"`
	Profile      *profiles.ProfileDTO `json:"profile"`
}

// SessionResponse is the restore payload: the identity plus its profile.
type SessionResponse struct {
	User    *users.IdentityDTO   `json:"user"`
	Profile *profiles.ProfileDTO `json:"profile"`
}
