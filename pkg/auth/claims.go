package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/medok/medok-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	HospitalID *uuid.UUID
	Role       enums.StaffRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID       `json:"user_id"`
	HospitalID *uuid.UUID      `json:"hospital_id,omitempty"`
	Role       enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

// ExchangeLinkPayload binds an emailed accept/reject link to one pending request.
type ExchangeLinkPayload struct {
	RequestID   uuid.UUID
	RequesterID uuid.UUID
	RequestedID uuid.UUID
	ShiftDate   string
	Action      enums.ExchangeAction
}

// ExchangeLinkClaims is the signed capability carried in an exchange link's token query param.
type ExchangeLinkClaims struct {
	RequestID   uuid.UUID            `json:"request_id"`
	RequesterID uuid.UUID            `json:"requester_id"`
	ShiftDate   string               `json:"shift_date"`
	Action      enums.ExchangeAction `json:"action"`
	jwt.RegisteredClaims
}
