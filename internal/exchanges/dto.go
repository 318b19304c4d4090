package exchanges

import (
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/internal/shifts"
	"github.com/medok/medok-backend/pkg/enums"
)

// ExchangeDTO is a request joined with its shift and both participants' names.
type ExchangeDTO struct {
	ID            uuid.UUID            `json:"id"`
	RequesterID   uuid.UUID            `json:"requester_id"`
	RequesterName string               `json:"requester_name"`
	RequestedID   uuid.UUID            `json:"requested_id"`
	RequestedName string               `json:"requested_name"`
	ShiftID       uuid.UUID            `json:"shift_id"`
	Shift         *shifts.ShiftDTO     `json:"shift,omitempty"`
	Status        enums.ExchangeStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// CreateExchangeRequest proposes handing the caller's shift to a colleague.
type CreateExchangeRequest struct {
	ShiftID         uuid.UUID `json:"shift_id" validate:"required"`
	RequestedUserID uuid.UUID `json:"requested_user_id" validate:"required"`
}

// RespondRequest is the in-app decision on a pending request.
type RespondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// RedeemLinkRequest carries the path and token of an emailed action link.
type RedeemLinkRequest struct {
	Action      string
	RequesterID string
	ShiftDate   string
	Token       string
}
