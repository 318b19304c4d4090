package payloads

import (
	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/enums"
)

// ShiftExchangeRequestedEvent asks the mailer to notify the requested colleague.
// Action links are minted by the mailer, never stored in the outbox.
type ShiftExchangeRequestedEvent struct {
	RequestID      uuid.UUID       `json:"request_id"`
	RequesterID    uuid.UUID       `json:"requester_id"`
	RequesterName  string          `json:"requester_name"`
	RequestedID    uuid.UUID       `json:"requested_id"`
	RequestedName  string          `json:"requested_name"`
	RequestedEmail string          `json:"requested_email"`
	ShiftID        uuid.UUID       `json:"shift_id"`
	ShiftDate      string          `json:"shift_date"`
	ShiftType      enums.ShiftType `json:"shift_type"`
}

// ShiftExchangeRespondedEvent tells the requester what their colleague decided.
type ShiftExchangeRespondedEvent struct {
	RequestID      uuid.UUID            `json:"request_id"`
	RequesterID    uuid.UUID            `json:"requester_id"`
	RequesterName  string               `json:"requester_name"`
	RequesterEmail string               `json:"requester_email"`
	ResponderID    uuid.UUID            `json:"responder_id"`
	ResponderName  string               `json:"responder_name"`
	ShiftDate      string               `json:"shift_date"`
	Status         enums.ExchangeStatus `json:"status"`
}

// ShiftMonthPrefilledEvent records that default shifts were generated for a month.
type ShiftMonthPrefilledEvent struct {
	UserID  uuid.UUID `json:"user_id"`
	Month   string    `json:"month"`
	Created int       `json:"created"`
}
