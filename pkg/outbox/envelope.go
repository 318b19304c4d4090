package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the staff member whose action produced the event.
type ActorRef struct {
	UserID     uuid.UUID  `json:"userId"`
	HospitalID *uuid.UUID `json:"hospitalId,omitempty"`
	Role       string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a message body written by Service.Emit.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	err := json.Unmarshal(raw, &envelope)
	return envelope, err
}
