// Package registry knows every outbox event type: which aggregate emits it,
// which topic carries it and how its payload decodes.
package registry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/outbox/payloads"
)

// NonRetryableError marks a row that will fail the same way every time.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable"
	}
	return "non-retryable: " + e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func rejectf(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	Decode        Decoder
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes all shift events to the exchange topic; the mailer
// filters by the event_type attribute.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.ExchangeTopic == "" {
		return nil, errors.New("exchange topic is required")
	}
	topic := cfg.ExchangeTopic
	descriptors := []EventDescriptor{
		{enums.EventShiftExchangeRequested, enums.AggregateShiftExchange, topic, DecodeInto[payloads.ShiftExchangeRequestedEvent]()},
		{enums.EventShiftExchangeResponded, enums.AggregateShiftExchange, topic, DecodeInto[payloads.ShiftExchangeRespondedEvent]()},
		{enums.EventShiftMonthPrefilled, enums.AggregateShift, topic, DecodeInto[payloads.ShiftMonthPrefilledEvent]()},
	}
	reg := &EventRegistry{byType: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.byType[d.EventType] = d
	}
	return reg, nil
}

func (r *EventRegistry) Descriptor(event enums.OutboxEventType) (EventDescriptor, bool) {
	d, ok := r.byType[event]
	return d, ok
}

// Resolve checks a row against its descriptor and decodes the payload.
// Every failure is a NonRetryableError: the row is already committed and
// will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.byType[event.EventType]
	switch {
	case !ok:
		return nil, rejectf("event type %q is not routed", event.EventType)
	case d.AggregateType != event.AggregateType:
		return nil, rejectf("%s belongs to %s, row says %s", event.EventType, d.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, rejectf("%s has no aggregate id", event.EventType)
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, rejectf("envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, rejectf("%s envelope has no data", event.EventType)
	}
	payload, err := d.Decode(envelope.Data)
	if err != nil {
		return nil, rejectf("%s data: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: d, Envelope: envelope, Payload: payload}, nil
}
