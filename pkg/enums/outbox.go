package enums

import "slices"

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateShiftExchange OutboxAggregateType = "shift_exchange"
	AggregateShift         OutboxAggregateType = "shift"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateShiftExchange || a == AggregateShift
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute of the published message.
type OutboxEventType string

const (
	EventShiftExchangeRequested OutboxEventType = "shift_exchange.requested"
	EventShiftExchangeResponded OutboxEventType = "shift_exchange.responded"
	EventShiftMonthPrefilled    OutboxEventType = "shift.month_prefilled"
)

var outboxEventTypes = []OutboxEventType{EventShiftExchangeRequested, EventShiftExchangeResponded, EventShiftMonthPrefilled}

func (e OutboxEventType) IsValid() bool { return slices.Contains(outboxEventTypes, e) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse("event type", raw, outboxEventTypes)
}
