package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/enums"
)

// OutboxEvent is a domain event written in the same transaction as the change
// that caused it. The relay sets PublishedAt once Pub/Sub acknowledges it.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
}

// DeadLetter is a copy of an outbox row the relay gave up on.
type DeadLetter struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload_json;type:jsonb;not null"`
	Reason        enums.DeadLetterReason    `gorm:"column:error_reason;type:text;not null"`
	Message       *string                   `gorm:"column:error_message"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	FailedAt      time.Time                 `gorm:"column:failed_at"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (DeadLetter) TableName() string { return "outbox_dlq" }
