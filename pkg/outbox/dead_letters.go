package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
)

// maxDeadLetterMessage bounds error_message; publish errors from the
// Pub/Sub client can embed whole gRPC status payloads.
const maxDeadLetterMessage = 1024

// DeadLetters stores outbox rows the relay will not retry.
type DeadLetters struct {
	db *gorm.DB
}

func NewDeadLetters(db *gorm.DB) *DeadLetters {
	return &DeadLetters{db: db}
}

// RecordTx copies event into outbox_dlq inside tx. Recording the same event
// twice keeps the first entry.
func (d *DeadLetters) RecordTx(tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !reason.IsValid() {
		return errors.New("unknown dead letter reason " + string(reason))
	}
	entry := models.DeadLetter{
		ID:            uuid.New(),
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		Reason:        reason,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if cause != nil {
		msg := clip(cause.Error(), maxDeadLetterMessage)
		entry.Message = &msg
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

// Lookup returns nil, nil when the event was never dead-lettered.
func (d *DeadLetters) Lookup(ctx context.Context, eventID uuid.UUID) (*models.DeadLetter, error) {
	var entry models.DeadLetter
	err := d.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &entry, nil
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
