// Package outbox queues domain events in the writer's transaction so the
// outbox publisher can forward them to Pub/Sub after commit.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/logger"
)

// EnvelopeVersion is stamped on events that do not set one.
const EnvelopeVersion = 1

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Emitter writes domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errNoTx
	}
	if !event.EventType.IsValid() {
		return fmt.Errorf("emit: unknown event type %q", event.EventType)
	}
	envelope, err := seal(event)
	if err != nil {
		return fmt.Errorf("emit %s: %w", event.EventType, err)
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("emit %s: %w", event.EventType, err)
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       raw,
	}); err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// seal wraps the event data in the versioned envelope consumers decode.
func seal(event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, err
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = EnvelopeVersion
	}
	if event.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	return env, nil
}
