// Package idempotency deduplicates Pub/Sub deliveries per consumer.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoConsumer = errors.New("consumer name is required")
	ErrNoEventID  = errors.New("event id is required")
)

// Store is the subset of the Redis client used for claims.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager claims an event for a consumer exactly once within ttl.
// Keys look like mk:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, fmt.Errorf("idempotency ttl must not be negative, got %s", ttl)
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim reports true when this call is the first to see the event. A false
// result means another delivery already handled (or is handling) it.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release drops a claim so Pub/Sub redelivery can retry a failed handler.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// ParseEventID reads the event_id carried in an outbox envelope.
func ParseEventID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("event id %q: %w", raw, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, ErrNoEventID
	}
	return id, nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", ErrNoConsumer
	}
	if eventID == uuid.Nil {
		return "", ErrNoEventID
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
