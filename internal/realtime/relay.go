// Package realtime relays chat room events from Redis pub/sub to Server-Sent Event streams.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/medok/medok-backend/pkg/logger"
	redisclient "github.com/medok/medok-backend/pkg/redis"
)

const (
	// EventMessage is the SSE event name carrying a chat message.
	EventMessage = "message"
	// EventReady is sent once the subscription is live.
	EventReady = "ready"

	defaultHeartbeat = 25 * time.Second
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Subscription delivers raw payloads published to a room until closed.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Source opens room subscriptions.
type Source interface {
	Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error)
}

type redisSource struct {
	client *redisclient.Client
}

// NewRedisSource subscribes to the room channels written by the chat service.
func NewRedisSource(client *redisclient.Client) Source {
	return &redisSource{client: client}
}

func (s *redisSource) Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error) {
	ps, err := s.client.Subscribe(ctx, s.client.RoomChannel(roomID.String()))
	if err != nil {
		return nil, err
	}
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return &redisSubscription{ps: ps, out: out}, nil
}

type redisSubscription struct {
	ps  *goredis.PubSub
	out chan []byte
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error { return s.ps.Close() }

// Relay streams a room subscription to one HTTP client.
type Relay struct {
	source    Source
	heartbeat time.Duration
	logg      *logger.Logger
}

func NewRelay(source Source, heartbeat time.Duration, logg *logger.Logger) *Relay {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Relay{source: source, heartbeat: heartbeat, logg: logg}
}

// Stream writes SSE frames until ctx ends or the subscription closes.
func (r *Relay) Stream(ctx context.Context, w http.ResponseWriter, roomID uuid.UUID) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}
	sub, err := r.source.Subscribe(ctx, roomID)
	if err != nil {
		return fmt.Errorf("subscribe room %s: %w", roomID, err)
	}
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, EventReady, []byte(`{"room_id":"`+roomID.String()+`"}`)); err != nil {
		return err
	}
	flusher.Flush()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		case payload, ok := <-sub.Messages():
			if !ok {
				if r.logg != nil {
					r.logg.Warn(r.logg.WithField(ctx, "room_id", roomID.String()), "room subscription closed")
				}
				return nil
			}
			if err := writeEvent(w, EventMessage, payload); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
