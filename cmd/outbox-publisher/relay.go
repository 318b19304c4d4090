package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/metrics"
	"github.com/medok/medok-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxErrorWait   = 10 * time.Second
	errorJitter    = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Exhaust(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error
}

type deadLetterStore interface {
	RecordTx(tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// sendFunc publishes one message and returns the server message id.
type sendFunc func(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)

type publisherSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type RelayParams struct {
	Config   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	PubSub   publisherSource
	Events   eventStore
	Letters  deadLetterStore
	Registry resolver
	Metrics  *metrics.OutboxMetrics
	// Send overrides publishing through PubSub.
	Send sendFunc
}

// Relay moves committed outbox rows to Pub/Sub. Each batch runs in one
// transaction; a row is marked published, counted as a failed attempt, or
// copied to the dead letter table.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	pubsub      publisherSource
	events      eventStore
	letters     deadLetterStore
	registry    resolver
	metrics     *metrics.OutboxMetrics
	send        sendFunc
	batch       int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Events == nil || p.Letters == nil:
		return nil, errors.New("outbox stores are required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		events:      p.Events,
		letters:     p.Letters,
		registry:    p.Registry,
		metrics:     p.Metrics,
		send:        p.Send,
		batch:       orDefault(p.Config.BatchSize, 50),
		maxAttempts: orDefault(p.Config.MaxAttempts, 10),
		poll:        time.Duration(orDefault(p.Config.PollIntervalMS, 500)) * time.Millisecond,
	}
	if r.send == nil {
		r.send = r.publish
	}
	return r, nil
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run drains the outbox until ctx is canceled. A full batch is followed
// immediately by the next one; an empty batch waits one poll interval and
// a failed batch waits on an exponential backoff.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": r.db.Ping, "pubsub": r.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}

	var backoff retry.Backoff
	for {
		n, err := r.drain(ctx)
		wait := r.poll
		switch {
		case err != nil:
			if backoff == nil {
				backoff = r.errorBackoff()
			}
			wait, _ = backoff.Next()
			r.logg.Error(r.logg.WithField(ctx, "retry_in", wait.String()), "outbox batch failed", err)
		case n > 0:
			backoff, wait = nil, 0
		default:
			backoff = nil
		}
		if err := pause(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Relay) errorBackoff() retry.Backoff {
	b := retry.NewExponential(r.poll)
	b = retry.WithJitter(errorJitter, b)
	return retry.WithCappedDuration(maxErrorWait, b)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type verdict int

const (
	published verdict = iota
	retryLater
	deadLettered
)

type outcome struct {
	verdict verdict
	reason  enums.DeadLetterReason
	topic   string
	err     error
}

// drain handles one batch and returns how many rows it settled.
func (r *Relay) drain(ctx context.Context) (int, error) {
	settled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := r.events.ClaimBatch(tx, r.batch, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		for _, event := range batch {
			if err := r.settle(ctx, tx, event, r.deliver(ctx, event)); err != nil {
				return err
			}
			settled++
		}
		return nil
	})
	return settled, err
}

func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) outcome {
	resolved, err := r.registry.Resolve(event)
	if err != nil {
		return outcome{verdict: deadLettered, reason: enums.DeadLetterRejected, err: err}
	}
	topic := resolved.Descriptor.Topic

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err = r.send(sendCtx, topic, message(event, resolved))
	var rejected registry.NonRetryableError
	switch {
	case err == nil:
		return outcome{verdict: published, topic: topic}
	case errors.As(err, &rejected):
		return outcome{verdict: deadLettered, reason: enums.DeadLetterRejected, topic: topic, err: err}
	case event.AttemptCount+1 >= r.maxAttempts:
		return outcome{
			verdict: deadLettered,
			reason:  enums.DeadLetterExhausted,
			topic:   topic,
			err:     fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err),
		}
	default:
		return outcome{verdict: retryLater, topic: topic, err: err}
	}
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, o outcome) error {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    event.ID.String(),
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID.String(),
		"attempt":      event.AttemptCount + 1,
		"topic":        o.topic,
	})
	kind := string(event.EventType)

	switch o.verdict {
	case published:
		if err := r.events.MarkPublished(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		r.metrics.IncPublished(kind)
		r.logg.Info(logCtx, "outbox event published")
	case retryLater:
		if err := r.events.RecordFailure(tx, event.ID, o.err); err != nil {
			return fmt.Errorf("record %s failure: %w", event.ID, err)
		}
		r.metrics.IncFailed(kind)
		r.logg.Warn(r.logg.WithField(logCtx, "error", o.err.Error()), "outbox publish failed, will retry")
	case deadLettered:
		if err := r.letters.RecordTx(tx, event, o.reason, o.err); err != nil {
			return fmt.Errorf("dead-letter %s: %w", event.ID, err)
		}
		if err := r.events.Exhaust(tx, event.ID, o.err, r.maxAttempts); err != nil {
			return fmt.Errorf("exhaust %s: %w", event.ID, err)
		}
		r.metrics.IncDeadLettered(kind, string(o.reason))
		r.logg.Warn(r.logg.WithFields(logCtx, map[string]any{
			"reason": o.reason,
			"error":  o.err.Error(),
		}), "outbox event dead-lettered")
	}
	return nil
}

// message carries the stored envelope as-is; attributes let subscribers
// route without decoding the body.
func message(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"event_version":  strconv.Itoa(resolved.Envelope.Version),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func (r *Relay) publish(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error) {
	p := r.pubsub.Publisher(topic)
	if p == nil {
		return "", registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}
	return p.Publish(ctx, msg).Get(ctx)
}
