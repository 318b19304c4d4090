package mailer

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/auth"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/outbox/idempotency"
	"github.com/medok/medok-backend/pkg/outbox/payloads"
	"github.com/medok/medok-backend/pkg/outbox/registry"
)

const consumerName = "mailer"

type profileLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

type linkBuilder interface {
	Build(payload auth.ExchangeLinkPayload) (string, string, error)
}

// NewDecoders registers the payloads the mailer understands.
func NewDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.EventShiftExchangeRequested, 1, registry.DecodeInto[payloads.ShiftExchangeRequestedEvent]())
	reg.Register(enums.EventShiftExchangeResponded, 1, registry.DecodeInto[payloads.ShiftExchangeRespondedEvent]())
	return reg
}

type ConsumerParams struct {
	Subscription *pubsub.Subscriber
	Idempotency  *idempotency.Manager
	Decoders     *registry.DecoderRegistry
	Mail         Service
	Links        linkBuilder
	Profiles     profileLookup
	Logger       *logger.Logger
}

// Consumer turns shift exchange events into emails.
type Consumer struct {
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	mail         Service
	links        linkBuilder
	profiles     profileLookup
	logg         *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Mail == nil {
		return nil, fmt.Errorf("mail service required")
	}
	if params.Links == nil {
		return nil, fmt.Errorf("link builder required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := params.Decoders
	if decoders == nil {
		decoders = NewDecoders()
	}
	return &Consumer{
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     decoders,
		mail:         params.Mail,
		links:        params.Links,
		profiles:     params.Profiles,
		logg:         params.Logger,
	}, nil
}

// Run receives until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("exchange subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Handle(ctx, msg.Attributes, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Handle processes one delivery and reports whether it should be acked.
func (c *Consumer) Handle(ctx context.Context, attributes map[string]string, data []byte) bool {
	eventType := enums.OutboxEventType(attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   attributes["event_id"],
		"event_type": eventType,
	})

	if !c.decoders.Handles(eventType) {
		c.logg.Debug(logCtx, "skipping event")
		return true
	}

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID, err := idempotency.ParseEventID(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return true
	}

	claimed, err := c.idempotency.Claim(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	switch evt := decoded.(type) {
	case *payloads.ShiftExchangeRequestedEvent:
		err = c.sendRequested(ctx, evt)
	case *payloads.ShiftExchangeRespondedEvent:
		err = c.sendResponded(ctx, evt)
	default:
		err = fmt.Errorf("unexpected payload %T", decoded)
	}
	if err != nil {
		if errors.Is(err, errNoRecipient) {
			c.logg.Warn(logCtx, "no recipient address, dropping email")
			return true
		}
		c.logg.Error(logCtx, "send email failed", err)
		if delErr := c.idempotency.Release(ctx, consumerName, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", delErr)
		}
		return false
	}
	c.logg.Info(logCtx, "event processed")
	return true
}

var errNoRecipient = errors.New("recipient has no email")

func (c *Consumer) sendRequested(ctx context.Context, evt *payloads.ShiftExchangeRequestedEvent) error {
	found, err := c.profiles.FindByIDs(ctx, []uuid.UUID{evt.RequesterID, evt.RequestedID})
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	to := evt.RequestedEmail
	if requested, ok := found[evt.RequestedID]; ok && requested.Email != nil && *requested.Email != "" {
		to = *requested.Email
	}
	if to == "" {
		return errNoRecipient
	}

	in := ExchangeEmail{
		To:            to,
		RequesterName: evt.RequesterName,
		ShiftDate:     evt.ShiftDate,
	}
	if requester, ok := found[evt.RequesterID]; ok {
		in.RequesterName = requester.Name
		in.RequesterRole = string(requester.Role)
		if requester.AvatarURL != nil {
			in.RequesterAvatar = *requester.AvatarURL
		}
	}

	in.AcceptURL, in.RejectURL, err = c.links.Build(auth.ExchangeLinkPayload{
		RequestID:   evt.RequestID,
		RequesterID: evt.RequesterID,
		RequestedID: evt.RequestedID,
		ShiftDate:   evt.ShiftDate,
	})
	if err != nil {
		return err
	}
	return c.mail.SendExchangeEmail(ctx, in)
}

func (c *Consumer) sendResponded(ctx context.Context, evt *payloads.ShiftExchangeRespondedEvent) error {
	to := evt.RequesterEmail
	found, err := c.profiles.FindByIDs(ctx, []uuid.UUID{evt.RequesterID})
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	if requester, ok := found[evt.RequesterID]; ok && requester.Email != nil && *requester.Email != "" {
		to = *requester.Email
	}
	if to == "" {
		return errNoRecipient
	}
	return c.mail.SendResponseEmail(ctx, ResponseEmail{
		To:            to,
		ResponderName: evt.ResponderName,
		ShiftDate:     evt.ShiftDate,
		Accepted:      evt.Status == enums.ExchangeStatusAccepted,
	})
}
