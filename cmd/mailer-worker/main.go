package main

import (
	"context"
	"errors"
	"os"

	"github.com/medok/medok-backend/internal/app"
	"github.com/medok/medok-backend/internal/mailer"
	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/pkg/outbox/idempotency"
)

var errSMTPRequired = errors.New("mailer worker requires MEDOK_SMTP_* settings")

func main() {
	os.Exit(app.Main("mailer-worker", run))
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg, logg := rt.Config, rt.Logger
	if !cfg.SMTP.Enabled() {
		return errSMTPRequired
	}

	dbClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := rt.PubSub(ctx)
	if err != nil {
		return err
	}

	idem, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	sender, err := mailer.NewSMTPSender(cfg.SMTP)
	if err != nil {
		return err
	}
	mailService, err := mailer.NewService(sender, logg)
	if err != nil {
		return err
	}

	consumer, err := mailer.NewConsumer(mailer.ConsumerParams{
		Subscription: pubsubClient.ExchangeSubscription(),
		Idempotency:  idem,
		Decoders:     mailer.NewDecoders(),
		Mail:         mailService,
		Links:        mailer.NewLinkBuilder(cfg.JWT, cfg.App.PublicBaseURL, nil),
		Profiles:     profiles.NewRepository(dbClient.DB()),
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "subscription", cfg.PubSub.ExchangeSubscription)
	return consumer.Run(ctx)
}
