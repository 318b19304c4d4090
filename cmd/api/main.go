package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/medok/medok-backend/api/controllers"
	"github.com/medok/medok-backend/api/routes"
	"github.com/medok/medok-backend/internal/app"
	"github.com/medok/medok-backend/internal/auth"
	"github.com/medok/medok-backend/internal/chat"
	"github.com/medok/medok-backend/internal/exchanges"
	"github.com/medok/medok-backend/internal/mailer"
	"github.com/medok/medok-backend/internal/media"
	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/internal/realtime"
	"github.com/medok/medok-backend/internal/reference"
	"github.com/medok/medok-backend/internal/shifts"
	"github.com/medok/medok-backend/internal/users"
	"github.com/medok/medok-backend/pkg/auth/session"
	"github.com/medok/medok-backend/pkg/metrics"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(app.Main("api", run))
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	dbClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}
	rt.Defer("gcs", gcsClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	profileRepo := profiles.NewRepository(dbClient.DB())
	shiftRepo := shifts.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		Identities:     users.NewRepository(dbClient.DB()),
		Profiles:       profileRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	referenceService, err := reference.NewService(reference.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	profileService, err := profiles.NewService(profileRepo)
	if err != nil {
		return err
	}

	avatarService, err := media.NewService(media.ServiceParams{
		Store:    gcsClient,
		Profiles: profileService,
		Prefix:   cfg.GCS.AvatarPrefix,
		MaxBytes: cfg.Media.MaxAvatarBytes,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	shiftService, err := shifts.NewService(shifts.ServiceParams{
		DB:     dbClient,
		Repo:   shiftRepo,
		Outbox: emitter,
	})
	if err != nil {
		return err
	}

	exchangeService, err := exchanges.NewService(exchanges.ServiceParams{
		DB:        dbClient,
		Repo:      exchanges.NewRepository(dbClient.DB()),
		Shifts:    shiftRepo,
		Profiles:  profileRepo,
		Outbox:    emitter,
		Links:     redisClient,
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		return err
	}

	chatService, err := chat.NewService(chat.ServiceParams{
		Repo:      chat.NewRepository(dbClient.DB()),
		Profiles:  profileRepo,
		Publisher: redisClient,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	relay := realtime.NewRelay(realtime.NewRedisSource(redisClient), cfg.Realtime.HeartbeatInterval, logg)

	// The functions endpoints answer 500 while SMTP is not configured.
	var mailService mailer.Service
	if cfg.SMTP.Enabled() {
		sender, err := mailer.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return err
		}
		if mailService, err = mailer.NewService(sender, logg); err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "smtp not configured, email functions disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := routes.NewRouter(routes.Params{
		Config:   cfg,
		Logger:   logg,
		Sessions: sessionManager,
		Redis:    redisClient,
		Health: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
			"gcs":   gcsClient,
		},
		Gatherer:  registry,
		Metrics:   metrics.NewHTTPMetrics(registry),
		Auth:      authService,
		Reference: referenceService,
		Profiles:  profileService,
		Avatars:   avatarService,
		Shifts:    shiftService,
		Exchanges: exchangeService,
		Chat:      chatService,
		Realtime:  relay,
		Mailer:    mailService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
