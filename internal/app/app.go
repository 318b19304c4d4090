// Package app is the boot sequence shared by the medok binaries: environment
// and config loading, the service logger, signal handling and the ordered
// release of every client a binary opens.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/migrate"
	"github.com/medok/medok-backend/pkg/pubsub"
	"github.com/medok/medok-backend/pkg/redis"
)

// RunFunc is the body of a binary. Returning context.Canceled after a
// shutdown signal counts as a clean exit.
type RunFunc func(ctx context.Context, rt *Runtime) error

type closer struct {
	name string
	fn   func() error
}

// Runtime carries what every binary needs after boot.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger

	closers []closer
}

// Boot loads .env (when present) and the MEDOK_* configuration, then builds
// the service logger from it.
func Boot(service string) (*Runtime, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return nil, fmt.Errorf("load config: %w", err)
	}

	return &Runtime{
		Service: service,
		Config:  cfg,
		Logger: logger.New(logger.Options{
			ServiceName: service,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}, nil
}

// Defer registers fn to run on Close. Closers run in reverse order.
func (r *Runtime) Defer(name string, fn func() error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

// Close runs every registered closer once and joins their failures.
func (r *Runtime) Close() error {
	pending := r.closers
	r.closers = nil

	var errs error
	for _, c := range slices.Backward(pending) {
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	return errs
}

// Database connects to the configured database and applies the embedded
// migrations when dev auto-migrate is on.
func (r *Runtime) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, r.Config.DB, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	r.Defer("database", client.Close)

	if err := migrate.MaybeRunDev(ctx, r.Config, r.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (r *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	r.Defer("redis", client.Close)
	return client, nil
}

func (r *Runtime) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, r.Config.GCP, r.Config.PubSub, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	r.Defer("pubsub", client.Close)
	return client, nil
}

// logContext tags ctx with the fields every service log line shares.
func (r *Runtime) logContext(ctx context.Context) context.Context {
	return r.Logger.WithFields(ctx, map[string]any{
		"env":         r.Config.App.Env,
		"serviceKind": r.Service,
	})
}

// Main boots service, runs it until SIGINT or SIGTERM and returns the
// process exit code.
func Main(service string, run RunFunc) int {
	rt, err := Boot(service)
	if err != nil {
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rt.execute(ctx, run)
}

func (r *Runtime) execute(ctx context.Context, run RunFunc) int {
	ctx = r.logContext(ctx)
	r.Logger.Info(ctx, "starting "+r.Service)

	err := run(ctx, r)
	if cerr := r.Close(); cerr != nil {
		r.Logger.Error(context.WithoutCancel(ctx), "error releasing resources", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		r.Logger.Error(context.WithoutCancel(ctx), r.Service+" stopped unexpectedly", err)
		return 1
	}
	r.Logger.Info(context.WithoutCancel(ctx), r.Service+" shutting down gracefully")
	return 0
}
