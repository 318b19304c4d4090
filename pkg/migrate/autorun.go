package migrate

import (
	"context"
	"fmt"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when the app runs in dev mode with
// auto-migrate enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": EmbeddedDir})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	runner := Runner{DB: sqlDB, Dir: EmbeddedDir, Embed: true}
	if err := runner.Run(ctx, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
