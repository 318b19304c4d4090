package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medok/medok-backend/internal/app"
	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/migrate"
)

type cli struct {
	dir      string
	embedded bool
	logg     *logger.Logger
	rt       *app.Runtime
	dbClient *db.Client
}

func main() {
	a := &cli{logg: logger.New(logger.Options{ServiceName: "migrate"})}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the MedOK database schema and reference data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	root.PersistentFlags().BoolVar(&a.embedded, "embedded", false, "use the migrations compiled into the binary")

	root.AddCommand(
		a.gooseCmd("up", "Apply all pending migrations"),
		a.gooseCmd("down", "Roll back the latest migration"),
		a.gooseCmd("status", "Print the migration status"),
		a.versionCmd(),
		a.createCmd(),
		a.validateCmd(),
		a.seedCmd(),
	)

	if err := root.Execute(); err != nil {
		a.logg.Error(context.Background(), "migrate failed", err)
		os.Exit(1)
	}
}

// connect loads config and opens the database; only commands touching the schema call it.
func (a *cli) connect(ctx context.Context) (*sql.DB, error) {
	rt, err := app.Boot("migrate")
	if err != nil {
		return nil, err
	}
	a.rt, a.logg = rt, rt.Logger

	client, err := db.New(ctx, rt.Config.DB, a.logg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.dbClient = client
	rt.Defer("database", client.Close)

	sqlDB, err := client.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("extract sql db: %w", err)
	}
	return sqlDB, nil
}

func (a *cli) close() {
	if a.rt == nil {
		return
	}
	if err := a.rt.Close(); err != nil {
		a.logg.Error(context.Background(), "error closing database", err)
	}
}

func (a *cli) runner(sqlDB *sql.DB) migrate.Runner {
	if a.embedded {
		return migrate.Runner{DB: sqlDB, Dir: migrate.EmbeddedDir, Embed: true}
	}
	return migrate.Runner{DB: sqlDB, Dir: a.dir}
}

func (a *cli) gooseCmd(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sqlDB, err := a.connect(ctx)
			if err != nil {
				return err
			}
			ctx = a.logg.WithFields(ctx, map[string]any{"env": a.rt.Config.App.Env, "cmd": command, "dir": a.dir})
			a.logg.Info(ctx, "migrate ready")
			return a.runner(sqlDB).Run(ctx, command)
		},
	}
}

func (a *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to an exact version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			return a.runner(sqlDB).ToVersion(cmd.Context(), args[0])
		},
	}
}

func (a *cli) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(a.dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
}

func (a *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration files for goose annotations and naming",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			check := func() error { return migrate.ValidateDir(a.dir) }
			if a.embedded {
				check = func() error { return migrate.ValidateFS(migrate.Embedded, migrate.EmbeddedDir) }
			}
			if err := check(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}
}

func (a *cli) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert regions and hospitals from a YAML seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := migrate.LoadSeedFile(file)
			if err != nil {
				return err
			}
			if _, err := a.connect(cmd.Context()); err != nil {
				return err
			}
			result, err := migrate.Seed(cmd.Context(), a.dbClient.DB(), seed)
			if err != nil {
				return err
			}
			ctx := a.logg.WithFields(cmd.Context(), map[string]any{
				"file":      file,
				"regions":   result.Regions,
				"hospitals": result.Hospitals,
			})
			a.logg.Info(ctx, "seed applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/seed.yaml", "seed document path")
	return cmd
}
