package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir is the directory name inside Embedded.
const EmbeddedDir = "migrations"

// Embedded carries the SQL migrations compiled into every binary.
//
//go:embed migrations/*.sql
var Embedded embed.FS

// Runner executes goose commands against one database.
type Runner struct {
	DB      *sql.DB
	Dir     string
	Dialect string
	// Embed makes goose read migrations from Embedded instead of the filesystem.
	Embed bool
}

func (r Runner) prepare() error {
	if r.DB == nil {
		return fmt.Errorf("db is required")
	}
	if r.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	dialect := r.Dialect
	if dialect == "" {
		dialect = "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if r.Embed {
		goose.SetBaseFS(Embedded)
	} else {
		goose.SetBaseFS(nil)
	}
	return nil
}

// Run executes a standard goose command (up, down, status, ...).
func (r Runner) Run(ctx context.Context, command string, args ...string) error {
	if err := r.prepare(); err != nil {
		return err
	}
	// RunContext prints status output to stdout (goose internal)
	if err := goose.RunContext(ctx, command, r.DB, r.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// ToVersion migrates up or down to the requested version by comparing the current DB version.
func (r Runner) ToVersion(ctx context.Context, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if err := r.prepare(); err != nil {
		return err
	}

	current, err := goose.GetDBVersion(r.DB)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, r.DB, r.Dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil
	default:
		if err := goose.DownToContext(ctx, r.DB, r.Dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}
