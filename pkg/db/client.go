// Package db opens the gorm connection shared by the API and the workers.
// Postgres is the production driver; sqlite backs local runs and tests.
package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Client struct {
	conn *gorm.DB
}

// New opens and tunes the pool described by cfg. Queries log through logg:
// failures at error level and slow statements at warn level.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName(cfg), err)
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	if n := cfg.MaxOpenConns; n > 0 {
		pool.SetMaxOpenConns(n)
	}
	if n := cfg.MaxIdleConns; n > 0 {
		pool.SetMaxIdleConns(n)
	}
	if d := cfg.ConnMaxLifetime; d > 0 {
		pool.SetConnMaxLifetime(d)
	}
	if d := cfg.ConnMaxIdleTime; d > 0 {
		pool.SetConnMaxIdleTime(d)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", driverName(cfg)), "database connected")
	}
	return &Client{conn: conn}, nil
}

// NewFromConn wraps a connection opened elsewhere, usually sqlite in tests.
func NewFromConn(conn *gorm.DB) *Client { return &Client{conn: conn} }

func driverName(cfg config.DBConfig) string {
	if cfg.Driver == "" {
		return DriverPostgres
	}
	return cfg.Driver
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch driverName(cfg) {
	case DriverPostgres:
		// Simple protocol keeps the pool usable behind pgbouncer in transaction mode.
		return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func (c *Client) DB() *gorm.DB { return c.conn }

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in a transaction that commits when fn returns nil and
// rolls back on an error or a panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
