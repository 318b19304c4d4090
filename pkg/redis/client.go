// Package redis holds the shared Redis connection: session records,
// idempotency reservations, rate-limit counters, cron locks, single-use
// exchange links and the chat fan-out channels.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/logger"
)

var errNotConnected = errors.New("redis client not initialized")

// commands is the slice of redis.Cmdable the platform relies on.
type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Client struct {
	store commands
	raw   *redis.Client
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// IdempotencyStore backs the HTTP idempotency middleware: SetNX reserves a
// key, Set stores the final response and Del releases a failed attempt.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"redis_addr": opts.Addr,
			"redis_db":   opts.DB,
		}), "redis connected")
	}
	return &Client{store: raw, raw: raw}, nil
}

// options starts from the URL when one is set; explicit settings only fill
// what the URL left at zero.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fill(&opts.DialTimeout, cfg.DialTimeout)
	fill(&opts.ReadTimeout, cfg.ReadTimeout)
	fill(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fill[T int | time.Duration](dst *T, v T) {
	if *dst == 0 {
		*dst = v
	}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotConnected
	}
	return c.store.Get(ctx, key).Result()
}

// GetDel reads and removes key in one step.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotConnected
	}
	return c.store.GetDel(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errNotConnected
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotConnected
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errNotConnected
	}
	return c.store.Del(ctx, keys...).Err()
}

// IncrWithTTL bumps a fixed-window counter. The TTL is attached with
// EXPIRE NX on every call, so a counter whose first EXPIRE was lost still
// ages out instead of living forever.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.store == nil {
		return 0, errNotConnected
	}
	count, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		if err := c.store.ExpireNX(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count, nil
}

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if c.store == nil {
		return errNotConnected
	}
	return c.store.Publish(ctx, channel, payload).Err()
}

// Subscribe returns once the server has confirmed the subscription, so no
// message published after it returns can be missed.
func (c *Client) Subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	if c.raw == nil {
		return nil, errNotConnected
	}
	sub := c.raw.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return sub, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotConnected
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
