// Package session keeps one Redis record per issued access token. The
// record holds the refresh token hash, so a refresh can rotate the pair and
// a logout or revocation makes the access token fail its session check.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medok/medok-backend/pkg/config"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Session is what the caller hands back to the client. RefreshToken is
// only known at creation time; Redis keeps its hash.
type Session struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

type record struct {
	UserID      uuid.UUID `json:"user_id"`
	RefreshHash string    `json:"refresh_hash"`
	IssuedAt    time.Time `json:"issued_at"`
}

// AccessSessionChecker is the read-only view the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires the refresh TTL to outlive the access token TTL so
// an expired access token can still be refreshed.
func NewManager(s store, cfg config.JWTConfig) (*Manager, error) {
	if s == nil {
		return nil, errors.New("session store is required")
	}
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= access {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{store: s, ttl: ttl, now: time.Now}, nil
}

func NewAccessID() string { return uuid.NewString() }

func (m *Manager) Generate(ctx context.Context, userID uuid.UUID) (Session, error) {
	if userID == uuid.Nil {
		return Session{}, errors.New("user id is required")
	}
	token, err := refreshToken()
	if err != nil {
		return Session{}, err
	}
	sess := Session{AccessID: NewAccessID(), RefreshToken: token, UserID: userID}

	raw, err := json.Marshal(record{UserID: userID, RefreshHash: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return Session{}, err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(sess.AccessID), string(raw), m.ttl); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Rotate consumes the session of oldAccessID and opens a new one for the
// same user. The old record is removed before the token is compared, so a
// refresh token works at most once and a wrong token also ends the session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Session, error) {
	if strings.TrimSpace(oldAccessID) == "" || provided == "" {
		return Session{}, ErrInvalidRefreshToken
	}
	raw, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var rec record
	if json.Unmarshal([]byte(raw), &rec) != nil || rec.UserID == uuid.Nil {
		return Session{}, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.RefreshHash), []byte(digest(provided))) != 1 {
		return Session{}, ErrInvalidRefreshToken
	}
	return m.Generate(ctx, rec.UserID)
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, nil
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func refreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
