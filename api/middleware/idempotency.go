package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medok/medok-backend/api/responses"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
	pkgredis "github.com/medok/medok-backend/pkg/redis"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	// IdempotencyTTL covers shift creation and chat sends.
	IdempotencyTTL = 24 * time.Hour
	// ExchangeIdempotencyTTL covers exchange requests and answers, which
	// fan out emails and must not repeat after a late client retry.
	ExchangeIdempotencyTTL = 7 * 24 * time.Hour

	pendingTTL = time.Minute
)

type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotent makes a POST replayable under its Idempotency-Key header.
// The key is scoped to the caller and the request path. The first request
// reserves the key, concurrent duplicates are rejected while it runs, and
// the finished response is kept for ttl. 5xx responses are not kept so the
// client may retry with the same key.
func Idempotent(store pkgredis.IdempotencyStore, logg *logger.Logger, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintOf(body)
			caller, _ := PrincipalFromContext(ctx)
			key := store.IdempotencyKey(caller.UserID.String()+"|"+r.URL.Path, clientKey)

			reserved, err := reserve(ctx, store, key, fingerprint)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
				return
			}
			if !reserved {
				replay(ctx, store, logg, w, key, fingerprint)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// The request context may already be canceled by a disconnecting client.
			persistCtx := context.WithoutCancel(ctx)
			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(persistCtx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency reservation", err)
				}
				return
			}
			done, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(persistCtx, key, string(done), ttl); err != nil && logg != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string) (bool, error) {
	marker, _ := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprint})
	return store.SetNX(ctx, key, string(marker), pendingTTL)
}

func replay(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
		return
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}
	switch {
	case prior.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case prior.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
