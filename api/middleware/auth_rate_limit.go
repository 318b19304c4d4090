package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/medok/medok-backend/api/responses"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

// RateLimitStore counts attempts in fixed windows.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy throttles one credential endpoint. A zero limit
// disables that dimension; a zero window disables the policy.
type AuthRateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (p AuthRateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

// AuthRateLimit guards login and registration against credential stuffing.
// Attempts are counted per client address and per normalised email; the
// email is hashed before it becomes part of a Redis key.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.PerIP > 0 {
				if ip := clientIP(r); ip != "" && !check(ctx, w, logg, store, policy, "ip", ip, policy.PerIP) {
					return
				}
			}

			if policy.PerEmail > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := emailOf(body); email != "" && !check(ctx, w, logg, store, policy, "email", sha(email), policy.PerEmail) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check increments the counter for one dimension and writes a 429 when the
// limit is exceeded. It returns false when the request must stop.
func check(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, store RateLimitStore, policy AuthRateLimitPolicy, dimension, subject string, limit int) bool {
	key := store.RateLimitKey("auth:" + policy.Name + ":" + dimension + ":" + subject)
	count, err := store.IncrWithTTL(ctx, key, policy.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.Name,
			"dimension": dimension,
			"subject":   subject,
			"attempts":  count,
			"limit":     limit,
		}), "auth attempt throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func emailOf(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func sha(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
