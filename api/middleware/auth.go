package middleware

import (
	"net/http"
	"strings"

	"github.com/medok/medok-backend/api/responses"
	pkgauth "github.com/medok/medok-backend/pkg/auth"
	"github.com/medok/medok-backend/pkg/auth/session"
	"github.com/medok/medok-backend/pkg/config"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

// Auth admits requests whose bearer token verifies and whose session is
// still present in Redis. The caller is stored as a Principal.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			token := BearerToken(r)
			if token == "" {
				fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}
			if sessions != nil {
				live, err := sessions.HasSession(ctx, claims.ID)
				switch {
				case err != nil:
					fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case !live:
					fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx = WithPrincipal(ctx, Principal{
				UserID:     claims.UserID,
				Role:       claims.Role,
				HospitalID: claims.HospitalID,
				SessionID:  claims.ID,
			})
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, claims.Role.String())
				if claims.HospitalID != nil {
					ctx = logg.WithHospitalID(ctx, claims.HospitalID.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken reads the Authorization header. The "Bearer" scheme is
// optional and case-insensitive.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return h
}

// RequireHospital rejects callers whose token carries no hospital.
func RequireHospital(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, _ := PrincipalFromContext(r.Context()); p.HospitalID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeHospitalUnassigned, "user not assigned to a hospital"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
