package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/medok/medok-backend/api/responses"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

// APIKeyHeader carries the public client key on every API request.
const APIKeyHeader = "apikey"

// APIKey rejects requests that do not present the configured client key.
func APIKey(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	want := []byte(strings.TrimSpace(expected))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(strings.TrimSpace(r.Header.Get(APIKeyHeader)))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
