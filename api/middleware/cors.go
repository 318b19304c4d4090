package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS admits the web client origins. With no configured origins only the
// local Vite dev server is allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			APIKeyHeader, HeaderIdempotencyKey, HeaderRequestID,
		},
		ExposedHeaders:   []string{HeaderRequestID, "Idempotent-Replayed", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
