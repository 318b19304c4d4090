package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

func fieldError(field, msg string, extra ...any) error {
	details := map[string]any{"field": field}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i].(string)] = extra[i+1]
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseUUIDParam reads a chi route parameter as a UUID.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, fieldError(name, name+" must be a uuid")
	}
	return id, nil
}

// ParseQueryInt reads an optional integer query parameter bounded by [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, fieldError(key, key+" must be an integer")
	case n < lo || n > hi:
		return 0, fieldError(key, key+" is out of range", "min", lo, "max", hi)
	}
	return n, nil
}
