// Package responses writes the {"data": ...} and {"error": ...} envelopes.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

type Success struct {
	Data any `json:"data"`
}

type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Failure struct {
	Error Problem `json:"error"`
}

var errUnknown = errors.New("unknown error")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	encode(w, status, Success{Data: data})
}

// WriteError renders err as the error envelope. Untyped errors become
// INTERNAL_ERROR so their text never reaches the client. Server-side
// failures log at error level with the full trace, client mistakes at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errUnknown
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	status := pkgerrors.MetadataFor(typed.Code()).HTTPStatus

	if logg != nil {
		logCtx := logg.WithFields(ctx, pkgerrors.Inspect(err).Fields())
		logCtx = logg.WithField(logCtx, "status", status)
		if status >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", err)
		} else {
			logg.Warn(logg.WithField(logCtx, "error", err.Error()), "request rejected")
		}
	}

	encode(w, status, Failure{Error: Problem{
		Code:    string(typed.Code()),
		Message: typed.PublicMessage(),
		Details: typed.PublicDetails(),
	}})
}

func encode(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// The status line is already out; an encode failure can only mean the client went away.
	_ = json.NewEncoder(w).Encode(payload)
}
