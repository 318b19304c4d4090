package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/medok/medok-backend/api/validators"
	"github.com/medok/medok-backend/internal/mailer"
	"github.com/medok/medok-backend/pkg/logger"
)

type functionResult struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendShiftExchangeEmail keeps the {success}/{error} contract of the hosted function it replaces.
func SendShiftExchangeEmail(svc mailer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in mailer.ExchangeEmail
		if !decodeFunctionBody(w, r, &in) {
			return
		}
		runFunction(w, r, logg, svc, func(ctx context.Context) error {
			return svc.SendExchangeEmail(ctx, in)
		})
	}
}

func SendShiftExchangeResponse(svc mailer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in mailer.ResponseEmail
		if !decodeFunctionBody(w, r, &in) {
			return
		}
		runFunction(w, r, logg, svc, func(ctx context.Context) error {
			return svc.SendResponseEmail(ctx, in)
		})
	}
}

func decodeFunctionBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeFunctionResult(w, http.StatusBadRequest, functionResult{Error: "invalid request body"})
		return false
	}
	if err := validators.ValidateStruct(dest); err != nil {
		writeFunctionResult(w, http.StatusBadRequest, functionResult{Error: err.Error()})
		return false
	}
	return true
}

func runFunction(w http.ResponseWriter, r *http.Request, logg *logger.Logger, svc mailer.Service, send func(context.Context) error) {
	if svc == nil {
		writeFunctionResult(w, http.StatusInternalServerError, functionResult{Error: "mailer unavailable"})
		return
	}
	if err := send(r.Context()); err != nil {
		if logg != nil {
			logg.Error(r.Context(), "function email failed", err)
		}
		writeFunctionResult(w, http.StatusInternalServerError, functionResult{Error: err.Error()})
		return
	}
	writeFunctionResult(w, http.StatusOK, functionResult{Success: true})
}

func writeFunctionResult(w http.ResponseWriter, status int, body functionResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
