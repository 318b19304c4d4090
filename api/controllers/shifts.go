package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/medok/medok-backend/api/responses"
	"github.com/medok/medok-backend/api/validators"
	"github.com/medok/medok-backend/internal/shifts"
	"github.com/medok/medok-backend/pkg/logger"
)

// ShiftList returns the caller's shifts for ?month=YYYY-MM, defaulting to the current month.
func ShiftList(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("shift service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		month := strings.TrimSpace(r.URL.Query().Get("month"))
		if month == "" {
			month = time.Now().UTC().Format(shifts.MonthLayout)
		}
		rows, err := svc.LoadMonth(r.Context(), userID, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ShiftCreate(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("shift service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shifts.CreateShiftRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shift, err := svc.Create(r.Context(), userID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shift)
	}
}

func ShiftUpdate(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("shift service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shiftID, err := validators.ParseUUIDParam(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shifts.UpdateShiftRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shift, err := svc.Update(r.Context(), userID, shiftID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}
