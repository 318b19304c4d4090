package controllers

import (
	"net/http"

	"github.com/medok/medok-backend/api/responses"
	"github.com/medok/medok-backend/api/validators"
	"github.com/medok/medok-backend/internal/reference"
	"github.com/medok/medok-backend/pkg/logger"
)

func Regions(svc reference.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reference service"))
			return
		}
		regions, err := svc.Regions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, regions)
	}
}

func RegionHospitals(svc reference.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reference service"))
			return
		}
		regionID, err := validators.ParseUUIDParam(r, "regionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hospitals, err := svc.Hospitals(r.Context(), regionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, hospitals)
	}
}
