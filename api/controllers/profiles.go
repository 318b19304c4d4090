package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/medok/medok-backend/api/responses"
	"github.com/medok/medok-backend/api/validators"
	"github.com/medok/medok-backend/internal/media"
	"github.com/medok/medok-backend/internal/profiles"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

const (
	avatarFormField = "file"
	// multipart framing allowance on top of the file limit
	multipartOverhead = 64 * 1024
)

func ProfileMe(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("profile service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func ProfileGet(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("profile service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profileID, err := validators.ParseUUIDParam(r, "profileId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Get(r.Context(), userID, profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func ProfileUpdate(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("profile service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req profiles.UpdateProfileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.UpdateMe(r.Context(), userID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// ProfileAvatar accepts a multipart "file" part and replaces the caller's avatar.
func ProfileAvatar(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = media.DefaultMaxAvatarBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("media service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		file, header, err := r.FormFile(avatarFormField)
		if err != nil {
			if bodyTooLarge(err) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeResourceInvalid, "avatar exceeds size limit").
					WithDetails(map[string]any{"max_bytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").
				WithDetails(map[string]string{"field": avatarFormField}))
			return
		}
		defer file.Close()
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		profile, err := svc.UploadAvatar(r.Context(), userID, media.AvatarUpload{
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// Team lists the caller's hospital colleagues.
func Team(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("profile service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		team, err := svc.Team(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, team)
	}
}

func bodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
