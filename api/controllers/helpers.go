package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/api/middleware"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return p.UserID, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
