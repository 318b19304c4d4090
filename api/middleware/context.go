package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/enums"
)

// Principal is the authenticated caller as read from the access token.
type Principal struct {
	UserID     uuid.UUID
	Role       enums.StaffRole
	HospitalID *uuid.UUID
	// SessionID is the token jti and keys the Redis session record.
	SessionID string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reports false on routes that skip Auth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}
