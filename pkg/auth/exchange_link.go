package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/config"
)

const exchangeLinkAudience = "shift-exchange-link"

// MintExchangeLinkToken signs the capability embedded in the accept or
// reject link of an exchange email. The subject is the requested user and
// the action is fixed per token. Redeeming it must record the jti so the
// link works once.
func MintExchangeLinkToken(cfg config.JWTConfig, now time.Time, payload ExchangeLinkPayload) (string, error) {
	if cfg.ExchangeLinkTTL <= 0 {
		return "", errors.New("exchange link ttl must be positive")
	}
	if payload.RequestID == uuid.Nil || payload.RequesterID == uuid.Nil || payload.RequestedID == uuid.Nil {
		return "", errors.New("request, requester and requested ids are required")
	}
	if _, err := time.Parse(time.DateOnly, payload.ShiftDate); err != nil {
		return "", fmt.Errorf("invalid shift date %q", payload.ShiftDate)
	}
	if !payload.Action.IsValid() {
		return "", fmt.Errorf("invalid exchange action %q", payload.Action)
	}

	return sign(cfg, &ExchangeLinkClaims{
		RequestID:        payload.RequestID,
		RequesterID:      payload.RequesterID,
		ShiftDate:        payload.ShiftDate,
		Action:           payload.Action,
		RegisteredClaims: registered(cfg, now, cfg.ExchangeLinkTTL, payload.RequestedID.String(), exchangeLinkAudience, uuid.NewString()),
	})
}

func ParseExchangeLinkToken(cfg config.JWTConfig, token string) (*ExchangeLinkClaims, error) {
	return parse(cfg, token, &ExchangeLinkClaims{}, jwt.WithAudience(exchangeLinkAudience), jwt.WithExpirationRequired())
}

// RequestedUserID is the user the link was addressed to.
func (c *ExchangeLinkClaims) RequestedUserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
