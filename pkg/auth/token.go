// Package auth mints and verifies the HS256 tokens the API hands out: short
// lived access tokens for sessions and single-use exchange link tokens that
// travel in emails.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/config"
)

const accessAudience = "medok-api"

var (
	signingMethod = jwt.SigningMethodHS256
	errNoSecret   = errors.New("jwt secret is required")
)

func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid staff role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	return sign(cfg, &AccessTokenClaims{
		UserID:           payload.UserID,
		HospitalID:       payload.HospitalID,
		Role:             payload.Role,
		RegisteredClaims: registered(cfg, now, ttl, payload.UserID.String(), accessAudience, jti),
	})
}

// ParseAccessToken verifies signature, issuer, audience and expiry.
func ParseAccessToken(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parse(cfg, token, &AccessTokenClaims{}, jwt.WithAudience(accessAudience), jwt.WithExpirationRequired())
}

// ParseAccessTokenAllowExpired skips time checks so refresh can read the jti
// of a token that has just lapsed. Signature and audience still have to match.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	claims, err := parse(cfg, token, &AccessTokenClaims{}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if !slices.Contains(claims.Audience, accessAudience) {
		return nil, fmt.Errorf("%w: not an access token", jwt.ErrTokenInvalidAudience)
	}
	return claims, nil
}

func registered(cfg config.JWTConfig, now time.Time, ttl time.Duration, subject, audience, jti string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}
}

func sign(cfg config.JWTConfig, claims jwt.Claims) (string, error) {
	if cfg.Secret == "" {
		return "", errNoSecret
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func parse[C jwt.Claims](cfg config.JWTConfig, token string, claims C, opts ...jwt.ParserOption) (C, error) {
	var zero C
	if cfg.Secret == "" {
		return zero, errNoSecret
	}
	opts = append(opts, jwt.WithValidMethods([]string{signingMethod.Alg()}), jwt.WithIssuer(cfg.Issuer))
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return zero, err
	}
	return claims, nil
}
