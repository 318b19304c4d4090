package mailer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/medok/medok-backend/pkg/auth"
	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/enums"
)

// LinkBuilder mints the accept and reject URLs embedded in request emails.
type LinkBuilder struct {
	jwt     config.JWTConfig
	baseURL string
	now     func() time.Time
}

func NewLinkBuilder(jwt config.JWTConfig, publicBaseURL string, now func() time.Time) *LinkBuilder {
	if now == nil {
		now = time.Now
	}
	return &LinkBuilder{jwt: jwt, baseURL: strings.TrimRight(publicBaseURL, "/"), now: now}
}

// Build returns the accept and reject URLs. Each token is bound to its own action.
func (b *LinkBuilder) Build(payload auth.ExchangeLinkPayload) (string, string, error) {
	accept, err := b.link(enums.ExchangeActionAccept, payload)
	if err != nil {
		return "", "", err
	}
	reject, err := b.link(enums.ExchangeActionReject, payload)
	if err != nil {
		return "", "", err
	}
	return accept, reject, nil
}

func (b *LinkBuilder) link(action enums.ExchangeAction, payload auth.ExchangeLinkPayload) (string, error) {
	payload.Action = action
	token, err := auth.MintExchangeLinkToken(b.jwt, b.now(), payload)
	if err != nil {
		return "", fmt.Errorf("mint %s link: %w", action, err)
	}
	return fmt.Sprintf("%s/shift-exchange/%s/%s/%s?token=%s",
		b.baseURL, action, payload.RequesterID, url.PathEscape(payload.ShiftDate), url.QueryEscape(token)), nil
}
