package mailer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/smtp"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/medok/medok-backend/pkg/auth"
	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/logger"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/outbox/idempotency"
	"github.com/medok/medok-backend/pkg/outbox/payloads"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "medok", ExchangeLinkTTL: 7 * 24 * time.Hour}

func TestAvatarOrFallback(t *testing.T) {
	if got := AvatarOrFallback("Jan Novak", " https://cdn.test/a.png "); got != "https://cdn.test/a.png" {
		t.Fatalf("expected explicit avatar, got %q", got)
	}
	got := AvatarOrFallback("Jan Novak", "")
	if !strings.HasPrefix(got, avatarFallbackBase) || !strings.Contains(got, "name=Jan+Novak") {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestRenderExchangeEscapesAndLinks(t *testing.T) {
	msg, err := RenderExchange(ExchangeEmail{
		To:            "eva@example.com",
		RequesterName: "<b>Jan</b>",
		RequesterRole: "doctor",
		ShiftDate:     "2024-03-15",
		AcceptURL:     "https://app.test/shift-exchange/accept/x/2024-03-15?token=a",
		RejectURL:     "https://app.test/shift-exchange/reject/x/2024-03-15?token=b",
	})
	require.NoError(t, err)
	require.Equal(t, "eva@example.com", msg.To)
	require.Contains(t, msg.Subject, "2024-03-15")
	require.NotContains(t, msg.HTML, "<b>Jan</b>")
	require.Contains(t, msg.HTML, "ui-avatars.com")
	require.Contains(t, msg.HTML, "shift-exchange/accept")
	require.Contains(t, msg.HTML, "shift-exchange/reject")
}

func TestRenderResponseVerb(t *testing.T) {
	accepted, err := RenderResponse(ResponseEmail{To: "a@example.com", ResponderName: "Eva", ShiftDate: "2024-03-15", Accepted: true})
	require.NoError(t, err)
	require.Contains(t, accepted.HTML, "accepted")

	rejected, err := RenderResponse(ResponseEmail{To: "a@example.com", ResponderName: "Eva", ShiftDate: "2024-03-15"})
	require.NoError(t, err)
	require.Contains(t, rejected.Subject, "rejected")
}

func TestSMTPSenderBuildsEmail(t *testing.T) {
	_, err := NewSMTPSender(config.SMTPConfig{})
	require.ErrorIs(t, err, ErrSMTPDisabled)

	sender, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 465, Username: "u", Password: "p", From: "MedOK <noreply@example.com>"})
	require.NoError(t, err)

	var (
		gotAddr string
		gotTLS  *tls.Config
		gotMail *email.Email
		gotAuth smtp.Auth
	)
	sender.send = func(e *email.Email, addr string, a smtp.Auth, cfg *tls.Config) error {
		gotMail, gotAddr, gotAuth, gotTLS = e, addr, a, cfg
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), Message{To: "eva@example.com", Subject: "hi", HTML: "<p>hi</p>"}))
	require.Equal(t, "smtp.example.com:465", gotAddr)
	require.Equal(t, "smtp.example.com", gotTLS.ServerName)
	require.NotNil(t, gotAuth)
	require.Equal(t, []string{"eva@example.com"}, gotMail.To)
	require.Equal(t, "MedOK <noreply@example.com>", gotMail.From)
	require.Equal(t, []byte("<p>hi</p>"), gotMail.HTML)
}

func TestLinkBuilderMintsVerifiableTokens(t *testing.T) {
	builder := NewLinkBuilder(testJWT, "https://app.test/", time.Now)
	payload := auth.ExchangeLinkPayload{RequestID: uuid.New(), RequesterID: uuid.New(), RequestedID: uuid.New(), ShiftDate: "2024-03-15"}

	accept, reject, err := builder.Build(payload)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(accept, "https://app.test/shift-exchange/accept/"+payload.RequesterID.String()+"/2024-03-15?token="))
	require.True(t, strings.HasPrefix(reject, "https://app.test/shift-exchange/reject/"))

	acceptURL, err := url.Parse(accept)
	require.NoError(t, err)
	rejectURL, err := url.Parse(reject)
	require.NoError(t, err)
	require.NotEqual(t, acceptURL.Query().Get("token"), rejectURL.Query().Get("token"))

	claims, err := auth.ParseExchangeLinkToken(testJWT, acceptURL.Query().Get("token"))
	require.NoError(t, err)
	require.Equal(t, payload.RequestID, claims.RequestID)
	requested, err := claims.RequestedUserID()
	require.NoError(t, err)
	require.Equal(t, payload.RequestedID, requested)
	require.Equal(t, enums.ExchangeActionAccept, claims.Action)

	rejectClaims, err := auth.ParseExchangeLinkToken(testJWT, rejectURL.Query().Get("token"))
	require.NoError(t, err)
	require.Equal(t, enums.ExchangeActionReject, rejectClaims.Action)
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return "mk:idempotency:" + scope + ":" + id
}

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type recordingMail struct {
	exchange  []ExchangeEmail
	responses []ResponseEmail
	err       error
}

func (r *recordingMail) SendExchangeEmail(_ context.Context, in ExchangeEmail) error {
	if r.err != nil {
		return r.err
	}
	r.exchange = append(r.exchange, in)
	return nil
}

func (r *recordingMail) SendResponseEmail(_ context.Context, in ResponseEmail) error {
	if r.err != nil {
		return r.err
	}
	r.responses = append(r.responses, in)
	return nil
}

type staticProfiles map[uuid.UUID]models.Profile

func (s staticProfiles) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := map[uuid.UUID]models.Profile{}
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newConsumer(t *testing.T, mail *recordingMail, profs staticProfiles) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(&memoryIdempotency{}, time.Hour)
	require.NoError(t, err)
	consumer, err := NewConsumer(ConsumerParams{
		Idempotency: manager,
		Mail:        mail,
		Links:       NewLinkBuilder(testJWT, "https://app.test", nil),
		Profiles:    profs,
		Logger:      logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
	})
	require.NoError(t, err)
	return consumer
}

func envelopeFor(t *testing.T, data any) (map[string]string, []byte) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	env := outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), OccurredAt: time.Now().UTC(), Data: raw}
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return map[string]string{"event_id": env.EventID}, body
}

func strPtr(v string) *string { return &v }

func TestConsumerSendsRequestEmailOnce(t *testing.T) {
	requester := models.Profile{ID: uuid.New(), Name: "Jan", Role: enums.StaffRoleDoctor, AvatarURL: strPtr("https://cdn.test/jan.png")}
	requested := models.Profile{ID: uuid.New(), Name: "Eva", Email: strPtr("eva@example.com")}
	mail := &recordingMail{}
	consumer := newConsumer(t, mail, staticProfiles{requester.ID: requester, requested.ID: requested})

	attrs, body := envelopeFor(t, payloads.ShiftExchangeRequestedEvent{
		RequestID:     uuid.New(),
		RequesterID:   requester.ID,
		RequesterName: "stale name",
		RequestedID:   requested.ID,
		ShiftDate:     "2024-03-15",
	})
	attrs["event_type"] = string(enums.EventShiftExchangeRequested)

	require.True(t, consumer.Handle(context.Background(), attrs, body))
	require.True(t, consumer.Handle(context.Background(), attrs, body), "redelivery must be acked")
	require.Len(t, mail.exchange, 1)

	sent := mail.exchange[0]
	require.Equal(t, "eva@example.com", sent.To)
	require.Equal(t, "Jan", sent.RequesterName)
	require.Equal(t, "doctor", sent.RequesterRole)
	require.Equal(t, "https://cdn.test/jan.png", sent.RequesterAvatar)
	require.Contains(t, sent.AcceptURL, "/shift-exchange/accept/"+requester.ID.String()+"/2024-03-15?token=")
}

func TestConsumerSendsResponseEmail(t *testing.T) {
	mail := &recordingMail{}
	consumer := newConsumer(t, mail, staticProfiles{})

	attrs, body := envelopeFor(t, payloads.ShiftExchangeRespondedEvent{
		RequestID:      uuid.New(),
		RequesterID:    uuid.New(),
		RequesterEmail: "jan@example.com",
		ResponderName:  "Eva",
		ShiftDate:      "2024-03-15",
		Status:         enums.ExchangeStatusAccepted,
	})
	attrs["event_type"] = string(enums.EventShiftExchangeResponded)

	require.True(t, consumer.Handle(context.Background(), attrs, body))
	require.Equal(t, []ResponseEmail{{To: "jan@example.com", ResponderName: "Eva", ShiftDate: "2024-03-15", Accepted: true}}, mail.responses)
}

func TestConsumerNacksAndReleasesOnSendFailure(t *testing.T) {
	mail := &recordingMail{err: errors.New("smtp down")}
	consumer := newConsumer(t, mail, staticProfiles{})

	attrs, body := envelopeFor(t, payloads.ShiftExchangeRespondedEvent{
		RequesterID:    uuid.New(),
		RequesterEmail: "jan@example.com",
		ResponderName:  "Eva",
		ShiftDate:      "2024-03-15",
		Status:         enums.ExchangeStatusRejected,
	})
	attrs["event_type"] = string(enums.EventShiftExchangeResponded)

	require.False(t, consumer.Handle(context.Background(), attrs, body))

	mail.err = nil
	require.True(t, consumer.Handle(context.Background(), attrs, body))
	require.Len(t, mail.responses, 1, "released key lets the retry send")
}

func TestConsumerAcksUnrelatedAndMalformed(t *testing.T) {
	mail := &recordingMail{}
	consumer := newConsumer(t, mail, staticProfiles{})

	require.True(t, consumer.Handle(context.Background(), map[string]string{"event_type": string(enums.EventShiftMonthPrefilled)}, []byte(`{}`)))
	require.True(t, consumer.Handle(context.Background(), map[string]string{"event_type": string(enums.EventShiftExchangeRequested)}, []byte(`not json`)))
	require.Empty(t, mail.exchange)
}
