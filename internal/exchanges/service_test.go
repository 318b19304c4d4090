package exchanges

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/internal/shifts"
	pkgAuth "github.com/medok/medok-backend/pkg/auth"
	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/db"
	"github.com/medok/medok-backend/pkg/db/dbtest"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/outbox"
	"github.com/medok/medok-backend/pkg/outbox/payloads"
	"github.com/medok/medok-backend/pkg/pagination"
)

var linkJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "medok",
	ExpirationMinutes: 30,
	ExchangeLinkTTL:   168 * time.Hour,
}

type memoryLinks struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memoryLinks) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value.(string)
	return true, nil
}

func (m *memoryLinks) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memoryLinks) ExchangeLinkKey(tokenID string) string {
	return "mk:exchange_link:" + tokenID
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	links    *memoryLinks
	alice    uuid.UUID
	bob      uuid.UUID
	carl     uuid.UUID
	shift    models.Shift
	clockMin int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	region := models.Region{ID: uuid.New(), NameCS: "Praha", NameEN: "Prague"}
	require.NoError(t, conn.Create(&region).Error)
	home := models.Hospital{ID: uuid.New(), RegionID: region.ID, Name: "Motol"}
	away := models.Hospital{ID: uuid.New(), RegionID: region.ID, Name: "Bulovka"}
	require.NoError(t, conn.Create(&[]models.Hospital{home, away}).Error)

	f := &fixture{conn: conn, links: &memoryLinks{keys: map[string]string{}}}
	f.alice = addProfile(t, conn, "Alice", &home.ID)
	f.bob = addProfile(t, conn, "Bob", &home.ID)
	f.carl = addProfile(t, conn, "Carl", &away.ID)

	f.shift = models.Shift{ID: uuid.New(), UserID: f.alice, Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Type: enums.ShiftTypeNight}
	require.NoError(t, conn.Create(&f.shift).Error)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		DB:        db.NewFromConn(conn),
		Repo:      NewRepository(conn),
		Shifts:    shifts.NewRepository(conn),
		Profiles:  profiles.NewRepository(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Links:     f.links,
		JWTConfig: linkJWT,
		Now: func() time.Time {
			f.clockMin++
			return base.Add(time.Duration(f.clockMin) * time.Minute)
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func addProfile(t *testing.T, conn *gorm.DB, name string, hospital *uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := profiles.NewRepository(conn).Create(context.Background(), profiles.CreateProfileDTO{
		ID:         id,
		Name:       name,
		Email:      name + "@example.com",
		Role:       enums.StaffRoleNurse,
		HospitalID: hospital,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) events(t *testing.T, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

func (f *fixture) link(t *testing.T, requestID uuid.UUID, action enums.ExchangeAction) string {
	t.Helper()
	token, err := pkgAuth.MintExchangeLinkToken(linkJWT, time.Now(), pkgAuth.ExchangeLinkPayload{
		RequestID:   requestID,
		RequesterID: f.alice,
		RequestedID: f.bob,
		ShiftDate:   "2024-03-15",
		Action:      action,
	})
	require.NoError(t, err)
	return token
}

func TestCreateEmitsRequestedEventAndAllowsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
	require.NoError(t, err)
	require.Equal(t, enums.ExchangeStatusPending, first.Status)
	require.Equal(t, "Alice", first.RequesterName)
	require.Equal(t, "Bob", first.RequestedName)
	require.NotNil(t, first.Shift)
	require.Equal(t, "2024-03-15", first.Shift.Date)

	second, err := f.svc.Create(ctx, f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	var pending int64
	require.NoError(t, f.conn.Model(&models.ShiftExchangeRequest{}).
		Where("requester_id = ? AND requested_id = ? AND status = ?", f.alice, f.bob, enums.ExchangeStatusPending).
		Count(&pending).Error)
	require.EqualValues(t, 2, pending)

	events := f.events(t, enums.EventShiftExchangeRequested)
	require.Len(t, events, 2)
	envelope, err := outbox.DecodeEnvelope(events[0].Payload)
	require.NoError(t, err)
	require.Equal(t, f.alice, envelope.Actor.UserID)
}

func TestCreatePayloadCarriesRecipient(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
	require.NoError(t, err)

	events := f.events(t, enums.EventShiftExchangeRequested)
	require.Len(t, events, 1)
	envelope, err := outbox.DecodeEnvelope(events[0].Payload)
	require.NoError(t, err)
	data, err := decodeJSON[payloads.ShiftExchangeRequestedEvent](envelope.Data)
	require.NoError(t, err)
	require.Equal(t, created.ID, data.RequestID)
	require.Equal(t, "Bob@example.com", data.RequestedEmail)
	require.Equal(t, "2024-03-15", data.ShiftDate)
	require.Equal(t, enums.ShiftTypeNight, data.ShiftType)
}

func TestCreateAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		caller uuid.UUID
		req    CreateExchangeRequest
		code   pkgerrors.Code
	}{
		{"someone else's shift", f.bob, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.alice}, pkgerrors.CodeForbidden},
		{"self", f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.alice}, pkgerrors.CodeValidation},
		{"unknown target", f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: uuid.New()}, pkgerrors.CodeNotFound},
		{"other hospital", f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.carl}, pkgerrors.CodeForbidden},
		{"unknown shift", f.alice, CreateExchangeRequest{ShiftID: uuid.New(), RequestedUserID: f.bob}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		_, err := f.svc.Create(ctx, tc.caller, tc.req)
		require.True(t, pkgerrors.IsCode(err, tc.code), "%s: got %v", tc.name, err)
	}
	require.Empty(t, f.events(t, enums.EventShiftExchangeRequested))
}

func TestRespondTransitionsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, f.alice, created.ID, true)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	accepted, err := f.svc.Respond(ctx, f.bob, created.ID, true)
	require.NoError(t, err)
	require.Equal(t, enums.ExchangeStatusAccepted, accepted.Status)

	_, err = f.svc.Respond(ctx, f.bob, created.ID, false)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	var stored models.ShiftExchangeRequest
	require.NoError(t, f.conn.First(&stored, "id = ?", created.ID).Error)
	require.Equal(t, enums.ExchangeStatusAccepted, stored.Status)

	var shift models.Shift
	require.NoError(t, f.conn.First(&shift, "id = ?", f.shift.ID).Error)
	require.Equal(t, f.alice, shift.UserID, "accepting must not move the shift")

	events := f.events(t, enums.EventShiftExchangeResponded)
	require.Len(t, events, 1)
	envelope, err := outbox.DecodeEnvelope(events[0].Payload)
	require.NoError(t, err)
	data, err := decodeJSON[payloads.ShiftExchangeRespondedEvent](envelope.Data)
	require.NoError(t, err)
	require.Equal(t, enums.ExchangeStatusAccepted, data.Status)
	require.Equal(t, "Alice@example.com", data.RequesterEmail)
	require.Equal(t, "Bob", data.ResponderName)
}

func TestRedeemLinkIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
	require.NoError(t, err)
	token := f.link(t, created.ID, enums.ExchangeActionReject)

	req := RedeemLinkRequest{Action: "reject", RequesterID: f.alice.String(), ShiftDate: "2024-03-15", Token: token}
	rejected, err := f.svc.RedeemLink(ctx, req)
	require.NoError(t, err)
	require.Equal(t, enums.ExchangeStatusRejected, rejected.Status)
	require.Len(t, f.events(t, enums.EventShiftExchangeResponded), 1)

	_, err = f.svc.RedeemLink(ctx, req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestRedeemLinkRejectsTampering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
	require.NoError(t, err)
	token := f.link(t, created.ID, enums.ExchangeActionAccept)
	rejectToken := f.link(t, created.ID, enums.ExchangeActionReject)

	_, err = f.svc.RedeemLink(ctx, RedeemLinkRequest{Action: "maybe", RequesterID: f.alice.String(), ShiftDate: "2024-03-15", Token: token})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.RedeemLink(ctx, RedeemLinkRequest{Action: "accept", RequesterID: f.carl.String(), ShiftDate: "2024-03-15", Token: token})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.RedeemLink(ctx, RedeemLinkRequest{Action: "accept", RequesterID: f.alice.String(), ShiftDate: "2024-03-16", Token: token})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.RedeemLink(ctx, RedeemLinkRequest{Action: "accept", RequesterID: f.alice.String(), ShiftDate: "2024-03-15", Token: token + "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	_, err = f.svc.RedeemLink(ctx, RedeemLinkRequest{Action: "accept", RequesterID: f.alice.String(), ShiftDate: "2024-03-15", Token: rejectToken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "reject token on accept path: got %v", err)

	require.Empty(t, f.links.keys)

	accepted, err := f.svc.RedeemLink(ctx, RedeemLinkRequest{Action: "accept", RequesterID: f.alice.String(), ShiftDate: "2024-03-15", Token: token})
	require.NoError(t, err)
	require.Equal(t, enums.ExchangeStatusAccepted, accepted.Status)
}

func TestRedeemLinkAfterInAppAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.bob, created.ID, false)
	require.NoError(t, err)

	_, err = f.svc.RedeemLink(ctx, RedeemLinkRequest{Action: "accept", RequesterID: f.alice.String(), ShiftDate: "2024-03-15", Token: f.link(t, created.ID, enums.ExchangeActionAccept)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created, err := f.svc.Create(ctx, f.alice, CreateExchangeRequest{ShiftID: f.shift.ID, RequestedUserID: f.bob})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	page, err := f.svc.List(ctx, f.bob, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	require.Equal(t, ids[2], page.Items[0].ID)
	require.Equal(t, ids[1], page.Items[1].ID)
	require.Equal(t, "Alice", page.Items[0].RequesterName)
	require.Equal(t, "Bob", page.Items[0].RequestedName)
	require.Equal(t, "2024-03-15", page.Items[0].Shift.Date)

	next, err := f.svc.List(ctx, f.bob, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	require.Equal(t, ids[0], next.Items[0].ID)
	require.Empty(t, next.NextCursor)

	none, err := f.svc.List(ctx, f.carl, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, none.Items)

	_, err = f.svc.List(ctx, f.bob, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}
