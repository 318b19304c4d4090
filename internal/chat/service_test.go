package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/profiles"
	"github.com/medok/medok-backend/pkg/db/dbtest"
	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	publishFn func(ctx context.Context, channel string, payload []byte) error
	sent      []published
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if f.publishFn != nil {
		if err := f.publishFn(ctx, channel, payload); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, published{channel: channel, payload: payload})
	return nil
}

func (f *fakePublisher) RoomChannel(roomID string) string { return "mk:room:" + roomID }

type fixture struct {
	conn    *gorm.DB
	svc     Service
	pub     *fakePublisher
	logs    *bytes.Buffer
	general models.ChatRoom
	nurses  models.ChatRoom
	author  uuid.UUID
	tick    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{conn: conn, pub: &fakePublisher{}, logs: &bytes.Buffer{}}

	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	f.general = models.ChatRoom{ID: uuid.New(), Name: "General", Type: enums.ChatRoomGeneral, CreatedAt: base}
	f.nurses = models.ChatRoom{ID: uuid.New(), Name: "Nurses", Type: enums.ChatRoomNurses, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, conn.Create(&[]models.ChatRoom{f.nurses, f.general}).Error)

	avatar := "https://cdn.example.com/a.png"
	f.author = uuid.New()
	require.NoError(t, conn.Create(&models.Profile{
		ID:        f.author,
		Name:      "Petra",
		AvatarURL: &avatar,
		Role:      enums.StaffRoleHeadNurse,
		Shift:     enums.ShiftTypeDay,
	}).Error)

	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Profiles:  profiles.NewRepository(conn),
		Publisher: f.pub,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: f.logs}),
		Now: func() time.Time {
			f.tick++
			return base.Add(time.Duration(f.tick) * time.Second)
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestRoomsOrderedByCreation(t *testing.T) {
	f := newFixture(t)
	rooms, err := f.svc.Rooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "General", rooms[0].Name)
	require.Equal(t, "Nurses", rooms[1].Name)
}

func TestSendPublishesJoinedMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.svc.Send(ctx, f.author, f.general.ID, SendMessageRequest{Content: "  handover at 7  "})
	require.NoError(t, err)
	require.Equal(t, "handover at 7", sent.Content)
	require.Equal(t, "Petra", sent.Author.Name)
	require.Equal(t, enums.StaffRoleHeadNurse, sent.Author.Role)

	require.Len(t, f.pub.sent, 1)
	require.Equal(t, "mk:room:"+f.general.ID.String(), f.pub.sent[0].channel)
	var decoded MessageDTO
	require.NoError(t, json.Unmarshal(f.pub.sent[0].payload, &decoded))
	require.Equal(t, sent.ID, decoded.ID)
	require.Equal(t, "Petra", decoded.Author.Name)
}

func TestMessagesAscendingWithAuthors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.Send(ctx, f.author, f.general.ID, SendMessageRequest{Content: text})
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, f.author, f.nurses.ID, SendMessageRequest{Content: "elsewhere"})
	require.NoError(t, err)

	msgs, err := f.svc.Messages(ctx, f.general.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, []string{"one", "two", "three"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	require.NotNil(t, msgs[0].Author.AvatarURL)
}

func TestSendValidationAndUnknownRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.author, f.general.ID, SendMessageRequest{Content: "   "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Send(ctx, f.author, uuid.New(), SendMessageRequest{Content: "hi"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = f.svc.Messages(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	require.Empty(t, f.pub.sent)
}

func TestSendSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.pub.publishFn = func(context.Context, string, []byte) error { return errors.New("redis down") }

	sent, err := f.svc.Send(context.Background(), f.author, f.general.ID, SendMessageRequest{Content: "still stored"})
	require.NoError(t, err)
	require.Contains(t, f.logs.String(), "publish chat message")

	msgs, err := f.svc.Messages(context.Background(), f.general.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, sent.ID, msgs[0].ID)
}
