package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/pkg/db/models"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

// HistoryLimit caps how many messages a room load returns.
const HistoryLimit = 200

type repository interface {
	ListRooms(ctx context.Context) ([]models.ChatRoom, error)
	FindRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error)
	RecentMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
}

type profileRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

// publisher fans new messages out to realtime subscribers.
type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	RoomChannel(roomID string) string
}

// Service reads and writes chat rooms.
type Service interface {
	Rooms(ctx context.Context) ([]RoomDTO, error)
	Messages(ctx context.Context, roomID uuid.UUID) ([]MessageDTO, error)
	Send(ctx context.Context, userID, roomID uuid.UUID, req SendMessageRequest) (*MessageDTO, error)
}

type ServiceParams struct {
	Repo      repository
	Profiles  profileRepository
	Publisher publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo     repository
	profiles profileRepository
	pub      publisher
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, profiles: params.Profiles, pub: params.Publisher, logg: params.Logger, now: now}, nil
}

func (s *service) Rooms(ctx context.Context) ([]RoomDTO, error) {
	rows, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rooms")
	}
	out := make([]RoomDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, roomFromModel(r))
	}
	return out, nil
}

func (s *service) Messages(ctx context.Context, roomID uuid.UUID) ([]MessageDTO, error) {
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return nil, err
	}
	rows, err := s.repo.RecentMessages(ctx, roomID, HistoryLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	authorIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]struct{}{}
	for _, m := range rows {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		authorIDs = append(authorIDs, m.UserID)
	}
	authors, err := s.profiles.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load authors")
	}
	out := make([]MessageDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, messageFromModel(m, authors[m.UserID]))
	}
	return out, nil
}

// Send stores the message and publishes it to the room channel. A publish
// failure is logged; the message is already durable and shows up on reload.
func (s *service) Send(ctx context.Context, userID, roomID uuid.UUID, req SendMessageRequest) (*MessageDTO, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return nil, err
	}
	authors, err := s.profiles.FindByIDs(ctx, []uuid.UUID{userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load author")
	}
	author, ok := authors[userID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile not found")
	}

	now := s.now()
	msg := &models.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}
	dto := messageFromModel(*msg, author)

	payload, err := json.Marshal(dto)
	if err == nil {
		err = s.pub.Publish(ctx, s.pub.RoomChannel(roomID.String()), payload)
	}
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"room_id": roomID.String(), "message_id": msg.ID.String()})
		s.logg.Error(logCtx, "publish chat message", err)
	}
	return &dto, nil
}

func (s *service) ensureRoom(ctx context.Context, roomID uuid.UUID) error {
	if _, err := s.repo.FindRoom(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room")
	}
	return nil
}
