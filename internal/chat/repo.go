package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medok/medok-backend/internal/repo"
	"github.com/medok/medok-backend/pkg/db/models"
)

// Repository persists chat rooms and messages.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListRooms returns every room, oldest first.
func (r *Repository) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := r.DB(ctx).Order("created_at ASC").Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *Repository) FindRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.DB(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// RecentMessages returns up to limit of the room's newest messages in ascending order.
func (r *Repository) RecentMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Message, error) {
	var rows []models.Message
	if err := r.DB(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *Repository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	return r.DB(ctx).Create(msg).Error
}
