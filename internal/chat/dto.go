package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
)

type RoomDTO struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Type      enums.ChatRoomType `json:"type"`
	CreatedAt time.Time          `json:"created_at"`
}

// AuthorDTO is the profile summary attached to each message.
type AuthorDTO struct {
	Name      string          `json:"name"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	Role      enums.StaffRole `json:"role"`
}

type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    AuthorDTO `json:"author"`
}

// SendMessageRequest posts a message to a room.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

func roomFromModel(r models.ChatRoom) RoomDTO {
	return RoomDTO{ID: r.ID, Name: r.Name, Type: r.Type, CreatedAt: r.CreatedAt}
}

func messageFromModel(m models.Message, author models.Profile) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Author: AuthorDTO{
			Name:      author.Name,
			AvatarURL: author.AvatarURL,
			Role:      author.Role,
		},
	}
}
