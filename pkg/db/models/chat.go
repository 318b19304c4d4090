package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medok/medok-backend/pkg/enums"
)

type ChatRoom struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string             `gorm:"column:name;not null"`
	Type      enums.ChatRoomType `gorm:"column:type;type:chat_room_type;not null;default:'general'"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID    uuid.UUID `gorm:"column:room_id;type:uuid;not null"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Content   string    `gorm:"column:content;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
