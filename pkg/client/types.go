package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/types"
)

type Identity struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Profile struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Email       *string           `json:"email,omitempty"`
	AvatarURL   *string           `json:"avatar_url,omitempty"`
	Role        enums.StaffRole   `json:"role"`
	Phone       *string           `json:"phone,omitempty"`
	Shift       enums.ShiftType   `json:"shift"`
	SocialLinks types.SocialLinks `json:"social_links"`
	HospitalID  *uuid.UUID        `json:"hospital_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type ProfileUpdate struct {
	Name        *string            `json:"name,omitempty"`
	Phone       *string            `json:"phone,omitempty"`
	AvatarURL   *string            `json:"avatar_url,omitempty"`
	SocialLinks *types.SocialLinks `json:"social_links,omitempty"`
}

type Region struct {
	ID     uuid.UUID `json:"id"`
	NameCS string    `json:"name_cs"`
	NameEN string    `json:"name_en"`
}

type Hospital struct {
	ID       uuid.UUID `json:"id"`
	RegionID uuid.UUID `json:"region_id"`
	Name     string    `json:"name"`
}

// AuthResult is returned by login, register and refresh.
type AuthResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	User         *Identity `json:"user"`
	Profile      *Profile  `json:"profile"`
}

type Session struct {
	User    *Identity `json:"user"`
	Profile *Profile  `json:"profile"`
}

type SignUp struct {
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	Name       string          `json:"name"`
	Role       enums.StaffRole `json:"role"`
	Phone      *string         `json:"phone,omitempty"`
	RegionID   *uuid.UUID      `json:"region_id,omitempty"`
	HospitalID *uuid.UUID      `json:"hospital_id,omitempty"`
}

// Shift is one calendar day. Date is YYYY-MM-DD.
type Shift struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Date      string          `json:"date"`
	Type      enums.ShiftType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Exchange struct {
	ID            uuid.UUID            `json:"id"`
	RequesterID   uuid.UUID            `json:"requester_id"`
	RequesterName string               `json:"requester_name"`
	RequestedID   uuid.UUID            `json:"requested_id"`
	RequestedName string               `json:"requested_name"`
	ShiftID       uuid.UUID            `json:"shift_id"`
	Shift         *Shift               `json:"shift,omitempty"`
	Status        enums.ExchangeStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type ExchangePage struct {
	Items      []Exchange `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type Room struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Type      enums.ChatRoomType `json:"type"`
	CreatedAt time.Time          `json:"created_at"`
}

type Author struct {
	Name      string          `json:"name"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	Role      enums.StaffRole `json:"role"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    Author    `json:"author"`
}
