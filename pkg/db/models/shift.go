package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medok/medok-backend/pkg/enums"
)

// Shift is one user's duty for one calendar day; (user_id, date) is unique.
type Shift struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:shifts_user_id_date_key"`
	Date      time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:shifts_user_id_date_key"`
	Type      enums.ShiftType `gorm:"column:type;type:shift_type;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ShiftExchangeRequest proposes swapping a shift with another staff member.
type ShiftExchangeRequest struct {
	ID          uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequesterID uuid.UUID            `gorm:"column:requester_id;type:uuid;not null"`
	RequestedID uuid.UUID            `gorm:"column:requested_id;type:uuid;not null"`
	ShiftID     uuid.UUID            `gorm:"column:shift_id;type:uuid;not null"`
	Status      enums.ExchangeStatus `gorm:"column:status;type:exchange_status;not null;default:'pending'"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
