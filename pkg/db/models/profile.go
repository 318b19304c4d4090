package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medok/medok-backend/pkg/enums"
	"github.com/medok/medok-backend/pkg/types"
)

// Profile is the staff-facing record layered on top of an identity.
type Profile struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	Email       *string           `gorm:"column:email"`
	AvatarURL   *string           `gorm:"column:avatar_url"`
	Role        enums.StaffRole   `gorm:"column:role;type:staff_role;not null;default:'nurse'"`
	Phone       *string           `gorm:"column:phone"`
	Shift       enums.ShiftType   `gorm:"column:shift;type:shift_type;not null;default:'day'"`
	SocialLinks types.SocialLinks `gorm:"column:social_links;type:jsonb;not null;default:'{}'"`
	HospitalID  *uuid.UUID        `gorm:"column:hospital_id;type:uuid"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
