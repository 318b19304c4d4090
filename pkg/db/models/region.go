package models

import (
	"time"

	"github.com/google/uuid"
)

// Region is static reference data with a Czech and English display name.
type Region struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	NameCS    string    `gorm:"column:name_cs;not null"`
	NameEN    string    `gorm:"column:name_en;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Hospital scopes team membership. It belongs to exactly one region.
type Hospital struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RegionID  uuid.UUID `gorm:"column:region_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
