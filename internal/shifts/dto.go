package shifts

import (
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
)

// ShiftDTO is the calendar entry returned to clients. Date is YYYY-MM-DD.
type ShiftDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Date      string          `json:"date"`
	Type      enums.ShiftType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateShiftRequest upserts one day of the caller's calendar.
type CreateShiftRequest struct {
	Date string          `json:"date" validate:"required,datetime=2006-01-02"`
	Type enums.ShiftType `json:"type" validate:"required"`
}

// UpdateShiftRequest changes the type of an existing shift.
type UpdateShiftRequest struct {
	Type enums.ShiftType `json:"type" validate:"required"`
}

func FromModel(s models.Shift) ShiftDTO {
	return ShiftDTO{
		ID:        s.ID,
		UserID:    s.UserID,
		Date:      s.Date.Format(time.DateOnly),
		Type:      s.Type,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func FromModels(rows []models.Shift) []ShiftDTO {
	out := make([]ShiftDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
