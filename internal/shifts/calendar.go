package shifts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/medok/medok-backend/pkg/db/models"
	"github.com/medok/medok-backend/pkg/enums"
)

// MonthLayout is the query format for a calendar month.
const MonthLayout = "2006-01"

// ParseMonth turns "YYYY-MM" into the first day of that month in UTC.
func ParseMonth(value string) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", value)
	}
	return t, nil
}

// MonthBounds returns the first and last calendar dates of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// MonthDays enumerates every date of the month containing t.
func MonthDays(t time.Time) ([]time.Time, error) {
	first, last := MonthBounds(t)
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: first,
		Until:   last,
	})
	if err != nil {
		return nil, fmt.Errorf("build month recurrence: %w", err)
	}
	return rule.All(), nil
}

// DefaultMonth synthesizes one shift per day following the day-of-month rotation.
func DefaultMonth(userID uuid.UUID, month time.Time) ([]models.Shift, error) {
	days, err := MonthDays(month)
	if err != nil {
		return nil, err
	}
	rows := make([]models.Shift, 0, len(days))
	for _, day := range days {
		rows = append(rows, models.Shift{
			ID:     uuid.New(),
			UserID: userID,
			Date:   day.UTC(),
			Type:   enums.DefaultShiftTypeForDay(day.Day()),
		})
	}
	return rows, nil
}

// NormalizeDate strips the clock from t so it matches a DATE column.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
