package shifts

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/enums"
)

func TestMonthDaysLeapFebruary(t *testing.T) {
	month, err := ParseMonth("2024-02")
	if err != nil {
		t.Fatalf("parse month: %v", err)
	}
	days, err := MonthDays(month)
	if err != nil {
		t.Fatalf("month days: %v", err)
	}
	if len(days) != 29 {
		t.Fatalf("expected 29 days, got %d", len(days))
	}
	if got := days[28].Format(time.DateOnly); got != "2024-02-29" {
		t.Fatalf("unexpected last day %s", got)
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(time.Date(2025, 12, 17, 13, 0, 0, 0, time.UTC))
	if first.Format(time.DateOnly) != "2025-12-01" || last.Format(time.DateOnly) != "2025-12-31" {
		t.Fatalf("unexpected bounds %s..%s", first, last)
	}
}

func TestParseMonthRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "2024", "2024-13", "03-2024", "2024-03-01"} {
		if _, err := ParseMonth(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestDefaultMonthFollowsRotation(t *testing.T) {
	userID := uuid.New()
	month, _ := ParseMonth("2025-04")
	rows, err := DefaultMonth(userID, month)
	if err != nil {
		t.Fatalf("default month: %v", err)
	}

	type day struct {
		Date string
		Type enums.ShiftType
	}
	got := make([]day, 0, len(rows))
	for _, r := range rows {
		if r.UserID != userID || r.ID == uuid.Nil {
			t.Fatalf("unexpected row identity %+v", r)
		}
		got = append(got, day{Date: r.Date.Format(time.DateOnly), Type: r.Type})
	}

	want := make([]day, 0, 30)
	for d := 1; d <= 30; d++ {
		typ := enums.ShiftTypeOff
		switch d % 3 {
		case 0:
			typ = enums.ShiftTypeNight
		case 1:
			typ = enums.ShiftTypeDay
		}
		want = append(want, day{Date: time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC).Format(time.DateOnly), Type: typ})
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("default month mismatch (-want +got):\n%s", diff)
	}
}
