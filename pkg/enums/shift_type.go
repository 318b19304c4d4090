package enums

import "slices"

// ShiftType is the duty assigned to a staff member for one calendar day.
type ShiftType string

const (
	ShiftTypeDay   ShiftType = "day"
	ShiftTypeNight ShiftType = "night"
	ShiftTypeOff   ShiftType = "off"
)

var shiftTypes = []ShiftType{ShiftTypeDay, ShiftTypeNight, ShiftTypeOff}

func (s ShiftType) String() string { return string(s) }

func (s ShiftType) IsValid() bool { return slices.Contains(shiftTypes, s) }

func ParseShiftType(raw string) (ShiftType, error) { return parse("shift type", raw, shiftTypes) }

// DefaultShiftTypeForDay is the rotation used to pre-fill an empty month:
// day-of-month mod 3 gives night (0), day (1) or off (2).
func DefaultShiftTypeForDay(dayOfMonth int) ShiftType {
	return [...]ShiftType{ShiftTypeNight, ShiftTypeDay, ShiftTypeOff}[dayOfMonth%3]
}
