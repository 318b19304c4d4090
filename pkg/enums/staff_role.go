package enums

import "slices"

// StaffRole is the clinical role stored on a profile.
type StaffRole string

const (
	StaffRoleNurse     StaffRole = "nurse"
	StaffRoleDoctor    StaffRole = "doctor"
	StaffRoleAssistant StaffRole = "assistant"
	StaffRoleHeadNurse StaffRole = "headNurse"
)

var staffRoles = []StaffRole{StaffRoleNurse, StaffRoleDoctor, StaffRoleAssistant, StaffRoleHeadNurse}

func (r StaffRole) String() string { return string(r) }

func (r StaffRole) IsValid() bool { return slices.Contains(staffRoles, r) }

func ParseStaffRole(raw string) (StaffRole, error) { return parse("staff role", raw, staffRoles) }
