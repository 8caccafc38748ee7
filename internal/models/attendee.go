package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAttendee   Role = "attendee"
	RoleStaff      Role = "staff"
	RoleSuperAdmin Role = "super_admin"
)

// IsStaff reports whether the role belongs to event staff. Super admins count as staff.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleSuperAdmin
}

func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleStaff, RoleSuperAdmin:
		return true
	}
	return false
}

type Attendee struct {
	bun.BaseModel `bun:"table:attendees"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	Points    int       `bun:"points,notnull,default:0" json:"points"`
	CheckedIn bool      `bun:"checked_in,notnull,default:false" json:"checked_in"`
	Value     int       `bun:"value,notnull,default:1" json:"value"`
	Role      Role      `bun:"role,notnull,default:'attendee'" json:"role"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// RaffleEligible is the in-memory form of the eligible pool filter:
// checked in, holding points, and not part of the staff.
func (a Attendee) RaffleEligible() bool {
	return a.CheckedIn && a.Points > 0 && !a.Role.IsStaff()
}
