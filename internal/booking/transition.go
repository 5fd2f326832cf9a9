package booking

import "time"

// Status is the appointment lifecycle status.
type Status string

const (
	StatusBooked     Status = "booked"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusOnHold     Status = "on-hold"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	// StatusOverdue is derived, never stored: a booked or confirmed
	// appointment whose time has passed reads as overdue.
	StatusOverdue Status = "overdue"
)

// Role identifies the actor requesting a transition.
type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
)

// Denial reasons returned by CheckTransition.
const (
	ReasonIllegalTransition      = "illegal transition"
	ReasonInsufficientPermission = "insufficient permission"
)

// Decision is the outcome of a transition check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type edge struct {
	from, to Status
}

// transitions is the full edge table. A requested status change not present
// here is illegal regardless of role. The "-> booked" edges from
// booked/confirmed/overdue are the reschedule path (a reschedule lands the
// appointment back in booked with a new time).
var transitions = map[edge][]Role{
	{StatusBooked, StatusConfirmed}: {RoleDoctor, RoleAdmin},

	{StatusBooked, StatusCancelled}:    {RolePatient, RoleDoctor, RoleAdmin, RoleReceptionist},
	{StatusConfirmed, StatusCancelled}: {RolePatient, RoleDoctor, RoleAdmin, RoleReceptionist},
	{StatusOverdue, StatusCancelled}:   {RolePatient, RoleDoctor, RoleAdmin, RoleReceptionist},

	{StatusBooked, StatusBooked}:    {RolePatient, RoleDoctor, RoleAdmin},
	{StatusConfirmed, StatusBooked}: {RolePatient, RoleDoctor, RoleAdmin},
	{StatusOverdue, StatusBooked}:   {RolePatient, RoleDoctor, RoleAdmin},

	{StatusConfirmed, StatusCompleted}:  {RoleDoctor, RoleAdmin},
	{StatusInProgress, StatusCompleted}: {RoleDoctor, RoleAdmin},
	{StatusOnHold, StatusCompleted}:     {RoleDoctor, RoleAdmin},

	{StatusBooked, StatusOnHold}:     {RoleDoctor, RoleAdmin},
	{StatusConfirmed, StatusOnHold}:  {RoleDoctor, RoleAdmin},
	{StatusInProgress, StatusOnHold}: {RoleDoctor, RoleAdmin},
	{StatusOverdue, StatusOnHold}:    {RoleDoctor, RoleAdmin},
}

// CheckTransition decides whether actor role may move an appointment from
// current to requested. Pure: same inputs always give the same Decision.
func CheckTransition(current, requested Status, role Role) Decision {
	roles, ok := transitions[edge{current, requested}]
	if !ok {
		return Decision{Allowed: false, Reason: ReasonIllegalTransition}
	}
	for _, r := range roles {
		if r == role {
			return Decision{Allowed: true}
		}
	}
	return Decision{Allowed: false, Reason: ReasonInsufficientPermission}
}

// IsTerminal reports whether s permits no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ValidStatus reports whether s is a storable status. Overdue is excluded:
// it only ever exists as a derived view.
func ValidStatus(s Status) bool {
	switch s {
	case StatusBooked, StatusConfirmed, StatusInProgress, StatusOnHold, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// EffectiveStatus derives the status to display: a booked or confirmed
// appointment whose scheduled time has passed reads as overdue.
func EffectiveStatus(stored Status, scheduledAt, now time.Time) Status {
	if (stored == StatusBooked || stored == StatusConfirmed) && scheduledAt.Before(now) {
		return StatusOverdue
	}
	return stored
}
