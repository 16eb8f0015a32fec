// Package model holds the flat value records the scheduling engine works
// on. Entities reference each other by id only; every cross-entity hop goes
// through an explicit store lookup.
package model

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return Status(raw), true
	}
	return "", false
}

type PaymentStatus string

// PaymentStatusPending is the only payment state this engine ever writes;
// the flag is owned by billing and carried opaquely from then on.
const PaymentStatusPending PaymentStatus = "pending"

type Appointment struct {
	ID         string
	CustomerID string
	BusinessID string
	ServiceID  string
	EmployeeID string

	StartTime time.Time
	EndTime   time.Time

	// Price is the service price snapshotted at booking time. Later price
	// changes on the service must not alter booked appointments.
	Price string

	Status           Status
	OwnerApproved    bool
	EmployeeApproved bool

	PaymentStatus      PaymentStatus
	Notes              string
	CancellationReason string

	// ReminderSent is monotonic: once true it is never reset.
	ReminderSent bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkSchedule is one weekly availability window for an employee. At most
// one active row exists per (employee, weekday). Times are minutes from
// local midnight, matching how the schedule UI edits them.
type WorkSchedule struct {
	ID          string
	EmployeeID  string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	Active      bool
}

type User struct {
	ID       string
	FullName string
	Email    string
	Phone    string
}

type Business struct {
	ID      string
	OwnerID string
	Name    string
}

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Price           string
}

type Employee struct {
	ID         string
	BusinessID string
	// UserID links the employee to a login account; empty until the staff
	// invitation is accepted. Approval by employee requires the link.
	UserID   string
	Name     string
	Email    string
	IsActive bool
}

// Slot is a bookable [Start, End) interval offered to customers.
type Slot struct {
	Start time.Time
	End   time.Time
}
