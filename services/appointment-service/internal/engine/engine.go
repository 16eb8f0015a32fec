// Package engine is the appointment scheduling core: availability
// computation, conflict-checked booking, the dual-approval state machine and
// the queries gated by actor relationship. All coordination happens through
// the ledger's transactions; the engine keeps no state between calls.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/appointly/appointly/services/appointment-service/internal/model"
	"github.com/appointly/appointly/services/appointment-service/internal/notify"
)

// Ledger is the engine's narrow contract with appointment storage. Reads
// outside a transaction see committed state only.
type Ledger interface {
	Begin(ctx context.Context) (LedgerTx, error)
	FindByID(ctx context.Context, id string) (model.Appointment, error)
	// FindOverlapping returns non-cancelled appointments of the employee
	// intersecting the half-open interval [start, end).
	FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]model.Appointment, error)
	FindByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error)
	FindByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error)
	// FindDueForReminder returns appointments with the reminder still
	// pending whose start time falls within [from, to].
	FindDueForReminder(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
}

// LedgerTx is one unit of work against the ledger. Implementations must
// guarantee that a concurrent insert of an overlapping interval for the same
// employee cannot commit alongside ours (the storage layer backs this with a
// database exclusion constraint).
type LedgerTx interface {
	Insert(ctx context.Context, appt *model.Appointment) error
	// GetForUpdate locks the appointment row for the duration of the
	// transaction, serializing concurrent approvals per appointment.
	GetForUpdate(ctx context.Context, id string) (model.Appointment, error)
	FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]model.Appointment, error)
	Update(ctx context.Context, appt *model.Appointment) error
	MarkReminderSent(ctx context.Context, id string) error
	// AppendEvent stages a notification intent in the same unit of work.
	AppendEvent(ctx context.Context, appointmentID, eventType string, payload []byte) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ScheduleStore resolves weekly availability windows. Read-only here; the
// schedule management endpoints own writes.
type ScheduleStore interface {
	FindActiveSchedule(ctx context.Context, employeeID string, weekday time.Weekday) (model.WorkSchedule, bool, error)
}

// Directory resolves the id references an appointment carries.
type Directory interface {
	GetUser(ctx context.Context, id string) (model.User, bool, error)
	GetBusiness(ctx context.Context, id string) (model.Business, bool, error)
	GetService(ctx context.Context, id string) (model.Service, bool, error)
	GetEmployee(ctx context.Context, id string) (model.Employee, bool, error)
}

type Engine struct {
	ledger    Ledger
	schedules ScheduleStore
	dir       Directory
	intents   *notify.Intents
	logger    *slog.Logger

	now func() time.Time
}

func New(ledger Ledger, schedules ScheduleStore, dir Directory, intents *notify.Intents, logger *slog.Logger) *Engine {
	return &Engine{
		ledger:    ledger,
		schedules: schedules,
		dir:       dir,
		intents:   intents,
		logger:    logger,
		now:       time.Now,
	}
}

// withinSchedule reports whether [start, end) lies inside the window of a
// single working day. Minutes are measured from local midnight of start's
// day, so an interval crossing midnight can never fit.
func withinSchedule(sched model.WorkSchedule, start time.Time, durationMinutes int) bool {
	startMinute := start.Hour()*60 + start.Minute()
	endMinute := startMinute + durationMinutes
	return startMinute >= sched.StartMinute && endMinute <= sched.EndMinute
}
