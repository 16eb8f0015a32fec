package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
	"github.com/appointly/appointly/services/appointment-service/internal/notify"
)

var sweepNow = time.Date(2026, time.September, 7, 8, 0, 0, 0, time.UTC)

type memLedger struct {
	appts    map[string]model.Appointment
	events   []string
	eventErr error
}

func (l *memLedger) Begin(ctx context.Context) (engine.LedgerTx, error) {
	return &memTx{ledger: l}, nil
}

func (l *memLedger) FindByID(ctx context.Context, id string) (model.Appointment, error) {
	appt, ok := l.appts[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, engine.ErrNotFound)
	}
	return appt, nil
}

func (l *memLedger) FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]model.Appointment, error) {
	return nil, nil
}

func (l *memLedger) FindByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error) {
	return nil, nil
}

func (l *memLedger) FindByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	return nil, nil
}

func (l *memLedger) FindDueForReminder(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range l.appts {
		if !a.ReminderSent && !a.StartTime.Before(from) && !a.StartTime.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

type memTx struct {
	ledger *memLedger
	staged []string
	marked []string
}

func (t *memTx) Insert(ctx context.Context, appt *model.Appointment) error { return nil }

func (t *memTx) GetForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	return t.ledger.FindByID(ctx, id)
}

func (t *memTx) FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]model.Appointment, error) {
	return nil, nil
}

func (t *memTx) Update(ctx context.Context, appt *model.Appointment) error { return nil }

func (t *memTx) MarkReminderSent(ctx context.Context, id string) error {
	t.marked = append(t.marked, id)
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, appointmentID, eventType string, payload []byte) error {
	if t.ledger.eventErr != nil {
		return t.ledger.eventErr
	}
	t.staged = append(t.staged, eventType)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.ledger.events = append(t.ledger.events, t.staged...)
	for _, id := range t.marked {
		appt := t.ledger.appts[id]
		appt.ReminderSent = true
		t.ledger.appts[id] = appt
	}
	t.staged, t.marked = nil, nil
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.staged, t.marked = nil, nil
	return nil
}

type memDirectory struct{}

func (memDirectory) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	if id == "ghost" {
		return model.User{}, false, nil
	}
	return model.User{ID: id, FullName: "Casey", Email: "casey@example.com"}, true, nil
}

func (memDirectory) GetBusiness(ctx context.Context, id string) (model.Business, bool, error) {
	return model.Business{}, false, nil
}

func (memDirectory) GetService(ctx context.Context, id string) (model.Service, bool, error) {
	return model.Service{}, false, nil
}

func (memDirectory) GetEmployee(ctx context.Context, id string) (model.Employee, bool, error) {
	return model.Employee{}, false, nil
}

type denyLocker struct{ acquired int }

func (l *denyLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.acquired++
	return false, nil
}

func (l *denyLocker) Release(ctx context.Context, name string) error { return nil }

func newTestSweeper(ledger *memLedger) *Sweeper {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSweeper(ledger, memDirectory{}, notify.NewIntents(logger), nil, logger)
	s.now = func() time.Time { return sweepNow }
	return s
}

func upcoming(id, customerID string, status model.Status, in time.Duration, sent bool) model.Appointment {
	return model.Appointment{
		ID:           id,
		CustomerID:   customerID,
		Status:       status,
		StartTime:    sweepNow.Add(in),
		EndTime:      sweepNow.Add(in + time.Hour),
		ReminderSent: sent,
	}
}

func TestRunOnceStagesRemindersExactlyOnce(t *testing.T) {
	ledger := &memLedger{appts: map[string]model.Appointment{
		"soon": upcoming("soon", "cust-1", model.StatusConfirmed, 2*time.Hour, false),
	}}
	s := newTestSweeper(ledger)

	staged, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if staged != 1 {
		t.Fatalf("staged = %d, want 1", staged)
	}
	if !ledger.appts["soon"].ReminderSent {
		t.Error("reminder_sent not flipped")
	}
	if len(ledger.events) != 1 || ledger.events[0] != notify.TopicReminderDue {
		t.Fatalf("events = %v, want one reminder intent", ledger.events)
	}

	// The hourly windows overlap; the flag keeps the second run silent.
	staged, err = s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if staged != 0 || len(ledger.events) != 1 {
		t.Fatalf("second run staged %d events (total %d), want 0 new", staged, len(ledger.events))
	}
}

func TestRunOnceSelectsOnlyConfirmedInWindow(t *testing.T) {
	ledger := &memLedger{appts: map[string]model.Appointment{
		"pending":   upcoming("pending", "cust-1", model.StatusPending, 2*time.Hour, false),
		"cancelled": upcoming("cancelled", "cust-1", model.StatusCancelled, 2*time.Hour, false),
		"far":       upcoming("far", "cust-1", model.StatusConfirmed, 48*time.Hour, false),
		"done":      upcoming("done", "cust-1", model.StatusConfirmed, 2*time.Hour, true),
		"due":       upcoming("due", "cust-1", model.StatusConfirmed, 23*time.Hour, false),
	}}
	s := newTestSweeper(ledger)

	staged, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if staged != 1 {
		t.Fatalf("staged = %d, want only the confirmed unmarked appointment", staged)
	}
	if ledger.appts["pending"].ReminderSent || ledger.appts["cancelled"].ReminderSent {
		t.Error("non-confirmed appointments must not be marked")
	}
	if !ledger.appts["due"].ReminderSent {
		t.Error("due appointment not marked")
	}
}

func TestRunOnceFailureLeavesReminderPending(t *testing.T) {
	ledger := &memLedger{
		appts: map[string]model.Appointment{
			"soon": upcoming("soon", "cust-1", model.StatusConfirmed, 2*time.Hour, false),
		},
		eventErr: errors.New("outbox unavailable"),
	}
	s := newTestSweeper(ledger)

	staged, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if staged != 0 {
		t.Fatalf("staged = %d, want 0 on failure", staged)
	}
	if ledger.appts["soon"].ReminderSent {
		t.Error("failed reminder must stay unmarked for the next run")
	}

	// Outbox recovers; the same appointment is retried.
	ledger.eventErr = nil
	staged, err = s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("retry RunOnce: %v", err)
	}
	if staged != 1 {
		t.Fatalf("retry staged = %d, want 1", staged)
	}
}

func TestRunOnceSkipsMissingCustomer(t *testing.T) {
	ledger := &memLedger{appts: map[string]model.Appointment{
		"orphan": upcoming("orphan", "ghost", model.StatusConfirmed, 2*time.Hour, false),
	}}
	s := newTestSweeper(ledger)

	staged, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if staged != 0 {
		t.Fatalf("staged = %d, want 0", staged)
	}
	if len(ledger.events) != 0 {
		t.Errorf("events = %v, want none", ledger.events)
	}
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	ledger := &memLedger{appts: map[string]model.Appointment{
		"soon": upcoming("soon", "cust-1", model.StatusConfirmed, 2*time.Hour, false),
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locker := &denyLocker{}
	s := NewSweeper(ledger, memDirectory{}, notify.NewIntents(logger), locker, logger)
	s.now = func() time.Time { return sweepNow }

	s.sweep(context.Background())
	if locker.acquired != 1 {
		t.Fatalf("lock attempts = %d, want 1", locker.acquired)
	}
	if len(ledger.events) != 0 {
		t.Error("sweep ran despite lock held elsewhere")
	}
}
