// Package storage is the pgx-backed persistence layer: the appointment
// ledger, the work-schedule store and the directory read model.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/appointly/appointly/libs/db"
	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
	"github.com/appointly/appointly/services/appointment-service/internal/outbox"
)

// Ledger owns appointment rows. The appointments table carries an exclusion
// constraint over (employee_id, [start_time, end_time)) for non-cancelled
// rows, which makes check-then-insert races lose with a 23P01 instead of
// double-booking.
type Ledger struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ engine.Ledger = (*Ledger)(nil)

func NewLedger(pool *db.Pool, outboxRepo *outbox.Repository) *Ledger {
	return &Ledger{pool: pool, outbox: outboxRepo}
}

const appointmentColumns = `
	id::text, customer_id::text, business_id::text, service_id::text, employee_id::text,
	start_time, end_time, price::text, status, owner_approved, employee_approved,
	payment_status, COALESCE(notes, ''), COALESCE(cancellation_reason, ''),
	reminder_sent, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.BusinessID, &a.ServiceID, &a.EmployeeID,
		&a.StartTime, &a.EndTime, &a.Price, &a.Status, &a.OwnerApproved, &a.EmployeeApproved,
		&a.PaymentStatus, &a.Notes, &a.CancellationReason,
		&a.ReminderSent, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (l *Ledger) Begin(ctx context.Context) (engine.LedgerTx, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &ledgerTx{tx: tx, outbox: l.outbox}, nil
}

func (l *Ledger) FindByID(ctx context.Context, id string) (model.Appointment, error) {
	row := l.pool.QueryRow(ctx, `SELECT`+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, engine.ErrNotFound)
	}
	return a, err
}

const overlapQuery = `
	SELECT` + appointmentColumns + `
	FROM appointments
	WHERE employee_id = $1
	  AND status <> 'cancelled'
	  AND start_time < $3
	  AND end_time > $2
	ORDER BY start_time ASC`

func (l *Ledger) FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]model.Appointment, error) {
	rows, err := l.pool.Query(ctx, overlapQuery, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (l *Ledger) FindByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE customer_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (l *Ledger) FindByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (l *Ledger) FindDueForReminder(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE reminder_sent = FALSE
		  AND start_time >= $1
		  AND start_time <= $2
		ORDER BY start_time ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

type ledgerTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

var _ engine.LedgerTx = (*ledgerTx)(nil)

func (t *ledgerTx) Insert(ctx context.Context, a *model.Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments
			(id, customer_id, business_id, service_id, employee_id, start_time, end_time,
			 price, status, owner_approved, employee_approved, payment_status, notes,
			 reminder_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, $13, $14, $15, $16)
	`, a.ID, a.CustomerID, a.BusinessID, a.ServiceID, a.EmployeeID, a.StartTime, a.EndTime,
		a.Price, a.Status, a.OwnerApproved, a.EmployeeApproved, a.PaymentStatus, a.Notes,
		a.ReminderSent, a.CreatedAt, a.UpdatedAt)
	if isExclusionViolation(err) {
		return fmt.Errorf("appointment interval taken: %w", engine.ErrConflict)
	}
	return err
}

func (t *ledgerTx) GetForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `SELECT`+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, engine.ErrNotFound)
	}
	return a, err
}

func (t *ledgerTx) FindOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]model.Appointment, error) {
	rows, err := t.tx.Query(ctx, overlapQuery, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (t *ledgerTx) Update(ctx context.Context, a *model.Appointment) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			owner_approved = $3,
			employee_approved = $4,
			payment_status = $5,
			notes = $6,
			cancellation_reason = $7,
			updated_at = $8
		WHERE id = $1
	`, a.ID, a.Status, a.OwnerApproved, a.EmployeeApproved, a.PaymentStatus, a.Notes,
		a.CancellationReason, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", a.ID, engine.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) MarkReminderSent(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = TRUE, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) AppendEvent(ctx context.Context, appointmentID, eventType string, payload []byte) error {
	return t.outbox.Insert(ctx, t.tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appointmentID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func (t *ledgerTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *ledgerTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// isExclusionViolation matches Postgres 23P01, raised by the no-overlap
// exclusion constraint on appointments.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
