package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

type BookingParams struct {
	CustomerID string
	BusinessID string
	ServiceID  string
	EmployeeID string
	StartTime  time.Time
	Notes      string
}

// CreateAppointment validates the booking against the employee's schedule
// and existing appointments, then commits it in one transaction. Two
// concurrent bookings of intersecting intervals for the same employee cannot
// both succeed: the loser either sees the winner's committed row in the
// overlap check or is rejected by the ledger's exclusion constraint.
func (e *Engine) CreateAppointment(ctx context.Context, p BookingParams) (model.Appointment, error) {
	customer, ok, err := e.dir.GetUser(ctx, p.CustomerID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, fmt.Errorf("customer %s: %w", p.CustomerID, ErrNotFound)
	}
	if _, ok, err = e.dir.GetBusiness(ctx, p.BusinessID); err != nil {
		return model.Appointment{}, err
	} else if !ok {
		return model.Appointment{}, fmt.Errorf("business %s: %w", p.BusinessID, ErrNotFound)
	}
	svc, ok, err := e.dir.GetService(ctx, p.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, fmt.Errorf("service %s: %w", p.ServiceID, ErrNotFound)
	}
	if _, ok, err = e.dir.GetEmployee(ctx, p.EmployeeID); err != nil {
		return model.Appointment{}, err
	} else if !ok {
		return model.Appointment{}, fmt.Errorf("employee %s: %w", p.EmployeeID, ErrNotFound)
	}

	if svc.DurationMinutes <= 0 {
		return model.Appointment{}, fmt.Errorf("service %s has no duration: %w", p.ServiceID, ErrConflict)
	}
	endTime := p.StartTime.Add(time.Duration(svc.DurationMinutes) * time.Minute)

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	overlapping, err := tx.FindOverlapping(ctx, p.EmployeeID, p.StartTime, endTime)
	if err != nil {
		return model.Appointment{}, err
	}
	if len(overlapping) > 0 {
		return model.Appointment{}, fmt.Errorf("employee has a conflicting appointment: %w", ErrConflict)
	}

	sched, ok, err := e.schedules.FindActiveSchedule(ctx, p.EmployeeID, p.StartTime.Weekday())
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, fmt.Errorf("employee does not work this day: %w", ErrConflict)
	}
	if !withinSchedule(sched, p.StartTime, svc.DurationMinutes) {
		return model.Appointment{}, fmt.Errorf("appointment is outside work hours: %w", ErrConflict)
	}

	now := e.now()
	appt := model.Appointment{
		ID:            uuid.NewString(),
		CustomerID:    p.CustomerID,
		BusinessID:    p.BusinessID,
		ServiceID:     p.ServiceID,
		EmployeeID:    p.EmployeeID,
		StartTime:     p.StartTime,
		EndTime:       endTime,
		Price:         svc.Price,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Notes:         p.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := tx.Insert(ctx, &appt); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost the race: another booking committed between our overlap
			// check and the insert.
			return model.Appointment{}, fmt.Errorf("employee has a conflicting appointment: %w", ErrConflict)
		}
		return model.Appointment{}, err
	}

	// The booking stands on its own; a failed intent must not undo it.
	if err := e.intents.BookingCreated(ctx, tx, appt, customer); err != nil {
		e.logger.Error("failed to stage booking-created notification", "err", err, "appointment_id", appt.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	e.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"employee_id", appt.EmployeeID,
		"customer_id", appt.CustomerID,
		"start_time", appt.StartTime,
	)
	return appt, nil
}
