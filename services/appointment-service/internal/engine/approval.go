package engine

import (
	"context"
	"fmt"

	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

// ApproveByOwner records the business owner's approval. When the employee
// has already approved, the appointment transitions to confirmed and a
// confirmation intent is staged. Re-approving is a no-op, not an error.
func (e *Engine) ApproveByOwner(ctx context.Context, appointmentID, actorID string) (model.Appointment, error) {
	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := tx.GetForUpdate(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	biz, ok, err := e.dir.GetBusiness(ctx, appt.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, fmt.Errorf("business %s: %w", appt.BusinessID, ErrNotFound)
	}
	if biz.OwnerID != actorID {
		return model.Appointment{}, fmt.Errorf("only the business owner may approve: %w", ErrForbidden)
	}

	if appt.OwnerApproved {
		return appt, nil
	}
	if appt.Status != model.StatusPending {
		return model.Appointment{}, fmt.Errorf("appointment is not awaiting approval: %w", ErrConflict)
	}

	appt.OwnerApproved = true
	return e.finishApproval(ctx, tx, appt, actorID, "owner")
}

// ApproveByEmployee records the assigned employee's approval. The employee
// must be linked to a user account matching the actor.
func (e *Engine) ApproveByEmployee(ctx context.Context, appointmentID, actorID string) (model.Appointment, error) {
	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := tx.GetForUpdate(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	emp, ok, err := e.dir.GetEmployee(ctx, appt.EmployeeID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, fmt.Errorf("employee %s: %w", appt.EmployeeID, ErrNotFound)
	}
	if emp.UserID == "" {
		return model.Appointment{}, fmt.Errorf("appointment has no linked employee account: %w", ErrConflict)
	}
	if emp.UserID != actorID {
		return model.Appointment{}, fmt.Errorf("only the assigned employee may approve: %w", ErrForbidden)
	}

	if appt.EmployeeApproved {
		return appt, nil
	}
	if appt.Status != model.StatusPending {
		return model.Appointment{}, fmt.Errorf("appointment is not awaiting approval: %w", ErrConflict)
	}

	appt.EmployeeApproved = true
	return e.finishApproval(ctx, tx, appt, actorID, "employee")
}

// finishApproval persists an approval and, when it is the second of the
// pair, confirms the appointment. Runs inside the caller's row lock so two
// simultaneous approvals cannot both miss the confirmation.
func (e *Engine) finishApproval(ctx context.Context, tx LedgerTx, appt model.Appointment, actorID, role string) (model.Appointment, error) {
	confirmed := appt.OwnerApproved && appt.EmployeeApproved
	if confirmed {
		appt.Status = model.StatusConfirmed
	}
	appt.UpdatedAt = e.now()

	if err := tx.Update(ctx, &appt); err != nil {
		return model.Appointment{}, err
	}
	if confirmed {
		if customer, ok, err := e.dir.GetUser(ctx, appt.CustomerID); err == nil && ok {
			if err := e.intents.BookingConfirmed(ctx, tx, appt, customer); err != nil {
				e.logger.Error("failed to stage confirmation notification", "err", err, "appointment_id", appt.ID)
			}
		} else if err != nil {
			e.logger.Error("customer lookup failed for confirmation notification", "err", err, "appointment_id", appt.ID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	e.logger.Info("appointment approved",
		"appointment_id", appt.ID,
		"approved_by", role,
		"actor_id", actorID,
		"status", appt.Status,
	)
	return appt, nil
}

// UpdateAppointmentStatus is the generic transition used for cancellation
// and manual overrides. Only the customer or the business owner may call it.
// Terminal states are final; nothing returns a cancelled or completed
// appointment to pending or confirmed.
func (e *Engine) UpdateAppointmentStatus(ctx context.Context, appointmentID string, newStatus model.Status, actorID, reason string) (model.Appointment, error) {
	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := tx.GetForUpdate(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	biz, ok, err := e.dir.GetBusiness(ctx, appt.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, fmt.Errorf("business %s: %w", appt.BusinessID, ErrNotFound)
	}
	if actorID != appt.CustomerID && actorID != biz.OwnerID {
		return model.Appointment{}, fmt.Errorf("only the customer or the business owner may change the status: %w", ErrForbidden)
	}

	if newStatus == appt.Status {
		return appt, nil
	}
	if appt.Status.Terminal() {
		return model.Appointment{}, fmt.Errorf("appointment is already %s: %w", appt.Status, ErrConflict)
	}

	cancelled := false
	switch newStatus {
	case model.StatusCancelled:
		appt.Status = model.StatusCancelled
		appt.CancellationReason = reason
		cancelled = true
	case model.StatusCompleted:
		if appt.Status != model.StatusConfirmed {
			return model.Appointment{}, fmt.Errorf("only a confirmed appointment can be completed: %w", ErrConflict)
		}
		appt.Status = model.StatusCompleted
	case model.StatusConfirmed:
		if !appt.OwnerApproved || !appt.EmployeeApproved {
			return model.Appointment{}, fmt.Errorf("appointment has not been approved by both parties: %w", ErrConflict)
		}
		appt.Status = model.StatusConfirmed
	case model.StatusPending:
		return model.Appointment{}, fmt.Errorf("cannot return an appointment to pending: %w", ErrConflict)
	default:
		return model.Appointment{}, fmt.Errorf("unknown status %q: %w", newStatus, ErrConflict)
	}
	appt.UpdatedAt = e.now()

	if err := tx.Update(ctx, &appt); err != nil {
		return model.Appointment{}, err
	}
	if cancelled {
		if customer, ok, err := e.dir.GetUser(ctx, appt.CustomerID); err == nil && ok {
			if err := e.intents.BookingCancelled(ctx, tx, appt, customer, reason); err != nil {
				e.logger.Error("failed to stage cancellation notification", "err", err, "appointment_id", appt.ID)
			}
		} else if err != nil {
			e.logger.Error("customer lookup failed for cancellation notification", "err", err, "appointment_id", appt.ID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	e.logger.Info("appointment status changed",
		"appointment_id", appt.ID,
		"status", appt.Status,
		"actor_id", actorID,
	)
	return appt, nil
}
