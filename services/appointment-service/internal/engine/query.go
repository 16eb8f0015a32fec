package engine

import (
	"context"
	"fmt"

	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

// GetAppointmentByID returns the appointment when the actor is its customer,
// the business owner or the assigned employee; everyone else is refused.
func (e *Engine) GetAppointmentByID(ctx context.Context, appointmentID, actorID string) (model.Appointment, error) {
	appt, err := e.ledger.FindByID(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	if actorID == appt.CustomerID {
		return appt, nil
	}
	biz, ok, err := e.dir.GetBusiness(ctx, appt.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	if ok && biz.OwnerID == actorID {
		return appt, nil
	}
	emp, ok, err := e.dir.GetEmployee(ctx, appt.EmployeeID)
	if err != nil {
		return model.Appointment{}, err
	}
	if ok && emp.UserID != "" && emp.UserID == actorID {
		return appt, nil
	}
	return model.Appointment{}, fmt.Errorf("you may not view this appointment: %w", ErrForbidden)
}

// ListCustomerAppointments returns the actor's own appointments.
func (e *Engine) ListCustomerAppointments(ctx context.Context, actorID string, limit int) ([]model.Appointment, error) {
	return e.ledger.FindByCustomer(ctx, actorID, limit)
}

// ListBusinessAppointments returns a business's appointments to its owner.
func (e *Engine) ListBusinessAppointments(ctx context.Context, businessID, actorID string, limit int) ([]model.Appointment, error) {
	biz, ok, err := e.dir.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("business %s: %w", businessID, ErrNotFound)
	}
	if biz.OwnerID != actorID {
		return nil, fmt.Errorf("only the business owner may list its appointments: %w", ErrForbidden)
	}
	return e.ledger.FindByBusiness(ctx, businessID, limit)
}
