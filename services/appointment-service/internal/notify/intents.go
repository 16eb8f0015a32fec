// Package notify turns engine outcomes into notification intents. Intents
// are appended to the transactional outbox; actual delivery happens in
// notifier-service, so a notification outage can never fail a booking.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

// Topic names double as Kafka topics; one event type per topic.
const (
	TopicBookingCreated   = "appointments.booking.created.v1"
	TopicBookingConfirmed = "appointments.booking.confirmed.v1"
	TopicBookingCancelled = "appointments.booking.cancelled.v1"
	TopicReminderDue      = "appointments.reminder.due.v1"
)

// Sink stages an intent inside the caller's unit of work. The ledger's
// transaction type implements it.
type Sink interface {
	AppendEvent(ctx context.Context, appointmentID, eventType string, payload []byte) error
}

type Intents struct {
	logger *slog.Logger
}

func NewIntents(logger *slog.Logger) *Intents {
	return &Intents{logger: logger}
}

// Payload is the common intent body. Recipient fields are resolved at intent
// time so the delivery side needs no access to the directory.
type Payload struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	CustomerID    string `json:"customer_id"`
	EmployeeID    string `json:"employee_id"`
	ServiceID     string `json:"service_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

func (i *Intents) BookingCreated(ctx context.Context, sink Sink, appt model.Appointment, customer model.User) error {
	return i.append(ctx, sink, TopicBookingCreated, appt, customer, "")
}

func (i *Intents) BookingConfirmed(ctx context.Context, sink Sink, appt model.Appointment, customer model.User) error {
	return i.append(ctx, sink, TopicBookingConfirmed, appt, customer, "")
}

func (i *Intents) BookingCancelled(ctx context.Context, sink Sink, appt model.Appointment, customer model.User, reason string) error {
	return i.append(ctx, sink, TopicBookingCancelled, appt, customer, reason)
}

func (i *Intents) ReminderDue(ctx context.Context, sink Sink, appt model.Appointment, customer model.User) error {
	return i.append(ctx, sink, TopicReminderDue, appt, customer, "")
}

func (i *Intents) append(ctx context.Context, sink Sink, topic string, appt model.Appointment, customer model.User, reason string) error {
	body, err := json.Marshal(Payload{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		CustomerID:    appt.CustomerID,
		EmployeeID:    appt.EmployeeID,
		ServiceID:     appt.ServiceID,
		CustomerName:  customer.FullName,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		StartTime:     appt.StartTime.UTC().Format(time.RFC3339),
		EndTime:       appt.EndTime.UTC().Format(time.RFC3339),
		Status:        string(appt.Status),
		Notes:         appt.Notes,
		Reason:        reason,
	})
	if err != nil {
		return err
	}
	if err := sink.AppendEvent(ctx, appt.ID, topic, body); err != nil {
		return err
	}
	i.logger.Debug("notification intent staged", "topic", topic, "appointment_id", appt.ID)
	return nil
}
