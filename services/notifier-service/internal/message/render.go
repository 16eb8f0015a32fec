// Package message turns appointment intents into customer-facing text. The
// payload shape mirrors what appointment-service stages in its outbox; the
// services share the wire format, not Go types.
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TopicBookingCreated   = "appointments.booking.created.v1"
	TopicBookingConfirmed = "appointments.booking.confirmed.v1"
	TopicBookingCancelled = "appointments.booking.cancelled.v1"
	TopicReminderDue      = "appointments.reminder.due.v1"
)

type Intent struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	CustomerID    string `json:"customer_id"`
	EmployeeID    string `json:"employee_id"`
	ServiceID     string `json:"service_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
	Reason        string `json:"reason"`
}

func ParseIntent(raw []byte) (Intent, error) {
	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		return Intent{}, err
	}
	if in.AppointmentID == "" || in.CustomerID == "" || in.StartTime == "" {
		return Intent{}, fmt.Errorf("intent missing required fields")
	}
	return in, nil
}

type Rendered struct {
	Subject string
	Body    string
	SMS     string
}

// Render builds the per-topic text. Unknown topics are an error so a topic
// added upstream without a template here surfaces loudly.
func Render(topic string, in Intent) (Rendered, error) {
	when := in.StartTime
	if t, err := time.Parse(time.RFC3339, in.StartTime); err == nil {
		when = t.Format("Mon, 2 Jan 2006 at 15:04 MST")
	}

	switch topic {
	case TopicBookingCreated:
		return Rendered{
			Subject: "Booking received",
			Body: fmt.Sprintf("Hi %s,\n\nWe received your booking for %s. It is pending approval; we will confirm it shortly.\n",
				in.CustomerName, when),
			SMS: fmt.Sprintf("Booking received for %s, pending approval.", when),
		}, nil
	case TopicBookingConfirmed:
		return Rendered{
			Subject: "Booking confirmed",
			Body: fmt.Sprintf("Hi %s,\n\nYour appointment on %s is confirmed. See you then!\n",
				in.CustomerName, when),
			SMS: fmt.Sprintf("Your appointment on %s is confirmed.", when),
		}, nil
	case TopicBookingCancelled:
		body := fmt.Sprintf("Hi %s,\n\nYour appointment on %s was cancelled.\n", in.CustomerName, when)
		sms := fmt.Sprintf("Your appointment on %s was cancelled.", when)
		if in.Reason != "" {
			body = fmt.Sprintf("Hi %s,\n\nYour appointment on %s was cancelled: %s\n", in.CustomerName, when, in.Reason)
			sms = fmt.Sprintf("Your appointment on %s was cancelled: %s", when, in.Reason)
		}
		return Rendered{Subject: "Booking cancelled", Body: body, SMS: sms}, nil
	case TopicReminderDue:
		return Rendered{
			Subject: "Appointment reminder",
			Body: fmt.Sprintf("Hi %s,\n\nThis is a reminder for your appointment on %s.\n",
				in.CustomerName, when),
			SMS: fmt.Sprintf("Reminder: appointment on %s.", when),
		}, nil
	default:
		return Rendered{}, fmt.Errorf("no template for topic %s", topic)
	}
}
