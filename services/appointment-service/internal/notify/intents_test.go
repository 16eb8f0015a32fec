package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

type captureSink struct {
	appointmentID string
	eventType     string
	payload       []byte
}

func (s *captureSink) AppendEvent(ctx context.Context, appointmentID, eventType string, payload []byte) error {
	s.appointmentID = appointmentID
	s.eventType = eventType
	s.payload = payload
	return nil
}

func testAppointment() model.Appointment {
	return model.Appointment{
		ID:         "appt-1",
		CustomerID: "cust-1",
		BusinessID: "biz-1",
		ServiceID:  "svc-1",
		EmployeeID: "emp-1",
		StartTime:  time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, time.September, 7, 11, 0, 0, 0, time.UTC),
		Status:     model.StatusConfirmed,
	}
}

func TestBookingCancelledPayload(t *testing.T) {
	intents := NewIntents(slog.New(slog.NewTextHandler(io.Discard, nil)))
	sink := &captureSink{}
	customer := model.User{ID: "cust-1", FullName: "Casey Customer", Email: "casey@example.com", Phone: "+15550001"}

	appt := testAppointment()
	appt.Status = model.StatusCancelled
	if err := intents.BookingCancelled(context.Background(), sink, appt, customer, "double booked"); err != nil {
		t.Fatalf("BookingCancelled: %v", err)
	}

	if sink.eventType != TopicBookingCancelled {
		t.Errorf("event type = %s, want %s", sink.eventType, TopicBookingCancelled)
	}
	if sink.appointmentID != "appt-1" {
		t.Errorf("aggregate id = %s", sink.appointmentID)
	}

	var p Payload
	if err := json.Unmarshal(sink.payload, &p); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if p.CustomerEmail != "casey@example.com" || p.CustomerPhone != "+15550001" {
		t.Errorf("recipient fields not resolved: %+v", p)
	}
	if p.Reason != "double booked" {
		t.Errorf("reason = %q", p.Reason)
	}
	if p.StartTime != "2026-09-07T10:00:00Z" {
		t.Errorf("start_time = %q, want RFC3339 UTC", p.StartTime)
	}
	if p.Status != "cancelled" {
		t.Errorf("status = %q", p.Status)
	}
}

func TestReminderDueTopic(t *testing.T) {
	intents := NewIntents(slog.New(slog.NewTextHandler(io.Discard, nil)))
	sink := &captureSink{}

	err := intents.ReminderDue(context.Background(), sink, testAppointment(), model.User{ID: "cust-1", FullName: "Casey"})
	if err != nil {
		t.Fatalf("ReminderDue: %v", err)
	}
	if sink.eventType != TopicReminderDue {
		t.Errorf("event type = %s, want %s", sink.eventType, TopicReminderDue)
	}
}
