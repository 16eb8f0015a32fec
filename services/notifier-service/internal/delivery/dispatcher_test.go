package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/appointly/appointly/services/notifier-service/internal/message"
	"github.com/appointly/appointly/services/notifier-service/internal/storage"
)

type fakeEmail struct {
	sent []string
	err  error
}

func (f *fakeEmail) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) ProviderID() string { return "sms-fake" }

func (f *fakeSMS) Send(_ context.Context, to, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeLog struct {
	rows []storage.Delivery
}

func (f *fakeLog) Insert(_ context.Context, d storage.Delivery) error {
	f.rows = append(f.rows, d)
	return nil
}

func newTestDispatcher() (*Dispatcher, *fakeEmail, *fakeSMS, *fakeLog) {
	em := &fakeEmail{}
	sm := &fakeSMS{}
	lg := &fakeLog{}
	d := NewDispatcher(em, sm, lg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return d, em, sm, lg
}

func intentMessage(topic string, email, phone string) kafka.Message {
	value := `{"appointment_id":"appt-1","customer_id":"cust-1","customer_name":"Casey",` +
		`"customer_email":"` + email + `","customer_phone":"` + phone + `",` +
		`"start_time":"2026-09-07T10:00:00Z","end_time":"2026-09-07T11:00:00Z"}`
	return kafka.Message{Topic: topic, Value: []byte(value)}
}

func TestHandleDeliversToEveryChannel(t *testing.T) {
	d, em, sm, lg := newTestDispatcher()

	err := d.Handle(context.Background(), intentMessage(message.TopicBookingConfirmed, "casey@example.com", "+15550001"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(em.sent) != 1 || em.sent[0] != "casey@example.com" {
		t.Errorf("email sends = %v", em.sent)
	}
	if len(sm.sent) != 1 || sm.sent[0] != "+15550001" {
		t.Errorf("sms sends = %v", sm.sent)
	}
	if len(lg.rows) != 2 {
		t.Fatalf("delivery rows = %d, want 2", len(lg.rows))
	}
	for _, row := range lg.rows {
		if row.Status != storage.StatusSent {
			t.Errorf("row %+v not marked sent", row)
		}
		if row.AppointmentID != "appt-1" {
			t.Errorf("row %+v missing appointment id", row)
		}
	}
}

func TestHandleSkipsMissingContacts(t *testing.T) {
	d, em, sm, lg := newTestDispatcher()

	if err := d.Handle(context.Background(), intentMessage(message.TopicReminderDue, "casey@example.com", "")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(em.sent) != 1 || len(sm.sent) != 0 {
		t.Errorf("sends: email=%v sms=%v", em.sent, sm.sent)
	}
	if len(lg.rows) != 1 {
		t.Errorf("delivery rows = %d, want 1", len(lg.rows))
	}
}

func TestHandleRecordsFailureWithoutFailingMessage(t *testing.T) {
	d, em, sm, lg := newTestDispatcher()
	sm.err = errors.New("gateway down")

	err := d.Handle(context.Background(), intentMessage(message.TopicBookingCancelled, "casey@example.com", "+15550001"))
	if err != nil {
		t.Fatalf("Handle must not fail on a channel error: %v", err)
	}
	if len(em.sent) != 1 {
		t.Errorf("email sends = %v, sms outage must not block email", em.sent)
	}

	var failed *storage.Delivery
	for i := range lg.rows {
		if lg.rows[i].Channel == "sms" {
			failed = &lg.rows[i]
		}
	}
	if failed == nil {
		t.Fatal("no sms delivery row recorded")
	}
	if failed.Status != storage.StatusFailed || failed.FailureReason == "" {
		t.Errorf("sms row = %+v, want failed with reason", *failed)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	d, em, _, lg := newTestDispatcher()

	err := d.Handle(context.Background(), kafka.Message{Topic: message.TopicBookingCreated, Value: []byte("not json")})
	if err != nil {
		t.Fatalf("malformed payload must be dropped, not retried: %v", err)
	}
	if len(em.sent) != 0 || len(lg.rows) != 0 {
		t.Error("malformed payload produced deliveries")
	}
}
