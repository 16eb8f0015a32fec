package message

import (
	"strings"
	"testing"
)

func sampleIntent() Intent {
	return Intent{
		AppointmentID: "appt-1",
		CustomerID:    "cust-1",
		CustomerName:  "Casey",
		CustomerEmail: "casey@example.com",
		StartTime:     "2026-09-07T10:00:00Z",
		EndTime:       "2026-09-07T11:00:00Z",
	}
}

func TestParseIntentRequiresCoreFields(t *testing.T) {
	if _, err := ParseIntent([]byte(`{"customer_id":"cust-1"}`)); err == nil {
		t.Error("intent without appointment_id accepted")
	}
	if _, err := ParseIntent([]byte(`not json`)); err == nil {
		t.Error("malformed JSON accepted")
	}
	in, err := ParseIntent([]byte(`{"appointment_id":"a","customer_id":"c","start_time":"2026-09-07T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("valid intent rejected: %v", err)
	}
	if in.AppointmentID != "a" {
		t.Errorf("appointment id = %q", in.AppointmentID)
	}
}

func TestRenderPerTopic(t *testing.T) {
	in := sampleIntent()
	for topic, want := range map[string]string{
		TopicBookingCreated:   "pending approval",
		TopicBookingConfirmed: "confirmed",
		TopicReminderDue:      "reminder",
	} {
		r, err := Render(topic, in)
		if err != nil {
			t.Fatalf("Render(%s): %v", topic, err)
		}
		if !strings.Contains(strings.ToLower(r.Body), want) {
			t.Errorf("%s body %q missing %q", topic, r.Body, want)
		}
		if r.Subject == "" || r.SMS == "" {
			t.Errorf("%s rendered empty subject or sms", topic)
		}
		if !strings.Contains(r.Body, "Casey") {
			t.Errorf("%s body does not address the customer", topic)
		}
	}
}

func TestRenderCancellationReason(t *testing.T) {
	in := sampleIntent()
	in.Reason = "staff illness"
	r, err := Render(TopicBookingCancelled, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(r.Body, "staff illness") || !strings.Contains(r.SMS, "staff illness") {
		t.Errorf("reason not rendered: body=%q sms=%q", r.Body, r.SMS)
	}
}

func TestRenderUnknownTopic(t *testing.T) {
	if _, err := Render("appointments.unknown.v1", sampleIntent()); err == nil {
		t.Error("unknown topic rendered without error")
	}
}

func TestRenderFormatsStartTime(t *testing.T) {
	r, err := Render(TopicReminderDue, sampleIntent())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(r.Body, "Mon, 7 Sep 2026") {
		t.Errorf("body %q does not carry the friendly date", r.Body)
	}
}
