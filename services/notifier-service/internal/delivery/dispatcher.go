// Package delivery fans one intent out to every channel the customer has a
// contact for and records the outcome of each attempt.
package delivery

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/appointly/appointly/services/notifier-service/internal/email"
	"github.com/appointly/appointly/services/notifier-service/internal/message"
	"github.com/appointly/appointly/services/notifier-service/internal/sms"
	"github.com/appointly/appointly/services/notifier-service/internal/storage"
)

type DeliveryLog interface {
	Insert(ctx context.Context, d storage.Delivery) error
}

type Dispatcher struct {
	emailSender email.Sender
	smsSender   sms.Sender
	deliveries  DeliveryLog
	logger      *slog.Logger
}

func NewDispatcher(emailSender email.Sender, smsSender sms.Sender, deliveries DeliveryLog, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		emailSender: emailSender,
		smsSender:   smsSender,
		deliveries:  deliveries,
		logger:      logger,
	}
}

// Handle processes one consumed intent. A malformed payload is dropped after
// logging; there is no point replaying bytes that will never parse. Send
// failures are recorded per channel and do not fail the message, one dead
// SMS gateway must not block email delivery.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	in, err := message.ParseIntent(msg.Value)
	if err != nil {
		d.logger.Error("invalid intent payload", "err", err, "topic", msg.Topic)
		return nil
	}

	rendered, err := message.Render(msg.Topic, in)
	if err != nil {
		d.logger.Error("render failed", "err", err, "topic", msg.Topic)
		return nil
	}

	if in.CustomerEmail != "" {
		d.record(ctx, in, msg.Topic, "email", in.CustomerEmail, "smtp",
			d.emailSender.Send(in.CustomerEmail, rendered.Subject, rendered.Body))
	}
	if in.CustomerPhone != "" {
		d.record(ctx, in, msg.Topic, "sms", in.CustomerPhone, d.smsSender.ProviderID(),
			d.smsSender.Send(ctx, in.CustomerPhone, rendered.SMS))
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, in message.Intent, eventType, channel, recipient, providerID string, sendErr error) {
	entry := storage.Delivery{
		AppointmentID: in.AppointmentID,
		EventType:     eventType,
		Channel:       channel,
		Recipient:     recipient,
		ProviderID:    providerID,
		Status:        storage.StatusSent,
	}
	if sendErr != nil {
		entry.Status = storage.StatusFailed
		entry.FailureReason = sendErr.Error()
		d.logger.Error("delivery failed", "channel", channel, "appointment_id", in.AppointmentID, "err", sendErr)
	} else {
		d.logger.Info("delivery sent", "channel", channel, "appointment_id", in.AppointmentID, "event_type", eventType)
	}
	if err := d.deliveries.Insert(ctx, entry); err != nil {
		d.logger.Error("failed to persist delivery", "err", err, "appointment_id", in.AppointmentID)
	}
}
