// Package storage records the delivery audit log. Every send attempt leaves
// a row, successful or not, so support can answer "did the customer get it".
package storage

import (
	"context"

	"github.com/appointly/appointly/libs/db"
)

type Delivery struct {
	AppointmentID string
	EventType     string
	Channel       string
	Recipient     string
	ProviderID    string
	Status        string
	FailureReason string
}

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

type DeliveryRepository struct {
	pool *db.Pool
}

func NewDeliveryRepository(pool *db.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

func (r *DeliveryRepository) Insert(ctx context.Context, d Delivery) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_deliveries
			(appointment_id, event_type, channel, recipient, provider_id, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.AppointmentID, d.EventType, d.Channel, d.Recipient, d.ProviderID, d.Status, d.FailureReason)
	return err
}
