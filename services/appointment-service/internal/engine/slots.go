package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/appointly/appointly/services/appointment-service/internal/availability"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

// ComputeAvailableSlots lists the bookable slots of the given duration for
// an employee on a calendar day, ascending by start time. An employee who
// does not work that day yields an empty list, not an error. The result is a
// snapshot of current state; callers re-invoke for fresh data.
func (e *Engine) ComputeAvailableSlots(ctx context.Context, employeeID string, date time.Time, durationMinutes int) ([]model.Slot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", ErrConflict)
	}
	if _, ok, err := e.dir.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("employee %s: %w", employeeID, ErrNotFound)
	}

	sched, ok, err := e.schedules.FindActiveSchedule(ctx, employeeID, date.Weekday())
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Slot{}, nil
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	windowStart := midnight.Add(time.Duration(sched.StartMinute) * time.Minute)
	windowEnd := midnight.Add(time.Duration(sched.EndMinute) * time.Minute)

	booked, err := e.ledger.FindOverlapping(ctx, employeeID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	busy := make([]availability.Interval, 0, len(booked))
	for _, a := range booked {
		busy = append(busy, availability.Interval{Start: a.StartTime, End: a.EndTime})
	}

	duration := time.Duration(durationMinutes) * time.Minute
	free := availability.Slots(windowStart, windowEnd, duration, busy, e.now())

	slots := make([]model.Slot, 0, len(free))
	for _, s := range free {
		slots = append(slots, model.Slot{Start: s.Start, End: s.End})
	}
	return slots, nil
}
