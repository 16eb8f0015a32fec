// Package reminder runs the hourly sweep that stages reminder intents for
// confirmed appointments starting within the next 24 hours.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/appointly/appointly/libs/lock"
	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
	"github.com/appointly/appointly/services/appointment-service/internal/notify"
)

const (
	lockName = "reminder-sweep"
	// lockTTL outlives any plausible sweep; the lock is released eagerly.
	lockTTL = 10 * time.Minute
)

type Sweeper struct {
	ledger  engine.Ledger
	dir     engine.Directory
	intents *notify.Intents
	// locker is optional; without it every replica sweeps, which stays
	// correct (reminder_sent flips under a row lock) but wastes work.
	locker lock.Locker
	logger *slog.Logger

	interval time.Duration
	window   time.Duration
	now      func() time.Time
}

func NewSweeper(ledger engine.Ledger, dir engine.Directory, intents *notify.Intents, locker lock.Locker, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		dir:      dir,
		intents:  intents,
		locker:   locker,
		logger:   logger,
		interval: time.Hour,
		window:   24 * time.Hour,
		now:      time.Now,
	}
}

// Run sweeps once immediately, then on every interval tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, lockName, lockTTL)
		if err != nil {
			s.logger.Error("reminder sweep lock failed", "error", err)
			return
		}
		if !ok {
			s.logger.Debug("reminder sweep held by another replica")
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, lockName); err != nil {
				s.logger.Warn("reminder sweep lock release failed", "error", err)
			}
		}()
	}

	staged, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("reminder sweep failed", "error", err)
		return
	}
	if staged > 0 {
		s.logger.Info("reminder sweep done", "reminders_staged", staged)
	}
}

// RunOnce stages reminders for the current window and returns how many were
// staged. Each appointment is handled in its own transaction, so one failure
// never blocks the rest; failed items are retried on the next run because
// reminder_sent only flips on commit.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.ledger.FindDueForReminder(ctx, now, now.Add(s.window))
	if err != nil {
		return 0, err
	}

	staged := 0
	for _, appt := range due {
		if appt.Status != model.StatusConfirmed {
			continue
		}
		ok, err := s.remind(ctx, appt.ID)
		if err != nil {
			s.logger.Error("reminder failed", "appointment_id", appt.ID, "error", err)
			continue
		}
		if ok {
			staged++
		}
	}
	return staged, nil
}

func (s *Sweeper) remind(ctx context.Context, id string) (bool, error) {
	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// Re-read under the row lock; the snapshot from the sweep query may be
	// stale by the time we get here.
	appt, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return false, err
	}
	if appt.Status != model.StatusConfirmed || appt.ReminderSent {
		return false, nil
	}

	customer, ok, err := s.dir.GetUser(ctx, appt.CustomerID)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Warn("reminder skipped, customer missing", "appointment_id", appt.ID, "customer_id", appt.CustomerID)
		return false, nil
	}

	if err := s.intents.ReminderDue(ctx, tx, appt, customer); err != nil {
		return false, err
	}
	if err := tx.MarkReminderSent(ctx, appt.ID); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
