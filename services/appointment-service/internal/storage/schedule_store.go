package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/appointly/appointly/libs/db"
	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

// ScheduleStore reads and rewrites weekly availability windows. The table
// enforces at most one row per (employee, weekday); a rewrite replaces the
// whole week atomically so availability never reflects a half-applied edit.
type ScheduleStore struct {
	pool *db.Pool
}

var _ engine.ScheduleStore = (*ScheduleStore)(nil)

func NewScheduleStore(pool *db.Pool) *ScheduleStore {
	return &ScheduleStore{pool: pool}
}

func (s *ScheduleStore) FindActiveSchedule(ctx context.Context, employeeID string, weekday time.Weekday) (model.WorkSchedule, bool, error) {
	var ws model.WorkSchedule
	var wd int
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, employee_id::text, weekday, start_minute, end_minute, active
		FROM work_schedules
		WHERE employee_id = $1 AND weekday = $2 AND active = TRUE
	`, employeeID, int(weekday)).Scan(&ws.ID, &ws.EmployeeID, &wd, &ws.StartMinute, &ws.EndMinute, &ws.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WorkSchedule{}, false, nil
	}
	if err != nil {
		return model.WorkSchedule{}, false, err
	}
	ws.Weekday = time.Weekday(wd)
	return ws, true, nil
}

func (s *ScheduleStore) ListByEmployee(ctx context.Context, employeeID string) ([]model.WorkSchedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, employee_id::text, weekday, start_minute, end_minute, active
		FROM work_schedules
		WHERE employee_id = $1
		ORDER BY weekday ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkSchedule
	for rows.Next() {
		var ws model.WorkSchedule
		var wd int
		if err := rows.Scan(&ws.ID, &ws.EmployeeID, &wd, &ws.StartMinute, &ws.EndMinute, &ws.Active); err != nil {
			return nil, err
		}
		ws.Weekday = time.Weekday(wd)
		out = append(out, ws)
	}
	return out, rows.Err()
}

// ReplaceForEmployee swaps the employee's whole weekly schedule in one
// transaction. Windows absent from the new set are removed, so a weekday
// without a row means the employee does not work that day.
func (s *ScheduleStore) ReplaceForEmployee(ctx context.Context, employeeID string, windows []model.WorkSchedule) ([]model.WorkSchedule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM work_schedules WHERE employee_id = $1`, employeeID); err != nil {
		return nil, err
	}

	out := make([]model.WorkSchedule, 0, len(windows))
	for _, w := range windows {
		w.ID = uuid.NewString()
		w.EmployeeID = employeeID
		if _, err := tx.Exec(ctx, `
			INSERT INTO work_schedules (id, employee_id, weekday, start_minute, end_minute, active)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, w.ID, w.EmployeeID, int(w.Weekday), w.StartMinute, w.EndMinute, w.Active); err != nil {
			return nil, err
		}
		out = append(out, w)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
