package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/appointly/appointly/libs/db"
	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

// Directory is the read model over users, businesses, services and
// employees. Bookings only ever look these up by id, so a missing row comes
// back as (zero, false, nil) and the caller names the entity in its error.
type Directory struct {
	pool *db.Pool
}

var _ engine.Directory = (*Directory)(nil)

func NewDirectory(pool *db.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	var u model.User
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, full_name, email, COALESCE(phone, '')
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.FullName, &u.Email, &u.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	return u, true, nil
}

func (d *Directory) GetBusiness(ctx context.Context, id string) (model.Business, bool, error) {
	var b model.Business
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, name
		FROM businesses
		WHERE id = $1
	`, id).Scan(&b.ID, &b.OwnerID, &b.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Business{}, false, nil
	}
	if err != nil {
		return model.Business{}, false, err
	}
	return b, true, nil
}

func (d *Directory) GetService(ctx context.Context, id string) (model.Service, bool, error) {
	var s model.Service
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price::text
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Service{}, false, nil
	}
	if err != nil {
		return model.Service{}, false, err
	}
	return s, true, nil
}

func (d *Directory) GetEmployee(ctx context.Context, id string) (model.Employee, bool, error) {
	var e model.Employee
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, COALESCE(user_id::text, ''), name, email, is_active
		FROM employees
		WHERE id = $1
	`, id).Scan(&e.ID, &e.BusinessID, &e.UserID, &e.Name, &e.Email, &e.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Employee{}, false, nil
	}
	if err != nil {
		return model.Employee{}, false, err
	}
	return e, true, nil
}
