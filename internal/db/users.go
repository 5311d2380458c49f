package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/otto"
)

type Users struct {
	db DBTX
}

const userColumns = `id, username, password_hash, role, created_by, is_active, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (otto.User, error) {
	var u otto.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedBy,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	return u, classify(err)
}

func (r *Users) CreateUser(ctx context.Context, u otto.User) (otto.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, role, created_by, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+userColumns,
		u.Username, u.PasswordHash, u.Role, u.CreatedBy, u.IsActive, u.CreatedAt, u.UpdatedAt,
	))
}

// FindUserByUsername matches the username exactly.
func (r *Users) FindUserByUsername(ctx context.Context, username string) (otto.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *Users) FindUserByID(ctx context.Context, id int64) (otto.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Users) GetUser(ctx context.Context, id int64) (otto.User, error) {
	return r.FindUserByID(ctx, id)
}

// ListUsers returns users newest first.
func (r *Users) ListUsers(ctx context.Context) ([]otto.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

func (r *Users) DeleteUser(ctx context.Context, id int64) error {
	return affected(r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}

func (r *Users) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

func (r *Users) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	return affected(r.db.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at))
}

func (r *Users) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return affected(r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash))
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
