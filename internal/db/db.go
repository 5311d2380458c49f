// Package db implements the service stores on PostgreSQL through pgx.
//
// Store satisfies the account, user, session, API key and backup store
// interfaces; Audit satisfies audit.Storage and audit.Reader. Missing rows
// are reported as otto.ErrNotFound and unique violations as
// otto.ErrConflict, each joined with the driver error.
package db

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/pg"
)

// Migrations holds the goose migrations under MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, cfg, Migrations, MigrationsDir, log)
}

// Store is the relational store for users, accounts and API keys.
type Store struct {
	*Users
	*Accounts
	*APIKeys
}

func New(db DBTX) *Store {
	return &Store{
		Users:    &Users{db: db},
		Accounts: &Accounts{db: db},
		APIKeys:  &APIKeys{db: db},
	}
}

// classify maps driver errors onto the root error kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return errors.Join(otto.ErrNotFound, err)
	case pg.IsDuplicateKeyError(err):
		return errors.Join(otto.ErrConflict, err)
	case pg.IsForeignKeyViolationError(err):
		return errors.Join(otto.ErrNotFound, err)
	}
	return err
}

// affected turns a zero-row write into otto.ErrNotFound.
func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return otto.ErrNotFound
	}
	return nil
}
