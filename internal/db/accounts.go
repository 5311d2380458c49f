package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/otto"
)

type Accounts struct {
	db DBTX
}

const accountColumns = `a.id, a.label, a.issuer, a.secret, a.algorithm, a.digits, a.period, a.visibility,
	a.created_by, a.icon_identifier, a.category, a.view_count, a.copy_count, a.created_at, a.updated_at`

func scanAccount(row pgx.Row) (otto.Account, error) {
	var a otto.Account
	err := row.Scan(&a.ID, &a.Label, &a.Issuer, &a.Secret, &a.Algorithm, &a.Digits, &a.Period,
		&a.Visibility, &a.CreatedBy, &a.IconIdentifier, &a.Category, &a.ViewCount, &a.CopyCount,
		&a.CreatedAt, &a.UpdatedAt, &a.IsFavorite)
	return a, classify(err)
}

func (r *Accounts) CreateAccount(ctx context.Context, a otto.Account) (otto.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO accounts AS a (label, issuer, secret, algorithm, digits, period, visibility,
		     created_by, icon_identifier, category, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+accountColumns+`, false`,
		a.Label, a.Issuer, a.Secret, a.Algorithm, a.Digits, a.Period, a.Visibility,
		a.CreatedBy, a.IconIdentifier, a.Category, a.CreatedAt, a.UpdatedAt,
	))
}

// GetAccount loads one account with the favorite flag of viewerID.
func (r *Accounts) GetAccount(ctx context.Context, id, viewerID int64) (otto.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+`, f.user_id IS NOT NULL
		 FROM accounts a
		 LEFT JOIN favorites f ON f.account_id = a.id AND f.user_id = $2
		 WHERE a.id = $1`, id, viewerID))
}

// FindAccountsByRef matches issuer and label case-insensitively, oldest
// first. A nil issuer matches on the label alone.
func (r *Accounts) FindAccountsByRef(ctx context.Context, issuer *string, label string) ([]otto.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+`, false
		 FROM accounts a
		 WHERE ($1::text IS NULL OR lower(a.issuer) = lower($1)) AND lower(a.label) = lower($2)
		 ORDER BY a.id`, issuer, label)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccount)
}

func (r *Accounts) ListAccounts(ctx context.Context, f otto.AccountFilter) ([]otto.Account, error) {
	sql, args := listAccountsQuery(f)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccount)
}

// listAccountsQuery selects the accounts in f's scope, favorites of the
// viewer first, then newest first.
func listAccountsQuery(f otto.AccountFilter) (string, []any) {
	q := &query{}
	fav := q.arg(f.ViewerID)

	switch f.Scope {
	case otto.ScopeTeam:
		q.where("a.visibility = 'team'")
	case otto.ScopePrivate:
		q.where("a.visibility = 'private' AND a.created_by = " + q.arg(f.Viewer))
	case otto.ScopeOwned:
		q.where("a.created_by = " + q.arg(f.Viewer))
	default:
		q.where("(a.visibility = 'team' OR a.created_by = " + q.arg(f.Viewer) + ")")
	}
	if f.Search != "" {
		p := q.arg(contains(f.Search))
		q.where("(a.label ILIKE " + p + " OR a.issuer ILIKE " + p + ")")
	}
	if f.Issuer != "" {
		q.where("a.issuer ILIKE " + q.arg(contains(f.Issuer)))
	}

	sql := `SELECT ` + accountColumns + `, f.user_id IS NOT NULL AS is_favorite
		FROM accounts a
		LEFT JOIN favorites f ON f.account_id = a.id AND f.user_id = ` + fav +
		q.clause() +
		` ORDER BY is_favorite DESC, a.created_at DESC, a.id DESC`
	return sql, q.args
}

// ListAllAccounts returns every account for backups.
func (r *Accounts) ListAllAccounts(ctx context.Context) ([]otto.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+`, false FROM accounts a ORDER BY a.id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccount)
}

func (r *Accounts) UpdateVisibility(ctx context.Context, id int64, v otto.Visibility) (otto.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`UPDATE accounts AS a SET visibility = $2, updated_at = now()
		 WHERE a.id = $1
		 RETURNING `+accountColumns+`, false`, id, v))
}

func (r *Accounts) DeleteAccount(ctx context.Context, id int64) error {
	return affected(r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id))
}

// IncrementCounter bumps one usage counter. Concurrent increments are
// serialized by the row lock of the update.
func (r *Accounts) IncrementCounter(ctx context.Context, id int64, c otto.Counter) error {
	var column string
	switch c {
	case otto.CounterView:
		column = "view_count"
	case otto.CounterCopy:
		column = "copy_count"
	default:
		return fmt.Errorf("unknown counter %q", c)
	}
	return affected(r.db.Exec(ctx,
		`UPDATE accounts SET `+column+` = `+column+` + 1 WHERE id = $1`, id))
}

func (r *Accounts) AddFavorite(ctx context.Context, userID, accountID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO favorites (user_id, account_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, accountID)
	return classify(err)
}

func (r *Accounts) RemoveFavorite(ctx context.Context, userID, accountID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND account_id = $2`, userID, accountID)
	return err
}
