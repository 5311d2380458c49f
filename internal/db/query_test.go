package db

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
)

func TestListAccountsQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filter   otto.AccountFilter
		contains []string
		args     []any
	}{
		{
			name:     "readable",
			filter:   otto.AccountFilter{Viewer: "alice", ViewerID: 2, Scope: otto.ScopeReadable},
			contains: []string{"f.user_id = $1", "(a.visibility = 'team' OR a.created_by = $2)"},
			args:     []any{int64(2), "alice"},
		},
		{
			name:     "team",
			filter:   otto.AccountFilter{Viewer: "alice", ViewerID: 2, Scope: otto.ScopeTeam},
			contains: []string{"WHERE a.visibility = 'team' ORDER BY"},
			args:     []any{int64(2)},
		},
		{
			name:     "private",
			filter:   otto.AccountFilter{Viewer: "alice", ViewerID: 2, Scope: otto.ScopePrivate},
			contains: []string{"a.visibility = 'private' AND a.created_by = $2"},
			args:     []any{int64(2), "alice"},
		},
		{
			name:     "owned with search and issuer",
			filter:   otto.AccountFilter{Viewer: "alice", ViewerID: 2, Scope: otto.ScopeOwned, Search: "50%_off", Issuer: "git"},
			contains: []string{"a.created_by = $2", "(a.label ILIKE $3 OR a.issuer ILIKE $3)", "a.issuer ILIKE $4"},
			args:     []any{int64(2), "alice", `%50\%\_off%`, "%git%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sql, args := listAccountsQuery(tt.filter)
			for _, want := range tt.contains {
				assert.Contains(t, sql, want)
			}
			assert.True(t, strings.HasSuffix(sql, "ORDER BY is_favorite DESC, a.created_at DESC, a.id DESC"))
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestListEventsQuery(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f, err := audit.Filter{Action: "login", Username: "ali", Start: &start}.Normalize()
	assert.NoError(t, err)

	sql, args := listEventsQuery(f)
	assert.Contains(t, sql, "WHERE action ILIKE $1 AND username ILIKE $2 AND created_at >= $3")
	assert.True(t, strings.HasSuffix(sql, "LIMIT $4 OFFSET $5"))
	assert.Equal(t, []any{"%login%", "%ali%", start, audit.DefaultLimit, 0}, args)

	sql, args = listEventsQuery(audit.Filter{Limit: 10})
	assert.NotContains(t, sql, "WHERE")
	assert.Equal(t, []any{10, 0}, args)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(pgx.ErrNoRows), otto.ErrNotFound)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "23505"}), otto.ErrConflict)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "23503"}), otto.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, classify(other))

	assert.ErrorIs(t, affected(pgconn.NewCommandTag("DELETE 0"), nil), otto.ErrNotFound)
	assert.NoError(t, affected(pgconn.NewCommandTag("DELETE 1"), nil))
}

func TestDigest(t *testing.T) {
	t.Parallel()

	d := digest("otto_0123456789abcdef0123456789abcdef")
	assert.Len(t, d, 64)
	assert.Equal(t, d, digest("otto_0123456789abcdef0123456789abcdef"))
	assert.NotEqual(t, d, digest("otto_0123456789abcdef0123456789abcdee"))
}
