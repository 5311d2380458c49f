package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/otto/pkg/audit"
)

const (
	statsActions = 20
	statsUsers   = 10
)

// Audit implements audit.Storage and audit.Reader on the audit_logs table.
type Audit struct {
	db DBTX
}

func NewAudit(db DBTX) *Audit {
	return &Audit{db: db}
}

var auditCopyColumns = []string{
	"username", "action", "resource", "details", "result",
	"ip_address", "user_agent", "request_id", "created_at",
}

// StoreBatch writes events with COPY.
func (r *Audit) StoreBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := r.db.CopyFrom(ctx, pgx.Identifier{"audit_logs"}, auditCopyColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.Username, e.Action, e.Resource, e.Details, string(e.Result),
				e.IP, e.UserAgent, e.RequestID, e.Timestamp}, nil
		}),
	)
	return err
}

func scanEvent(row pgx.Row) (audit.Event, error) {
	var e audit.Event
	err := row.Scan(&e.ID, &e.Username, &e.Action, &e.Resource, &e.Details, &e.Result,
		&e.IP, &e.UserAgent, &e.RequestID, &e.Timestamp)
	return e, classify(err)
}

// List returns matching events newest first.
func (r *Audit) List(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	sql, args := listEventsQuery(f)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanEvent)
}

// listEventsQuery expects a normalized filter. Action, username and resource
// are case-insensitive substring matches.
func listEventsQuery(f audit.Filter) (string, []any) {
	q := &query{}
	if f.Action != "" {
		q.where("action ILIKE " + q.arg(contains(f.Action)))
	}
	if f.Username != "" {
		q.where("username ILIKE " + q.arg(contains(f.Username)))
	}
	if f.Resource != "" {
		q.where("resource ILIKE " + q.arg(contains(f.Resource)))
	}
	if f.Start != nil {
		q.where("created_at >= " + q.arg(*f.Start))
	}
	if f.End != nil {
		q.where("created_at <= " + q.arg(*f.End))
	}

	sql := `SELECT id, username, action, resource, details, result, ip_address, user_agent, request_id, created_at
		FROM audit_logs` + q.clause() +
		` ORDER BY created_at DESC, id DESC LIMIT ` + q.arg(f.Limit) + ` OFFSET ` + q.arg(f.Offset)
	return sql, q.args
}

// Stats summarizes the log; Last24Hours counts events after since.
func (r *Audit) Stats(ctx context.Context, since time.Time) (audit.Stats, error) {
	st := audit.Stats{ByAction: map[string]int64{}, TopUsers: []audit.UserCount{}}

	err := r.db.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE created_at > $1),
		        count(*) FILTER (WHERE result = 'failure')
		 FROM audit_logs`, since,
	).Scan(&st.Total, &st.Last24Hours, &st.Failures)
	if err != nil {
		return audit.Stats{}, err
	}

	actions, err := r.counts(ctx, `SELECT action, count(*) FROM audit_logs
		GROUP BY action ORDER BY count(*) DESC, action LIMIT $1`, statsActions)
	if err != nil {
		return audit.Stats{}, err
	}
	for _, c := range actions {
		st.ByAction[c.key] = c.n
	}

	users, err := r.counts(ctx, `SELECT username, count(*) FROM audit_logs
		GROUP BY username ORDER BY count(*) DESC, username LIMIT $1`, statsUsers)
	if err != nil {
		return audit.Stats{}, err
	}
	for _, c := range users {
		st.TopUsers = append(st.TopUsers, audit.UserCount{Username: c.key, Count: c.n})
	}
	return st, nil
}

type count struct {
	key string
	n   int64
}

func (r *Audit) counts(ctx context.Context, sql string, args ...any) ([]count, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (count, error) {
		var c count
		err := row.Scan(&c.key, &c.n)
		return c, err
	})
}

func (r *Audit) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
