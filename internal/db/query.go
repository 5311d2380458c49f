package db

import (
	"strconv"
	"strings"
)

// query accumulates SQL conditions with numbered placeholders.
type query struct {
	args  []any
	conds []string
}

// arg binds v and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) where(cond string) {
	q.conds = append(q.conds, cond)
}

func (q *query) clause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds an ILIKE pattern matching s anywhere.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
