// Package auditlog exposes the stored audit trail to admins and lets any
// authenticated principal append client-side events to it.
package auditlog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/validator"
	"github.com/dmitrymomot/otto/svc/policy"
)

const (
	DefaultRetention  = 48 * time.Hour
	MaxActionLength   = 100
	MaxResourceLength = 255
	MaxDetailsLength  = 2000
)

type Service struct {
	reader    audit.Reader
	policy    *policy.Policy
	audit     audit.Auditor
	log       *slog.Logger
	now       func() time.Time
	retention time.Duration
}

type Option func(*Service)

func WithAuditor(a audit.Auditor) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetention sets how old an event must be before Cleanup removes it.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

func New(reader audit.Reader, pol *policy.Policy, opts ...Option) *Service {
	s := &Service{
		reader:    reader,
		policy:    pol,
		audit:     audit.Discard,
		log:       slog.Default(),
		now:       time.Now,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retention is the age past which events are removed.
func (s *Service) Retention() time.Duration { return s.retention }

// Query is the filter accepted by List.
type Query struct {
	Action   string     `query:"action"`
	Username string     `query:"username"`
	Resource string     `query:"resource"`
	Start    *time.Time `query:"start"`
	End      *time.Time `query:"end"`
	Limit    int        `query:"limit"`
	Offset   int        `query:"offset"`
	Stats    bool       `query:"stats"`
}

// Page is one page of events, with aggregate stats when they were asked for.
type Page struct {
	Logs   []audit.Event `json:"logs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Stats  *audit.Stats  `json:"stats,omitempty"`
}

// List returns events newest first.
func (s *Service) List(ctx context.Context, pr otto.Principal, q Query) (Page, error) {
	if err := s.policy.Require(pr, policy.AuditRead); err != nil {
		return Page{}, err
	}

	filter, err := audit.Filter{
		Action:   strings.TrimSpace(q.Action),
		Username: strings.TrimSpace(q.Username),
		Resource: strings.TrimSpace(q.Resource),
		Start:    q.Start,
		End:      q.End,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}.Normalize()
	if err != nil {
		return Page{}, errors.Join(otto.Invalid("end", "must not be before start"), err)
	}

	events, err := s.reader.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	if events == nil {
		events = []audit.Event{}
	}

	page := Page{Logs: events, Limit: filter.Limit, Offset: filter.Offset}
	if q.Stats {
		stats, err := s.reader.Stats(ctx, s.now().UTC().Add(-24*time.Hour))
		if err != nil {
			return Page{}, err
		}
		page.Stats = &stats
	}
	return page, nil
}

// LogInput is a client-reported event.
type LogInput struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Details  string `json:"details"`
}

// Log records a client-reported event under pr's name.
func (s *Service) Log(ctx context.Context, pr otto.Principal, in LogInput) error {
	if err := s.policy.Require(pr, policy.AuditLog); err != nil {
		return err
	}

	in.Action = strings.TrimSpace(in.Action)
	in.Resource = strings.TrimSpace(in.Resource)
	if err := otto.Validate(
		validator.Required("action", in.Action),
		validator.MaxLen("action", in.Action, MaxActionLength),
		validator.MaxLen("resource", in.Resource, MaxResourceLength),
		validator.MaxLen("details", in.Details, MaxDetailsLength),
	); err != nil {
		return err
	}

	s.audit.Record(ctx, in.Action,
		audit.WithUsername(pr.Username),
		audit.WithResource(in.Resource),
		audit.WithDetails(in.Details),
	)
	return nil
}

// CleanupResult reports a manual retention sweep.
type CleanupResult struct {
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}

// Cleanup deletes events older than the retention period.
func (s *Service) Cleanup(ctx context.Context, pr otto.Principal) (CleanupResult, error) {
	if err := s.policy.Require(pr, policy.AuditCleanup); err != nil {
		return CleanupResult{}, err
	}

	now := s.now().UTC()
	n, err := audit.Cleanup(ctx, s.reader, s.retention, now)
	if err != nil {
		s.log.ErrorContext(ctx, "audit cleanup failed", logger.Error(err), logger.Component("audit"))
		return CleanupResult{}, err
	}

	s.audit.Record(ctx, "audit:cleanup",
		audit.WithResource("audit_logs"),
		audit.WithDetails("deleted="+strconv.FormatInt(n, 10)),
	)
	return CleanupResult{Deleted: n, Cutoff: now.Add(-s.retention)}, nil
}
