package apikey

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
	MaxNameLength    = 100
	MaxExpiresInDays = 365
)

// Store is the persistence needed by Service. Lookups return otto.ErrNotFound
// for missing rows.
type Store interface {
	CreateAPIKey(ctx context.Context, key otto.APIKey) (otto.APIKey, error)
	FindAPIKey(ctx context.Context, raw string) (otto.KeyOwner, error)
	TouchAPIKey(ctx context.Context, id int64, at time.Time) error
	ListAPIKeys(ctx context.Context, userID int64) ([]otto.APIKey, error)
	DeleteAPIKey(ctx context.Context, id, userID int64) error
	SetAPIKeyActive(ctx context.Context, id, userID int64, active bool) (otto.APIKey, error)
}

type Service struct {
	store  Store
	policy *policy.Policy
	audit  audit.Auditor
	log    *slog.Logger
	now    func() time.Time
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

func New(store Store, pol *policy.Policy, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: pol,
		audit:  audit.Discard,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify resolves a raw key to its principal. Every rejection is
// otto.ErrUnauthorized joined with the specific reason.
func (s *Service) Verify(ctx context.Context, raw string) (otto.Principal, error) {
	raw = strings.TrimSpace(raw)
	if !WellFormed(raw) {
		return otto.Principal{}, errors.Join(otto.ErrUnauthorized, ErrMalformedKey)
	}

	owner, err := s.store.FindAPIKey(ctx, raw)
	if err != nil {
		if errors.Is(err, otto.ErrNotFound) {
			return otto.Principal{}, errors.Join(otto.ErrUnauthorized, err)
		}
		return otto.Principal{}, err
	}

	now := s.now()
	switch {
	case !owner.Key.IsActive:
		return otto.Principal{}, errors.Join(otto.ErrUnauthorized, ErrKeyInactive)
	case owner.Key.Expired(now):
		return otto.Principal{}, errors.Join(otto.ErrUnauthorized, ErrKeyExpired)
	}

	pr := otto.Principal{
		UserID:   owner.Key.UserID,
		Username: owner.Username,
		Role:     owner.Role,
		Source:   otto.SourceAPIKey,
	}
	if !owner.UserAlive || !s.policy.Can(pr, policy.APIAccess) {
		return otto.Principal{}, errors.Join(otto.ErrUnauthorized, ErrOwnerBlocked)
	}

	if err := s.store.TouchAPIKey(ctx, owner.Key.ID, now.UTC()); err != nil {
		s.log.WarnContext(ctx, "failed to update api key last use",
			logger.Error(err),
			slog.Int64("api_key_id", owner.Key.ID),
		)
	}

	return pr, nil
}

// CreateInput describes a key to issue. ExpiresInDays zero means the key
// never expires.
type CreateInput struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days"`
}

// Issued is a freshly created key. Token is the raw key and is only
// available here.
type Issued struct {
	otto.APIKey
	Token string `json:"key"`
}

func (s *Service) Create(ctx context.Context, pr otto.Principal, in CreateInput) (Issued, error) {
	if err := s.policy.Require(pr, policy.APIKeysManage); err != nil {
		return Issued{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := otto.Validate(
		validator.Required("name", in.Name),
		validator.MaxLen("name", in.Name, MaxNameLength),
		validator.When(in.ExpiresInDays != 0, validator.Between("expires_in_days", in.ExpiresInDays, 1, MaxExpiresInDays)),
	); err != nil {
		return Issued{}, err
	}

	raw, err := Generate()
	if err != nil {
		return Issued{}, err
	}

	now := s.now().UTC()
	key := otto.APIKey{
		UserID:    pr.UserID,
		Name:      in.Name,
		Key:       raw,
		IsActive:  true,
		CreatedAt: now,
	}
	if in.ExpiresInDays > 0 {
		exp := now.AddDate(0, 0, in.ExpiresInDays)
		key.ExpiresAt = &exp
	}

	created, err := s.store.CreateAPIKey(ctx, key)
	if err != nil {
		s.audit.Failure(ctx, "api_key:create", audit.WithDetails(in.Name))
		return Issued{}, err
	}

	s.audit.Record(ctx, "api_key:create",
		audit.WithResource(resource(created.ID)),
		audit.WithDetails(in.Name),
	)
	return Issued{APIKey: created, Token: raw}, nil
}

// List returns the caller's own keys.
func (s *Service) List(ctx context.Context, pr otto.Principal) ([]otto.APIKey, error) {
	if err := s.policy.Require(pr, policy.APIKeysManage); err != nil {
		return nil, err
	}
	return s.store.ListAPIKeys(ctx, pr.UserID)
}

// Revoke deletes one of the caller's keys.
func (s *Service) Revoke(ctx context.Context, pr otto.Principal, id int64) error {
	if err := s.policy.Require(pr, policy.APIKeysManage); err != nil {
		return err
	}
	if err := s.store.DeleteAPIKey(ctx, id, pr.UserID); err != nil {
		s.audit.Failure(ctx, "api_key:delete", audit.WithResource(resource(id)))
		return err
	}
	s.audit.Record(ctx, "api_key:delete", audit.WithResource(resource(id)))
	return nil
}

// SetActive flips the active flag of one of the caller's keys.
func (s *Service) SetActive(ctx context.Context, pr otto.Principal, id int64, active bool) (otto.APIKey, error) {
	if err := s.policy.Require(pr, policy.APIKeysManage); err != nil {
		return otto.APIKey{}, err
	}
	key, err := s.store.SetAPIKeyActive(ctx, id, pr.UserID, active)
	if err != nil {
		return otto.APIKey{}, err
	}
	s.audit.Record(ctx, "api_key:toggle",
		audit.WithResource(resource(id)),
		audit.WithDetails("is_active="+strconv.FormatBool(active)),
	)
	return key, nil
}

func resource(id int64) string {
	return "api_key:" + strconv.FormatInt(id, 10)
}
