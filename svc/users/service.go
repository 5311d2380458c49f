package users

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/validator"
	"github.com/dmitrymomot/otto/svc/policy"
	"github.com/dmitrymomot/otto/svc/session"
)

const (
	// BootstrapUsername is the admin seeded on first start. It cannot be deleted.
	BootstrapUsername = "admin"

	MinUsernameLength = 3
	MaxUsernameLength = 50
	MaxBulkUsers      = 100

	systemActor = "system"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._@-]+$`)

// Store is the user persistence needed by Service. CreateUser returns
// otto.ErrConflict for a taken username; lookups return otto.ErrNotFound.
type Store interface {
	ListUsers(ctx context.Context) ([]otto.User, error)
	CreateUser(ctx context.Context, u otto.User) (otto.User, error)
	GetUser(ctx context.Context, id int64) (otto.User, error)
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int64, error)
}

type Service struct {
	store  Store
	policy *policy.Policy
	audit  audit.Auditor
	log    *slog.Logger
	now    func() time.Time
	cost   int
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

// WithBcryptCost sets the hashing cost; values below session.MinBcryptCost are raised.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func New(store Store, pol *policy.Policy, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: pol,
		audit:  audit.Discard,
		log:    slog.Default(),
		now:    time.Now,
		cost:   session.MinBcryptCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every user, newest first.
func (s *Service) List(ctx context.Context, pr otto.Principal) ([]otto.User, error) {
	if err := s.policy.Require(pr, policy.UsersManage); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "users:list", audit.WithResource("users"))
	return users, nil
}

// CreateInput describes a new user.
type CreateInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in CreateInput) validate() (string, otto.Role, error) {
	username := strings.TrimSpace(in.Username)
	ve := make(otto.ValidationError)
	rules := append(usernameRules(username),
		validator.Required("password", in.Password),
		validator.MinLen("password", in.Password, session.MinPasswordLength),
		validator.MaxLen("password", in.Password, session.MaxPasswordLength),
	)
	if err := otto.Validate(rules...); err != nil {
		errors.As(err, &ve)
	}
	role, err := otto.ParseRole(in.Role)
	if err != nil {
		ve.Add("role", "must be admin or user")
	}
	return username, role, ve.Err()
}

func usernameRules(username string) []validator.Rule {
	return []validator.Rule{
		validator.Required("username", username),
		validator.MinLen("username", username, MinUsernameLength),
		validator.MaxLen("username", username, MaxUsernameLength),
		validator.Matches("username", username, usernamePattern, "may contain letters, digits and . _ @ - only"),
	}
}

// Create adds a user with the given password.
func (s *Service) Create(ctx context.Context, pr otto.Principal, in CreateInput) (otto.User, error) {
	if err := s.policy.Require(pr, policy.UsersManage); err != nil {
		return otto.User{}, err
	}
	username, role, err := in.validate()
	if err != nil {
		return otto.User{}, err
	}

	u, err := s.create(ctx, username, in.Password, role, pr.Username)
	if err != nil {
		if errors.Is(err, otto.ErrConflict) {
			s.audit.Failure(ctx, "users:create", audit.WithResource(username))
		}
		return otto.User{}, err
	}

	s.audit.Record(ctx, "users:create",
		audit.WithResource(u.Username),
		audit.WithDetails("created "+string(role)+" user"),
	)
	return u, nil
}

// CreateAdmin creates an admin without a calling principal, for the command
// line and first-start seeding.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (otto.User, error) {
	name, role, err := CreateInput{Username: username, Password: password, Role: string(otto.RoleAdmin)}.validate()
	if err != nil {
		return otto.User{}, err
	}
	u, err := s.create(ctx, name, password, role, systemActor)
	if err != nil {
		return otto.User{}, err
	}
	s.audit.Record(ctx, "users:create",
		audit.WithUsername(systemActor),
		audit.WithResource(u.Username),
		audit.WithDetails("created admin user"),
	)
	return u, nil
}

// EnsureAdmin seeds BootstrapUsername with password when no user exists.
// It reports whether a user was created; an empty password disables seeding.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	if _, err := s.CreateAdmin(ctx, BootstrapUsername, password); err != nil {
		if errors.Is(err, otto.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	s.log.InfoContext(ctx, "bootstrap admin created", logger.Username(BootstrapUsername))
	return true, nil
}

func (s *Service) create(ctx context.Context, username, password string, role otto.Role, createdBy string) (otto.User, error) {
	hash, err := session.HashPassword(password, s.cost)
	if err != nil {
		return otto.User{}, err
	}
	now := s.now().UTC()
	u, err := s.store.CreateUser(ctx, otto.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedBy:    createdBy,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, otto.ErrConflict) {
		return otto.User{}, errors.Join(errUsernameTaken, err)
	}
	return u, err
}

// BulkInput lists usernames to create with one role.
type BulkInput struct {
	Usernames []string `json:"usernames"`
	Role      string   `json:"role"`
}

// Credentials is a created user and its generated password.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type BulkError struct {
	Username string `json:"username"`
	Error    string `json:"error"`
}

type BulkSummary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

type BulkResult struct {
	Users   []Credentials `json:"users"`
	Errors  []BulkError   `json:"errors"`
	Summary BulkSummary   `json:"summary"`
}

// CreateBulk creates users with generated passwords. Usernames are trimmed
// and lowercased; each one succeeds or fails on its own.
func (s *Service) CreateBulk(ctx context.Context, pr otto.Principal, in BulkInput) (BulkResult, error) {
	if err := s.policy.Require(pr, policy.UsersManage); err != nil {
		return BulkResult{}, err
	}
	role, roleErr := otto.ParseRole(in.Role)
	if err := otto.Validate(
		validator.RequiredSlice("usernames", in.Usernames),
		validator.MaxLenSlice("usernames", in.Usernames, MaxBulkUsers),
	); err != nil {
		return BulkResult{}, err
	}
	if roleErr != nil {
		return BulkResult{}, roleErr
	}

	res := BulkResult{Users: []Credentials{}, Errors: []BulkError{}}
	for _, raw := range in.Usernames {
		username := strings.ToLower(strings.TrimSpace(raw))
		if err := otto.Validate(usernameRules(username)...); err != nil {
			var ve otto.ValidationError
			errors.As(err, &ve)
			res.Errors = append(res.Errors, BulkError{Username: nonEmpty(raw), Error: "username " + ve.Get("username")})
			continue
		}

		password, err := GeneratePassword()
		if err != nil {
			return BulkResult{}, err
		}
		u, err := s.create(ctx, username, password, role, pr.Username)
		if err != nil {
			msg := "failed to create user"
			if errors.Is(err, otto.ErrConflict) {
				msg = "username already exists"
			} else {
				s.log.ErrorContext(ctx, "bulk user creation failed", logger.Username(username), logger.Error(err))
			}
			res.Errors = append(res.Errors, BulkError{Username: raw, Error: msg})
			continue
		}

		res.Users = append(res.Users, Credentials{Username: u.Username, Password: password})
		s.audit.Record(ctx, "users:create",
			audit.WithResource(u.Username),
			audit.WithDetails("bulk creation, role "+string(role)),
		)
	}

	res.Summary = BulkSummary{Total: len(in.Usernames), Created: len(res.Users), Failed: len(res.Errors)}
	return res, nil
}

// Delete removes a user. The bootstrap admin and the caller cannot be deleted.
func (s *Service) Delete(ctx context.Context, pr otto.Principal, id int64) error {
	if err := s.policy.Require(pr, policy.UsersManage); err != nil {
		return err
	}

	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return notFound(err)
	}
	switch {
	case u.Username == BootstrapUsername:
		s.audit.Failure(ctx, "users:delete", audit.WithResource(u.Username))
		return errCannotDeleteRoot
	case u.ID == pr.UserID || u.Username == pr.Username:
		s.audit.Failure(ctx, "users:delete", audit.WithResource(u.Username))
		return errCannotDeleteSelf
	}

	if err := s.store.DeleteUser(ctx, u.ID); err != nil {
		return notFound(err)
	}
	s.audit.Record(ctx, "users:delete",
		audit.WithResource(u.Username),
		audit.WithDetails("user id "+strconv.FormatInt(u.ID, 10)),
	)
	return nil
}

func notFound(err error) error {
	if errors.Is(err, otto.ErrNotFound) {
		return errors.Join(errUserNotFound, err)
	}
	return err
}

func nonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(empty)"
	}
	return s
}
