package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/jwt"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/validator"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrUserInactive = errors.New("user is inactive")
	ErrInvalidRole  = errors.New("token carries an unknown role")
)

var errInvalidCredentials = otto.NewError(otto.ErrUnauthorized, "invalid username or password")

// Store is the user persistence needed by Service.
type Store interface {
	FindUserByUsername(ctx context.Context, username string) (otto.User, error)
	FindUserByID(ctx context.Context, id int64) (otto.User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64     `json:"uid"`
	Username string    `json:"username"`
	Role     otto.Role `json:"role"`
}

type Service struct {
	store  Store
	tokens *jwt.Service
	audit  audit.Auditor
	log    *slog.Logger
	now    func() time.Time
	ttl    time.Duration
	cost   int
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = max(cost, MinBcryptCost) }
}

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

func New(store Store, tokens *jwt.Service, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		audit:  audit.Discard,
		log:    slog.Default(),
		now:    time.Now,
		ttl:    DefaultTTL,
		cost:   MinBcryptCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL is the session lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Authenticate checks a username (case-sensitive) and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (otto.Principal, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		s.audit.Failure(ctx, "login", audit.WithUsername(username), audit.WithResource("auth"))
		return otto.Principal{}, err
	}

	if err := s.store.TouchLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.log.WarnContext(ctx, "failed to update last login", logger.Error(err), logger.Username(user.Username))
	}
	s.audit.Record(ctx, "login", audit.WithUsername(user.Username), audit.WithResource("auth"))

	return principalOf(user), nil
}

func (s *Service) authenticate(ctx context.Context, username, password string) (otto.User, error) {
	if username == "" || password == "" {
		burnCompare(password)
		return otto.User{}, errInvalidCredentials
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	switch {
	case errors.Is(err, otto.ErrNotFound):
		burnCompare(password)
		return otto.User{}, errors.Join(errInvalidCredentials, err)
	case err != nil:
		return otto.User{}, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return otto.User{}, errors.Join(errInvalidCredentials, errPasswordMismatch)
	}
	if !user.IsActive {
		return otto.User{}, errors.Join(errInvalidCredentials, ErrUserInactive)
	}
	return user, nil
}

// Logout records the end of a session. Tokens are stateless, so the
// transport drops the cookie and nothing is revoked here.
func (s *Service) Logout(ctx context.Context, pr otto.Principal) {
	if pr.Username == "" {
		return
	}
	s.audit.Record(ctx, "logout", audit.WithUsername(pr.Username), audit.WithResource("auth"))
}

// CreateToken signs a session token for pr and returns it with its expiry.
func (s *Service) CreateToken(pr otto.Principal) (string, time.Time, error) {
	reg := jwt.Expiring(s.now(), s.ttl)
	reg.Subject = pr.Username
	reg.Issuer = s.tokens.Issuer()

	token, err := s.tokens.Generate(Claims{
		RegisteredClaims: reg,
		UserID:           pr.UserID,
		Username:         pr.Username,
		Role:             pr.Role,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, reg.ExpiresAt.Time, nil
}

// VerifyToken returns the principal embedded in a valid token. Expired,
// tampered and malformed tokens all yield otto.ErrUnauthorized.
func (s *Service) VerifyToken(token string) (otto.Principal, error) {
	var claims Claims
	if err := s.tokens.Parse(token, &claims); err != nil {
		return otto.Principal{}, errors.Join(otto.ErrUnauthorized, err)
	}
	if claims.Username == "" || !claims.Role.Valid() {
		return otto.Principal{}, errors.Join(otto.ErrUnauthorized, ErrInvalidRole)
	}
	return otto.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Source:   otto.SourceSession,
	}, nil
}

// ChangePasswordInput is the body of a password change.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, pr otto.Principal, in ChangePasswordInput) error {
	if err := otto.Validate(
		validator.Required("current_password", in.CurrentPassword),
		validator.Required("new_password", in.NewPassword),
		validator.MinLen("new_password", in.NewPassword, MinPasswordLength),
		validator.MaxLen("new_password", in.NewPassword, MaxPasswordLength),
	); err != nil {
		return err
	}

	user, err := s.store.FindUserByID(ctx, pr.UserID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, in.CurrentPassword) {
		s.audit.Failure(ctx, "password_change", audit.WithResource("user:"+user.Username))
		return otto.Invalid("current_password", "is incorrect")
	}

	hash, err := HashPassword(in.NewPassword, s.cost)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, "password_change", audit.WithResource("user:"+user.Username))
	return nil
}

func principalOf(u otto.User) otto.Principal {
	return otto.Principal{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		Source:   otto.SourceSession,
	}
}
