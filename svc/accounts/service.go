package accounts

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/qrcode"
	"github.com/dmitrymomot/otto/svc/policy"
)

// Store is the account persistence needed by Service. Single-row lookups
// return otto.ErrNotFound when nothing matches.
type Store interface {
	CreateAccount(ctx context.Context, a otto.Account) (otto.Account, error)
	GetAccount(ctx context.Context, id, viewerID int64) (otto.Account, error)
	FindAccountsByRef(ctx context.Context, issuer *string, label string) ([]otto.Account, error)
	ListAccounts(ctx context.Context, f otto.AccountFilter) ([]otto.Account, error)
	UpdateVisibility(ctx context.Context, id int64, v otto.Visibility) (otto.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	IncrementCounter(ctx context.Context, id int64, c otto.Counter) error
	AddFavorite(ctx context.Context, userID, accountID int64) error
	RemoveFavorite(ctx context.Context, userID, accountID int64) error
}

// Cipher encrypts secrets at rest. *secrets.Cipher implements it.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

type Service struct {
	store  Store
	cipher Cipher
	policy *policy.Policy
	audit  audit.Auditor
	log    *slog.Logger
	now    func() time.Time
	qrSize int
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

// WithQRSize sets the edge length in pixels of rendered QR codes.
func WithQRSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.qrSize = size
		}
	}
}

func New(store Store, cipher Cipher, pol *policy.Policy, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cipher: cipher,
		policy: pol,
		audit:  audit.Discard,
		log:    slog.Default(),
		now:    time.Now,
		qrSize: qrcode.DefaultSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
