// Package backup produces admin snapshots of the store: users without
// password hashes, accounts with their secrets still encrypted, and API key
// metadata without raw keys. Snapshots are downloaded directly or uploaded
// to S3.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/blobstore"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/svc/policy"
)

const (
	FormatVersion = 1
	ContentType   = "application/json"
)

var errUploadDisabled = otto.NewError(otto.ErrNotFound, "S3 backup is not configured")

type Store interface {
	ListUsers(ctx context.Context) ([]otto.User, error)
	ListAllAccounts(ctx context.Context) ([]otto.Account, error)
	ListAllAPIKeys(ctx context.Context) ([]otto.APIKey, error)
}

// Uploader stores snapshot bodies. *blobstore.Store implements it.
type Uploader interface {
	Put(ctx context.Context, name, contentType string, data []byte) (blobstore.Object, error)
}

// AccountRecord is an account with its secret blob as stored.
type AccountRecord struct {
	otto.Account
	Secret string `json:"secret"`
}

type Snapshot struct {
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by"`
	Users     []otto.User     `json:"users"`
	Accounts  []AccountRecord `json:"accounts"`
	APIKeys   []otto.APIKey   `json:"api_keys"`
}

// Filename is the download name of the snapshot.
func (s Snapshot) Filename() string {
	return "otto-backup-" + s.CreatedAt.UTC().Format("20060102T150405Z") + ".json"
}

// Encode renders the snapshot as indented JSON.
func (s Snapshot) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

type Service struct {
	store    Store
	policy   *policy.Policy
	uploader Uploader
	audit    audit.Auditor
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithUploader enables Upload. A nil uploader leaves it disabled.
func WithUploader(u Uploader) Option {
	return func(s *Service) { s.uploader = u }
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

// UploadEnabled reports whether an uploader is configured.
func (s *Service) UploadEnabled() bool { return s.uploader != nil }

// Snapshot collects a snapshot for download.
func (s *Service) Snapshot(ctx context.Context, pr otto.Principal) (Snapshot, error) {
	if err := s.policy.Require(pr, policy.BackupRead); err != nil {
		return Snapshot{}, err
	}
	snap, err := s.collect(ctx, pr)
	if err != nil {
		return Snapshot{}, err
	}
	s.audit.Record(ctx, "backup:download",
		audit.WithResource("backup"),
		audit.WithDetails(summary(snap)),
	)
	return snap, nil
}

// Upload stores a fresh snapshot through the uploader.
func (s *Service) Upload(ctx context.Context, pr otto.Principal) (blobstore.Object, error) {
	if err := s.policy.Require(pr, policy.BackupUpload); err != nil {
		return blobstore.Object{}, err
	}
	if s.uploader == nil {
		return blobstore.Object{}, errUploadDisabled
	}

	snap, err := s.collect(ctx, pr)
	if err != nil {
		return blobstore.Object{}, err
	}
	body, err := snap.Encode()
	if err != nil {
		return blobstore.Object{}, err
	}

	name := snap.CreatedAt.UTC().Format("2006/01/02/") + uuid.NewString() + ".json"
	obj, err := s.uploader.Put(ctx, name, ContentType, body)
	if err != nil {
		s.log.ErrorContext(ctx, "backup upload failed", logger.Error(err), logger.Component("backup"))
		s.audit.Failure(ctx, "backup:upload", audit.WithResource("backup"))
		if errors.Is(err, blobstore.ErrDisabled) {
			return blobstore.Object{}, errors.Join(errUploadDisabled, err)
		}
		return blobstore.Object{}, err
	}

	s.audit.Record(ctx, "backup:upload",
		audit.WithResource("s3://"+obj.Bucket+"/"+obj.Key),
		audit.WithDetails(summary(snap)+" size="+strconv.Itoa(obj.Size)),
	)
	return obj, nil
}

func (s *Service) collect(ctx context.Context, pr otto.Principal) (Snapshot, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	accounts, err := s.store.ListAllAccounts(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	keys, err := s.store.ListAllAPIKeys(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	records := make([]AccountRecord, len(accounts))
	for i, a := range accounts {
		records[i] = AccountRecord{Account: a, Secret: a.Secret}
	}
	if users == nil {
		users = []otto.User{}
	}
	if keys == nil {
		keys = []otto.APIKey{}
	}

	return Snapshot{
		Version:   FormatVersion,
		CreatedAt: s.now().UTC(),
		CreatedBy: pr.Username,
		Users:     users,
		Accounts:  records,
		APIKeys:   keys,
	}, nil
}

func summary(s Snapshot) string {
	return "users=" + strconv.Itoa(len(s.Users)) +
		" accounts=" + strconv.Itoa(len(s.Accounts)) +
		" api_keys=" + strconv.Itoa(len(s.APIKeys))
}
