package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/audit"
	"github.com/dmitrymomot/otto/pkg/otpauth"
	"github.com/dmitrymomot/otto/pkg/qrcode"
	"github.com/dmitrymomot/otto/pkg/totp"
	"github.com/dmitrymomot/otto/pkg/validator"
	"github.com/dmitrymomot/otto/svc/policy"
)

const (
	MaxLabelLength    = 255
	MaxIssuerLength   = 255
	MaxCategoryLength = 100
)

// ProvisioningIssuer is the issuer put in QR codes of accounts that have none.
const ProvisioningIssuer = "Otto"

// CreateInput describes a new account. When OTPAuthURI is set it provides
// label, issuer, secret and parameters; Visibility and Category still apply.
type CreateInput struct {
	Label      string `json:"label"`
	Issuer     string `json:"issuer"`
	Secret     string `json:"secret"`
	Algorithm  string `json:"algorithm"`
	Digits     int    `json:"digits"`
	Period     int    `json:"period"`
	Visibility string `json:"visibility"`
	Category   string `json:"category"`
	OTPAuthURI string `json:"otpauth_uri"`
}

// normalize validates the input and returns the account to store with the
// secret still in plaintext.
func (in CreateInput) normalize() (otto.Account, error) {
	if in.OTPAuthURI != "" {
		key, err := ParseURI(in.OTPAuthURI)
		if err != nil {
			return otto.Account{}, err
		}
		in.Label, in.Issuer, in.Secret = key.Label, key.Issuer, key.Secret
		in.Algorithm, in.Digits, in.Period = key.Algorithm.String(), key.Digits, key.Period
	}

	a := otto.Account{
		Label:    strings.TrimSpace(in.Label),
		Issuer:   strings.TrimSpace(in.Issuer),
		Secret:   totp.NormalizeSecret(in.Secret),
		Category: strings.TrimSpace(in.Category),
		Digits:   in.Digits,
		Period:   in.Period,
	}

	ve := make(otto.ValidationError)
	if err := otto.Validate(
		validator.Required("label", a.Label),
		validator.MaxLen("label", a.Label, MaxLabelLength),
		validator.MaxLen("issuer", a.Issuer, MaxIssuerLength),
		validator.MaxLen("category", a.Category, MaxCategoryLength),
		validator.Required("secret", a.Secret),
		validator.When(a.Digits != 0, validator.Between("digits", a.Digits, totp.MinDigits, totp.MaxDigits)),
		validator.When(a.Period != 0, validator.Between("period", a.Period, totp.MinPeriod, totp.MaxPeriod)),
	); err != nil {
		errors.As(err, &ve)
	}
	if a.Secret != "" && !ve.Has("secret") {
		if err := totp.ValidateSecret(a.Secret); err != nil {
			ve.Add("secret", "must be a valid base32 string")
		}
	}

	alg, err := totp.ParseAlgorithm(in.Algorithm)
	if err != nil {
		ve.Add("algorithm", "must be SHA1, SHA256 or SHA512")
	}
	a.Algorithm = alg

	vis, err := otto.ParseVisibility(in.Visibility)
	if err != nil {
		ve.Add("visibility", "must be team or private")
	}
	a.Visibility = vis

	if err := ve.Err(); err != nil {
		return otto.Account{}, err
	}

	p := a.Params().WithDefaults()
	a.Algorithm, a.Digits, a.Period = p.Algorithm, p.Digits, p.Period
	return a, nil
}

// Create stores a new account owned by pr. Principals that may not share
// accounts always get a private one.
func (s *Service) Create(ctx context.Context, pr otto.Principal, in CreateInput) (otto.Account, error) {
	if err := s.policy.Require(pr, policy.AccountsCreate); err != nil {
		return otto.Account{}, err
	}

	a, err := in.normalize()
	if err != nil {
		return otto.Account{}, err
	}

	created, err := s.create(ctx, pr, a)
	if err != nil {
		s.audit.Failure(ctx, "account_created", audit.WithDetails(displayName(a)))
		return otto.Account{}, err
	}

	s.audit.Record(ctx, "account_created",
		audit.WithResource(resource(created.ID)),
		audit.WithDetails(displayName(created)+" ("+string(created.Visibility)+")"),
	)
	return created, nil
}

// create encrypts a normalized account and stores it.
func (s *Service) create(ctx context.Context, pr otto.Principal, a otto.Account) (otto.Account, error) {
	blob, err := s.cipher.Encrypt(a.Secret)
	if err != nil {
		return otto.Account{}, err
	}

	now := s.now().UTC()
	a.Secret = blob
	a.Visibility = s.policy.CreationVisibility(pr, a.Visibility)
	a.CreatedBy = pr.Username
	a.IconIdentifier = DetectIcon(a.Issuer)
	a.CreatedAt, a.UpdatedAt = now, now

	return s.store.CreateAccount(ctx, a)
}

// writable loads an account and checks write access.
func (s *Service) writable(ctx context.Context, pr otto.Principal, id int64) (otto.Account, error) {
	a, err := s.store.GetAccount(ctx, id, pr.UserID)
	if err != nil {
		return otto.Account{}, notFound(err)
	}
	if !s.policy.CanWrite(pr, a) {
		return otto.Account{}, errAccountNotWritable
	}
	return a, nil
}

// readable loads an account and checks read access.
func (s *Service) readable(ctx context.Context, pr otto.Principal, id int64) (otto.Account, error) {
	return s.resolve(ctx, pr, Ref{ID: id})
}

// UpdateVisibility changes who can read an account. Sharing with the team
// needs the same permission as creating a team account.
func (s *Service) UpdateVisibility(ctx context.Context, pr otto.Principal, id int64, visibility string) (otto.Account, error) {
	v, err := otto.ParseVisibility(visibility)
	if err != nil {
		return otto.Account{}, err
	}
	if v == "" {
		return otto.Account{}, otto.Invalid("visibility", "is required")
	}

	a, err := s.writable(ctx, pr, id)
	if err != nil {
		return otto.Account{}, err
	}
	if v == otto.VisibilityTeam && !s.policy.Can(pr, policy.AccountsCreateTeam) {
		return otto.Account{}, otto.NewError(otto.ErrForbidden, "only admins can share accounts with the team")
	}

	updated, err := s.store.UpdateVisibility(ctx, a.ID, v)
	if err != nil {
		return otto.Account{}, notFound(err)
	}

	s.audit.Record(ctx, "account_updated",
		audit.WithResource(resource(a.ID)),
		audit.WithDetails("visibility "+string(a.Visibility)+" -> "+string(v)),
	)
	return updated, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, pr otto.Principal, id int64) error {
	a, err := s.writable(ctx, pr, id)
	if err != nil {
		if errors.Is(err, otto.ErrForbidden) {
			s.audit.Failure(ctx, "account_deleted", audit.WithResource(resource(id)))
		}
		return err
	}
	if err := s.store.DeleteAccount(ctx, a.ID); err != nil {
		return notFound(err)
	}
	s.audit.Record(ctx, "account_deleted",
		audit.WithResource(resource(a.ID)),
		audit.WithDetails(displayName(a)),
	)
	return nil
}

// Increment bumps a usage counter of a readable account.
func (s *Service) Increment(ctx context.Context, pr otto.Principal, id int64, counter string) error {
	c, err := otto.ParseCounter(counter)
	if err != nil {
		return err
	}
	if _, err := s.readable(ctx, pr, id); err != nil {
		return err
	}
	return notFound(s.store.IncrementCounter(ctx, id, c))
}

// SetFavorite marks or unmarks a readable account as a favorite of pr.
// Both directions are idempotent.
func (s *Service) SetFavorite(ctx context.Context, pr otto.Principal, id int64, favorite bool) error {
	if err := s.policy.Require(pr, policy.AccountsFavorite); err != nil {
		return err
	}
	if _, err := s.readable(ctx, pr, id); err != nil {
		return err
	}
	if favorite {
		return s.store.AddFavorite(ctx, pr.UserID, id)
	}
	return s.store.RemoveFavorite(ctx, pr.UserID, id)
}

// Provisioning is the material needed to enroll an account in another
// authenticator app.
type Provisioning struct {
	Account    otto.AccountSummary `json:"account"`
	OTPAuthURI string              `json:"otpauth_uri"`
	Secret     string              `json:"secret"`
	QRCode     string              `json:"qr_code"`
}

// Provision reveals the secret of an account as an otpauth URI and QR code.
func (s *Service) Provision(ctx context.Context, pr otto.Principal, id int64) (Provisioning, error) {
	if err := s.policy.Require(pr, policy.AccountsReveal); err != nil {
		s.audit.Failure(ctx, "account:qr_view", audit.WithResource(resource(id)))
		return Provisioning{}, err
	}
	a, err := s.readable(ctx, pr, id)
	if err != nil {
		return Provisioning{}, err
	}

	secret, err := s.reveal(ctx, a)
	if err != nil {
		return Provisioning{}, err
	}
	key := keyOf(a, secret)
	if key.Issuer == "" {
		key.Issuer = ProvisioningIssuer
	}
	uri, err := otpauth.Build(key)
	if err != nil {
		return Provisioning{}, errors.Join(otto.ErrDecryption, err)
	}
	qr, err := qrcode.DataURL(uri, s.qrSize)
	if err != nil {
		return Provisioning{}, err
	}

	s.audit.Record(ctx, "account:qr_view",
		audit.WithResource(resource(a.ID)),
		audit.WithDetails(displayName(a)),
	)
	return Provisioning{Account: a.Summary(), OTPAuthURI: uri, Secret: secret, QRCode: qr}, nil
}

// ParseURI decodes an otpauth URI, reporting problems as validation errors
// on the "url" field.
func ParseURI(raw string) (otpauth.Key, error) {
	if strings.TrimSpace(raw) == "" {
		return otpauth.Key{}, otto.Invalid("url", "is required")
	}
	key, err := otpauth.Parse(raw)
	if err != nil {
		return otpauth.Key{}, errors.Join(otto.Invalid("url", uriMessage(err)), err)
	}
	return key, nil
}

func uriMessage(err error) string {
	switch {
	case errors.Is(err, otpauth.ErrInvalidScheme):
		return "must use the otpauth scheme"
	case errors.Is(err, otpauth.ErrInvalidType):
		return "only totp keys are supported"
	case errors.Is(err, otpauth.ErrMissingSecret):
		return "secret parameter is missing"
	case errors.Is(err, otpauth.ErrMissingLabel):
		return "label is missing"
	case errors.Is(err, totp.ErrInvalidSecret):
		return "secret is not valid base32"
	case errors.Is(err, totp.ErrInvalidAlgorithm):
		return "algorithm must be SHA1, SHA256 or SHA512"
	case errors.Is(err, totp.ErrInvalidDigits):
		return "digits must be between 6 and 8"
	case errors.Is(err, totp.ErrInvalidPeriod):
		return "period must be between 15 and 60"
	}
	return "is not a valid otpauth URI"
}

func keyOf(a otto.Account, secret string) otpauth.Key {
	return otpauth.Key{
		Issuer:    a.Issuer,
		Label:     a.Label,
		Secret:    secret,
		Algorithm: a.Algorithm,
		Digits:    a.Digits,
		Period:    a.Period,
	}
}
