package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// RegisteredClaims are the RFC 7519 registered claims.
type RegisteredClaims = gojwt.RegisteredClaims

// Claims is implemented by every claims type accepted by Service.
type Claims = gojwt.Claims

// Expiring returns registered claims issued at now and valid for ttl.
func Expiring(now time.Time, ttl time.Duration) RegisteredClaims {
	return RegisteredClaims{
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
}

// Service issues and verifies HS256 tokens.
type Service struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer stamps and requires the iss claim.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithClock replaces the time source used for validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service with the given signing key.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	s := &Service{
		signingKey: signingKey,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for string configuration values.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Generate signs claims with HS256. Claims are not modified, so callers set
// the issuer from Issuer() when one is configured.
func (s *Service) Generate(claims Claims) (string, error) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return signed, nil
}

// Issuer returns the configured issuer, empty when unset.
func (s *Service) Issuer() string { return s.issuer }

// Parse verifies token and decodes it into claims.
func (s *Service) Parse(token string, claims Claims) error {
	if token == "" {
		return ErrMissingToken
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuedAt(),
		gojwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)

	switch {
	case err == nil && parsed.Valid:
		return nil
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return errors.Join(ErrInvalidSignature, err)
	case err != nil:
		return errors.Join(ErrInvalidToken, err)
	default:
		return ErrInvalidToken
	}
}
