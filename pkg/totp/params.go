package totp

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"strings"
)

// Algorithm is the HMAC hash used to derive codes.
type Algorithm string

const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
)

const (
	DefaultAlgorithm = SHA1
	DefaultDigits    = 6
	DefaultPeriod    = 30
	DefaultSkew      = 1

	MinDigits = 6
	MaxDigits = 8
	MinPeriod = 15
	MaxPeriod = 60
)

// ParseAlgorithm accepts algorithm names case-insensitively, with or without a dash.
// An empty string yields DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	if s == "" {
		return DefaultAlgorithm, nil
	}
	alg := Algorithm(s)
	if !alg.Valid() {
		return "", ErrInvalidAlgorithm
	}
	return alg, nil
}

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	switch a {
	case SHA1, SHA256, SHA512:
		return true
	}
	return false
}

func (a Algorithm) hash() func() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New
	case SHA512:
		return sha512.New
	default:
		return sha1.New
	}
}

func (a Algorithm) String() string { return string(a) }

// Params describes how codes are derived from a secret.
type Params struct {
	Algorithm Algorithm `json:"algorithm"`
	Digits    int       `json:"digits"`
	Period    int       `json:"period"`
}

// WithDefaults returns a copy with zero-valued fields set to the defaults.
func (p Params) WithDefaults() Params {
	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// Validate checks the parameters after defaults have been applied.
func (p Params) Validate() error {
	p = p.WithDefaults()
	if !p.Algorithm.Valid() {
		return ErrInvalidAlgorithm
	}
	if p.Digits < MinDigits || p.Digits > MaxDigits {
		return ErrInvalidDigits
	}
	if p.Period < MinPeriod || p.Period > MaxPeriod {
		return ErrInvalidPeriod
	}
	return nil
}
