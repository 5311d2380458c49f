package totp

import "errors"

var (
	ErrMissingSecret             = errors.New("missing secret")
	ErrInvalidSecret             = errors.New("invalid secret: must be base32")
	ErrInvalidAlgorithm          = errors.New("invalid algorithm: must be SHA1, SHA256 or SHA512")
	ErrInvalidDigits             = errors.New("invalid digits: must be between 6 and 8")
	ErrInvalidPeriod             = errors.New("invalid period: must be between 15 and 60 seconds")
	ErrInvalidSkew               = errors.New("invalid skew: must not be negative")
	ErrFailedToGenerateSecretKey = errors.New("failed to generate TOTP secret key")
)
