package otpauth

import "errors"

var (
	ErrInvalidURI    = errors.New("invalid otpauth uri")
	ErrInvalidScheme = errors.New("invalid otpauth uri: scheme must be otpauth")
	ErrInvalidType   = errors.New("invalid otpauth uri: type must be totp")
	ErrMissingLabel  = errors.New("invalid otpauth uri: missing label")
	ErrMissingSecret = errors.New("invalid otpauth uri: missing secret")
)
