package otto

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/dmitrymomot/otto/pkg/validator"
)

// Error kinds. Services wrap causes with errors.Join so callers can match on
// the kind with errors.Is while logs keep the detail.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrDecryption      = errors.New("secret decryption failed")
	ErrTooManyRequests = errors.New("too many requests")
)

// Error pairs an error kind with a message that is safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

// NewError returns an *Error for kind. Wrap the underlying cause next to it
// with errors.Join to keep the detail for logs.
func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// PublicMessage returns the first client-safe message carried by err.
func PublicMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message, true
	}
	return "", false
}

// ValidationError maps input fields to messages.
type ValidationError url.Values

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) ValidationError {
	e := make(ValidationError)
	e.Add(field, message)
	return e
}

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if msgs := e[field]; len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs[0]))
		}
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

func (e ValidationError) Get(field string) string {
	return url.Values(e).Get(field)
}

func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}

// Err returns nil for an empty ValidationError so it can terminate a
// validation block directly.
func (e ValidationError) Err() error {
	if e.IsEmpty() {
		return nil
	}
	return e
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validate runs the rules and returns their failures as a ValidationError.
func Validate(rules ...validator.Rule) error {
	errs := validator.Extract(validator.Apply(rules...))
	if len(errs) == 0 {
		return nil
	}
	ve := make(ValidationError, len(errs))
	for _, fe := range errs {
		ve.Add(fe.Field, fe.Message)
	}
	return ve
}
