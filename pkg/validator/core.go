package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Errors is the set of failures collected by Apply.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Fields returns the failed field names in sorted order.
func (e Errors) Fields() []string {
	seen := make(map[string]struct{}, len(e))
	fields := make([]string, 0, len(e))
	for _, fe := range e {
		if _, ok := seen[fe.Field]; !ok {
			seen[fe.Field] = struct{}{}
			fields = append(fields, fe.Field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Map groups messages by field.
func (e Errors) Map() map[string][]string {
	m := make(map[string][]string, len(e))
	for _, fe := range e {
		m[fe.Field] = append(m[fe.Field], fe.Message)
	}
	return m
}

// Rule is a single check and the error reported when it fails.
type Rule struct {
	Check func() bool
	Error FieldError
}

// Apply runs every rule and returns Errors when any fails, nil otherwise.
func Apply(rules ...Rule) error {
	var errs Errors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Extract returns the Errors carried by err, or nil.
func Extract(err error) Errors {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}

func IsValidationError(err error) bool {
	return Extract(err) != nil
}
