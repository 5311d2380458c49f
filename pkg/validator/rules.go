package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: FieldError{Field: field, Message: "field is required"},
	}
}

func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be at least %d characters long", min)},
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// Matches checks value against re. Empty values pass; combine with Required.
func Matches(field, value string, re *regexp.Regexp, message string) Rule {
	return Rule{
		Check: func() bool { return value == "" || re.MatchString(value) },
		Error: FieldError{Field: field, Message: message},
	}
}

func Min[T Numeric](field string, value, min T) Rule {
	return Rule{
		Check: func() bool { return value >= min },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be at least %v", min)},
	}
}

func Max[T Numeric](field string, value, max T) Rule {
	return Rule{
		Check: func() bool { return value <= max },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be at most %v", max)},
	}
}

// Between checks min <= value <= max.
func Between[T Numeric](field string, value, min, max T) Rule {
	return Rule{
		Check: func() bool { return value >= min && value <= max },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be between %v and %v", min, max)},
	}
}

// OneOf checks that value is one of options. Empty values pass so optional
// enums can fall back to a default.
func OneOf[T ~string](field string, value T, options ...T) Rule {
	return Rule{
		Check: func() bool { return value == "" || slices.Contains(options, value) },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must be one of: %v", options)},
	}
}

func RequiredSlice[T any](field string, value []T) Rule {
	return Rule{
		Check: func() bool { return len(value) > 0 },
		Error: FieldError{Field: field, Message: "must not be empty"},
	}
}

func MaxLenSlice[T any](field string, value []T, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: FieldError{Field: field, Message: fmt.Sprintf("must contain at most %d items", max)},
	}
}

// When applies rule only if cond holds.
func When(cond bool, rule Rule) Rule {
	return Rule{
		Check: func() bool { return !cond || rule.Check() },
		Error: rule.Error,
	}
}
