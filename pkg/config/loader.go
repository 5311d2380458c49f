package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by configuration structs with cross-field rules.
type Validator interface {
	Validate() error
}

var dotenvOnce sync.Once

func loadDotenv() {
	dotenvOnce.Do(func() {
		// The file is optional.
		_ = godotenv.Load()
	})
}

// Load parses environment variables into v.
func Load[T any](v *T) error {
	loadDotenv()
	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	if val, ok := any(v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}

	return nil
}

// LoadAll loads several configuration structs, stopping at the first error.
// Every argument must be a non-nil pointer to a struct.
func LoadAll(targets ...any) error {
	loadDotenv()
	for _, t := range targets {
		if t == nil {
			return ErrNilPointer
		}
		if err := env.Parse(t); err != nil {
			return errors.Join(ErrParsingConfig, fmt.Errorf("%T: %w", t, err))
		}
		if val, ok := t.(Validator); ok {
			if err := val.Validate(); err != nil {
				return errors.Join(ErrInvalidConfig, fmt.Errorf("%T: %w", t, err))
			}
		}
	}
	return nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
