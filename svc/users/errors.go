package users

import (
	"errors"

	"github.com/dmitrymomot/otto"
)

var (
	ErrPasswordGeneration = errors.New("failed to generate password")

	errUserNotFound     = otto.NewError(otto.ErrNotFound, "user not found")
	errUsernameTaken    = otto.NewError(otto.ErrConflict, "username already exists")
	errCannotDeleteRoot = otto.NewError(otto.ErrForbidden, "the bootstrap admin cannot be deleted")
	errCannotDeleteSelf = otto.NewError(otto.ErrForbidden, "you cannot delete your own account")
)
