package accounts

import (
	"errors"

	"github.com/dmitrymomot/otto"
)

var (
	ErrMissingRef         = errors.New("account_id or account_code is required")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	errAccountNotFound    = otto.NewError(otto.ErrNotFound, "account not found")
	errAccountForbidden   = otto.NewError(otto.ErrForbidden, "you do not have access to this account")
	errAccountNotWritable = otto.NewError(otto.ErrForbidden, "only the owner or an admin can modify this account")
)
