package binder

import "errors"

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
	ErrFailedToParseQuery   = errors.New("failed to parse query parameters")
	ErrFailedToParsePath    = errors.New("failed to parse path parameters")
	ErrBodyTooLarge         = errors.New("request body too large")

	// ErrBinderNotApplicable is returned when a binder has nothing to read.
	// handler.Wrap skips such binders.
	ErrBinderNotApplicable = errors.New("binder not applicable")
)
