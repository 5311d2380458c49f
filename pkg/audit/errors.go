package audit

import "errors"

var (
	ErrStorageNotAvailable = errors.New("audit storage is unavailable")
	ErrEventValidation     = errors.New("audit event validation failed")
	ErrBufferFull          = errors.New("audit buffer is full")
	ErrInvalidFilter       = errors.New("invalid audit filter")
)
