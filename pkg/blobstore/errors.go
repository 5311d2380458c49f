package blobstore

import "errors"

var (
	ErrDisabled           = errors.New("blob storage is not configured")
	ErrInvalidKey         = errors.New("invalid object key")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrUploadFailed       = errors.New("upload failed")
	ErrOperationTimeout   = errors.New("operation timed out")
)
