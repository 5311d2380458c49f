package apikey

import "errors"

var (
	ErrMalformedKey = errors.New("malformed api key")
	ErrKeyInactive  = errors.New("api key is inactive")
	ErrKeyExpired   = errors.New("api key has expired")
	ErrOwnerBlocked = errors.New("api key owner is inactive or not allowed to use the api")
)
