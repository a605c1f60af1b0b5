package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrBadAlignment  = errors.New("malformed alignment")
	ErrMalformedLine = errors.New("malformed phrase table line")
	ErrInvalidConfig = errors.New("invalid configuration")
)
