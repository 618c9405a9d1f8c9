package coerce

import "errors"

// Sentinel errors for coercion operations
var (
	ErrMalformedJSON = errors.New("malformed JSON")
	ErrTypeMismatch  = errors.New("type mismatch")
)
