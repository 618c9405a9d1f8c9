package library

import "errors"

// Sentinel errors for library operations
var (
	ErrNotFound    = errors.New("workflow not found")
	ErrInvalidName = errors.New("invalid workflow name")
)
