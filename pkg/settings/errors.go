package settings

import "errors"

// Sentinel errors for settings operations
var (
	ErrNotFound = errors.New("setting not found")
)
