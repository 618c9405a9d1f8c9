package validator

import "errors"

// Sentinel errors for validation operations
var (
	ErrSchemaLoad = errors.New("failed to load IR schema")
	ErrInvalid    = errors.New("workflow failed validation")
)
