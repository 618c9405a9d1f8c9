package ir

import "errors"

// Sentinel errors for IR operations
var (
	ErrInvalidJSON = errors.New("invalid workflow JSON")
	ErrNoNodes     = errors.New("workflow has no nodes")
)
