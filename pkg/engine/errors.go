package engine

import "errors"

// Sentinel errors for engine operations
var (
	ErrCancelled        = errors.New("workflow execution cancelled")
	ErrExecutionTimeout = errors.New("workflow execution timeout")
	ErrNodeFailed       = errors.New("node execution failed")
	ErrMissingInput     = errors.New("missing required workflow input")
)
