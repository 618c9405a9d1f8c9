package graph

import "errors"

// Sentinel errors for graph operations
var (
	ErrCycleDetected = errors.New("workflow contains cycles")
	ErrUnknownNode   = errors.New("edge references unknown node")
	ErrUnreachable   = errors.New("node unreachable from any source")
)
