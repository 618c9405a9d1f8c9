package engine

import "github.com/spinje/pflow/pkg/runtime"

// Step records one node's execution for traces and structured output.
type Step struct {
	NodeID     string `json:"node_id"`
	Status     string `json:"status"` // completed | failed | skipped
	DurationMS int64  `json:"duration_ms"`
	Action     string `json:"action,omitempty"`
	HasStderr  bool   `json:"has_stderr,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Step statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Metrics aggregates run-level counters.
type Metrics struct {
	DurationMS    int64 `json:"duration_ms"`
	NodesTotal    int   `json:"nodes_total"`
	NodesExecuted int   `json:"nodes_executed"`
	NodesFailed   int   `json:"nodes_failed"`
}

// ErrorDetail is one classified failure in the result.
type ErrorDetail struct {
	Type    runtime.ErrorKind `json:"type"`
	NodeID  string            `json:"node_id,omitempty"`
	Message string            `json:"message"`
}

// Result is the structured outcome of a workflow run. Outputs that could be
// resolved are always included, even after a failure.
type Result struct {
	Success     bool           `json:"success"`
	ExecutionID string         `json:"execution_id"`
	Outputs     map[string]any `json:"result"`
	Steps       []Step         `json:"steps"`
	Metrics     Metrics        `json:"metrics"`
	Errors      []ErrorDetail  `json:"errors,omitempty"`
	TracePath   string         `json:"trace_path,omitempty"`

	// SharedAfter is the final shared store, exposed for formatters and
	// trace writing. Secrets are redacted before anything is persisted.
	SharedAfter map[string]any `json:"-"`
}
