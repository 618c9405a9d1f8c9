package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spinje/pflow/pkg/ir"
)

// trace is the on-disk layout of one execution trace.
type trace struct {
	ExecutionID string         `json:"execution_id"`
	CreatedAt   string         `json:"created_at"`
	Workflow    *ir.Workflow   `json:"workflow"`
	Steps       []Step         `json:"steps"`
	Metrics     Metrics        `json:"metrics"`
	Shared      map[string]any `json:"shared_store"`
	Errors      []ErrorDetail  `json:"errors,omitempty"`
}

// writeTrace persists the run as workflow-trace-YYYYMMDD-HHMMSS.json under
// dir. The shared store is sanitized before anything touches disk.
func writeTrace(dir string, wf *ir.Workflow, result *Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create trace dir: %w", err)
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("workflow-trace-%s.json", now.Format("20060102-150405")))

	doc := trace{
		ExecutionID: result.ExecutionID,
		CreatedAt:   now.Format(time.RFC3339),
		Workflow:    wf,
		Steps:       result.Steps,
		Metrics:     result.Metrics,
		Shared:      SanitizeShared(result.SharedAfter),
		Errors:      result.Errors,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("marshal trace: %w", err)
	}
	data := buf.Bytes()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write trace: %w", err)
	}
	return path, nil
}
