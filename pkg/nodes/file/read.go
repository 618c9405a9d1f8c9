package file

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spinje/pflow/pkg/runtime"
)

// ReadNode reads a text file and formats it with 1-indexed line numbers.
//
// Interface:
//   - Reads: shared["file_path"] (required)
//   - Writes: shared["content"] on success, shared["error"] on failure
//   - Params: file_path (fallback when not in shared)
//   - Actions: default (success), error (failure)
type ReadNode struct {
	runtime.BaseNode
}

// NewRead creates a read-file node with retries for transient access issues.
func NewRead() *ReadNode {
	return &ReadNode{BaseNode: runtime.NewBaseNode(3, 100*time.Millisecond)}
}

type readOutcome struct {
	content string
	ok      bool
}

func (n *ReadNode) Prep(shared map[string]any) (any, error) {
	path := stringFrom(shared, n.Params(), "file_path")
	if path == "" {
		return nil, fmt.Errorf("missing required 'file_path' in shared store or params")
	}
	return path, nil
}

func (n *ReadNode) Exec(prepResult any) (any, error) {
	path := prepResult.(string)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return readOutcome{content: fmt.Sprintf("Error: File %s does not exist", path), ok: false}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return readOutcome{content: fmt.Sprintf("Error reading file %s: Permission denied", path), ok: false}, nil
		}
		// Transient errors trigger the retry loop.
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d: %s", i+1, line)
	}
	return readOutcome{content: b.String(), ok: true}, nil
}

func (n *ReadNode) ExecFallback(prepResult any, execErr error) (any, error) {
	path, _ := prepResult.(string)
	return readOutcome{content: fmt.Sprintf("Failed to read file %s after retries: %v", path, execErr), ok: false}, nil
}

func (n *ReadNode) Post(shared map[string]any, prepResult, execRes any) (string, error) {
	outcome := execRes.(readOutcome)
	if outcome.ok {
		shared["content"] = outcome.content
		return runtime.ActionDefault, nil
	}
	shared["error"] = outcome.content
	return runtime.ActionError, nil
}

// stringFrom reads key from shared first, then params.
func stringFrom(shared, params map[string]any, key string) string {
	if v, ok := shared[key].(string); ok && v != "" {
		return v
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
