package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spinje/pflow/pkg/runtime"
)

// WriteNode writes text content to a file, creating parent directories as
// needed. Supports write and append modes.
//
// Interface:
//   - Reads: shared["content"] (required), shared["file_path"] (required)
//   - Writes: shared["written"] on success, shared["error"] on failure
//   - Params: content, file_path, append (fallbacks when not in shared)
//   - Actions: default (success), error (failure)
type WriteNode struct {
	runtime.BaseNode
}

// NewWrite creates a write-file node.
func NewWrite() *WriteNode {
	return &WriteNode{BaseNode: runtime.NewBaseNode(3, 100*time.Millisecond)}
}

type writePrep struct {
	content string
	path    string
	append  bool
}

type fileOutcome struct {
	message string
	ok      bool
}

func (n *WriteNode) Prep(shared map[string]any) (any, error) {
	content, ok := shared["content"]
	if !ok {
		content, ok = n.Param("content")
	}
	if !ok {
		return nil, fmt.Errorf("missing required 'content' in shared store or params")
	}
	path := stringFrom(shared, n.Params(), "file_path")
	if path == "" {
		return nil, fmt.Errorf("missing required 'file_path' in shared store or params")
	}
	return writePrep{
		content: fmt.Sprintf("%v", content),
		path:    path,
		append:  n.BoolParam("append", false),
	}, nil
}

func (n *WriteNode) Exec(prepResult any) (any, error) {
	p := prepResult.(writePrep)

	abs, err := filepath.Abs(p.path)
	if err != nil {
		return fileOutcome{message: fmt.Sprintf("Error writing file %s: %v", p.path, err)}, nil
	}
	if parent := filepath.Dir(abs); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fileOutcome{message: fmt.Sprintf("Error creating directory for %s: %v", p.path, err)}, nil
		}
	}

	flags := os.O_WRONLY | os.O_CREATE
	operation := "wrote to"
	if p.append {
		flags |= os.O_APPEND
		operation = "appended to"
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(p.path, flags, 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return fileOutcome{message: fmt.Sprintf("Error writing file %s: Permission denied", p.path)}, nil
		}
		return fileOutcome{message: fmt.Sprintf("Error writing file %s: %v", p.path, err)}, nil
	}
	defer f.Close()
	if _, err := f.WriteString(p.content); err != nil {
		return nil, fmt.Errorf("error writing file %s: %w", p.path, err)
	}
	return fileOutcome{message: fmt.Sprintf("Successfully %s %s", operation, p.path), ok: true}, nil
}

func (n *WriteNode) ExecFallback(prepResult any, execErr error) (any, error) {
	p, _ := prepResult.(writePrep)
	return fileOutcome{message: fmt.Sprintf("Failed to write file %s after retries: %v", p.path, execErr)}, nil
}

func (n *WriteNode) Post(shared map[string]any, prepResult, execRes any) (string, error) {
	outcome := execRes.(fileOutcome)
	if outcome.ok {
		shared["written"] = outcome.message
		return runtime.ActionDefault, nil
	}
	shared["error"] = outcome.message
	return runtime.ActionError, nil
}
