package file

import (
	"fmt"
	"os"
	"time"

	"github.com/spinje/pflow/pkg/runtime"
)

// DeleteNode deletes a file after an explicit confirmation flag. Directories
// are refused unless recursive is set.
//
// Interface:
//   - Reads: shared["file_path"] (required), shared["confirm_delete"]
//     (required, must be true)
//   - Writes: shared["deleted"] on success, shared["error"] on failure
//   - Params: file_path, confirm_delete, recursive (fallbacks)
//   - Actions: default (success), error (failure)
type DeleteNode struct {
	runtime.BaseNode
}

// NewDelete creates a delete-file node.
func NewDelete() *DeleteNode {
	return &DeleteNode{BaseNode: runtime.NewBaseNode(3, 100*time.Millisecond)}
}

type deletePrep struct {
	path      string
	confirmed bool
	recursive bool
}

func (n *DeleteNode) Prep(shared map[string]any) (any, error) {
	path := stringFrom(shared, n.Params(), "file_path")
	if path == "" {
		return nil, fmt.Errorf("missing required 'file_path' in shared store or params")
	}
	confirmed := false
	if v, ok := shared["confirm_delete"].(bool); ok {
		confirmed = v
	} else {
		confirmed = n.BoolParam("confirm_delete", false)
	}
	return deletePrep{path: path, confirmed: confirmed, recursive: n.BoolParam("recursive", false)}, nil
}

func (n *DeleteNode) Exec(prepResult any) (any, error) {
	p := prepResult.(deletePrep)

	if !p.confirmed {
		return fileOutcome{message: fmt.Sprintf(
			"Error: Deletion of '%s' not confirmed. Set confirm_delete to true to confirm.", p.path)}, nil
	}

	info, err := os.Stat(p.path)
	if os.IsNotExist(err) {
		return fileOutcome{message: fmt.Sprintf("Error: File %s does not exist", p.path)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error inspecting %s: %w", p.path, err)
	}

	if info.IsDir() {
		if !p.recursive {
			return fileOutcome{message: fmt.Sprintf(
				"Error: %s is a directory. Set recursive to true to delete directories.", p.path)}, nil
		}
		if err := os.RemoveAll(p.path); err != nil {
			return nil, fmt.Errorf("error deleting directory %s: %w", p.path, err)
		}
		return fileOutcome{message: fmt.Sprintf("Successfully deleted directory %s", p.path), ok: true}, nil
	}

	if err := os.Remove(p.path); err != nil {
		if os.IsPermission(err) {
			return fileOutcome{message: fmt.Sprintf("Error deleting file %s: Permission denied", p.path)}, nil
		}
		return nil, fmt.Errorf("error deleting file %s: %w", p.path, err)
	}
	return fileOutcome{message: fmt.Sprintf("Successfully deleted %s", p.path), ok: true}, nil
}

func (n *DeleteNode) ExecFallback(prepResult any, execErr error) (any, error) {
	p, _ := prepResult.(deletePrep)
	return fileOutcome{message: fmt.Sprintf("Failed to delete %s after retries: %v", p.path, execErr)}, nil
}

func (n *DeleteNode) Post(shared map[string]any, prepResult, execRes any) (string, error) {
	outcome := execRes.(fileOutcome)
	if outcome.ok {
		shared["deleted"] = outcome.message
		return runtime.ActionDefault, nil
	}
	shared["error"] = outcome.message
	return runtime.ActionError, nil
}
