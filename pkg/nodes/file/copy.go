package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spinje/pflow/pkg/runtime"
)

// CopyNode copies a file to a new location.
//
// Interface:
//   - Reads: shared["source_path"], shared["dest_path"] (both required),
//     shared["overwrite"] (optional, default false)
//   - Writes: shared["copied"] on success, shared["error"] on failure
//   - Actions: default (success), error (failure)
type CopyNode struct {
	runtime.BaseNode
}

// NewCopy creates a copy-file node.
func NewCopy() *CopyNode {
	return &CopyNode{BaseNode: runtime.NewBaseNode(3, 100*time.Millisecond)}
}

type transferPrep struct {
	source    string
	dest      string
	overwrite bool
}

func (n *CopyNode) Prep(shared map[string]any) (any, error) {
	return transferPrepFrom(shared, n.Params())
}

func transferPrepFrom(shared, params map[string]any) (transferPrep, error) {
	source := stringFrom(shared, params, "source_path")
	if source == "" {
		return transferPrep{}, fmt.Errorf("missing required 'source_path' in shared store or params")
	}
	dest := stringFrom(shared, params, "dest_path")
	if dest == "" {
		return transferPrep{}, fmt.Errorf("missing required 'dest_path' in shared store or params")
	}
	overwrite := false
	if v, ok := shared["overwrite"].(bool); ok {
		overwrite = v
	} else if v, ok := params["overwrite"].(bool); ok {
		overwrite = v
	}
	return transferPrep{source: source, dest: dest, overwrite: overwrite}, nil
}

func (n *CopyNode) Exec(prepResult any) (any, error) {
	p := prepResult.(transferPrep)
	message, ok := copyFile(p)
	return fileOutcome{message: message, ok: ok}, nil
}

// copyFile performs the checked copy shared by copy and move.
func copyFile(p transferPrep) (string, bool) {
	info, err := os.Stat(p.source)
	if os.IsNotExist(err) {
		return fmt.Sprintf("Error: Source file %s does not exist", p.source), false
	}
	if err == nil && info.IsDir() {
		return fmt.Sprintf("Error: Source %s is a directory, not a file", p.source), false
	}
	if _, err := os.Stat(p.dest); err == nil && !p.overwrite {
		return fmt.Sprintf("Error: Destination %s already exists (set overwrite to replace)", p.dest), false
	}

	if parent := filepath.Dir(p.dest); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Sprintf("Error creating directory for %s: %v", p.dest, err), false
		}
	}

	src, err := os.Open(p.source)
	if err != nil {
		return fmt.Sprintf("Error copying %s: %v", p.source, err), false
	}
	defer src.Close()
	dst, err := os.Create(p.dest)
	if err != nil {
		return fmt.Sprintf("Error copying to %s: %v", p.dest, err), false
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Sprintf("Error copying %s to %s: %v", p.source, p.dest, err), false
	}
	return fmt.Sprintf("Successfully copied %s to %s", p.source, p.dest), true
}

func (n *CopyNode) ExecFallback(prepResult any, execErr error) (any, error) {
	p, _ := prepResult.(transferPrep)
	return fileOutcome{message: fmt.Sprintf("Failed to copy %s after retries: %v", p.source, execErr)}, nil
}

func (n *CopyNode) Post(shared map[string]any, prepResult, execRes any) (string, error) {
	outcome := execRes.(fileOutcome)
	if outcome.ok {
		shared["copied"] = outcome.message
		return runtime.ActionDefault, nil
	}
	shared["error"] = outcome.message
	return runtime.ActionError, nil
}
