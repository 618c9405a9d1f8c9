package file

import (
	"fmt"
	"os"
	"time"

	"github.com/spinje/pflow/pkg/runtime"
)

// MoveNode moves a file, falling back to copy-then-delete across devices.
//
// Interface:
//   - Reads: shared["source_path"], shared["dest_path"] (both required),
//     shared["overwrite"] (optional, default false)
//   - Writes: shared["moved"] on success, shared["error"] on failure,
//     shared["warning"] on partial success (copied but source not removed)
//   - Actions: default (success), error (failure)
type MoveNode struct {
	runtime.BaseNode
}

// NewMove creates a move-file node.
func NewMove() *MoveNode {
	return &MoveNode{BaseNode: runtime.NewBaseNode(3, 100*time.Millisecond)}
}

type moveOutcome struct {
	message string
	warning string
	ok      bool
}

func (n *MoveNode) Prep(shared map[string]any) (any, error) {
	return transferPrepFrom(shared, n.Params())
}

func (n *MoveNode) Exec(prepResult any) (any, error) {
	p := prepResult.(transferPrep)

	info, err := os.Stat(p.source)
	if os.IsNotExist(err) {
		return moveOutcome{message: fmt.Sprintf("Error: Source file %s does not exist", p.source)}, nil
	}
	if err == nil && info.IsDir() {
		return moveOutcome{message: fmt.Sprintf("Error: Source %s is a directory, not a file", p.source)}, nil
	}
	if _, err := os.Stat(p.dest); err == nil && !p.overwrite {
		return moveOutcome{message: fmt.Sprintf("Error: Destination %s already exists (set overwrite to replace)", p.dest)}, nil
	}

	if err := os.Rename(p.source, p.dest); err == nil {
		return moveOutcome{message: fmt.Sprintf("Successfully moved %s to %s", p.source, p.dest), ok: true}, nil
	}

	// Cross-device move: copy, then best-effort delete of the source.
	message, ok := copyFile(p)
	if !ok {
		return moveOutcome{message: message}, nil
	}
	if err := os.Remove(p.source); err != nil {
		return moveOutcome{
			message: fmt.Sprintf("Successfully moved %s to %s", p.source, p.dest),
			warning: fmt.Sprintf("copied but could not remove source %s: %v", p.source, err),
			ok:      true,
		}, nil
	}
	return moveOutcome{message: fmt.Sprintf("Successfully moved %s to %s", p.source, p.dest), ok: true}, nil
}

func (n *MoveNode) ExecFallback(prepResult any, execErr error) (any, error) {
	p, _ := prepResult.(transferPrep)
	return moveOutcome{message: fmt.Sprintf("Failed to move %s after retries: %v", p.source, execErr)}, nil
}

func (n *MoveNode) Post(shared map[string]any, prepResult, execRes any) (string, error) {
	outcome := execRes.(moveOutcome)
	if outcome.ok {
		shared["moved"] = outcome.message
		if outcome.warning != "" {
			shared["warning"] = outcome.warning
		}
		return runtime.ActionDefault, nil
	}
	shared["error"] = outcome.message
	return runtime.ActionError, nil
}
