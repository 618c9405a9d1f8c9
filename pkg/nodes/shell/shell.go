package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spinje/pflow/pkg/runtime"
	"github.com/spinje/pflow/pkg/template"
)

// DefaultTimeout bounds subprocess execution when no timeout param is set.
const DefaultTimeout = 30 * time.Second

// Exit code conventions for failures that produce no real exit status.
const (
	exitTimeout     = -1
	exitSpawnFailed = -2
)

// Node executes a shell command.
//
// Interface:
//   - Reads: shared["stdin"] (optional input data)
//   - Writes: shared["stdout"], shared["stderr"], shared["exit_code"]
//   - Params: command (required), cwd, env, timeout, ignore_errors, stdin
//   - Actions: default (exit 0, ignore_errors, or safe non-error), error
type Node struct {
	runtime.BaseNode
	log *slog.Logger
}

// New creates a shell node. Shell commands can be flaky, so one retry is
// allowed by default.
func New() *Node {
	return &Node{BaseNode: runtime.NewBaseNode(1, 0), log: slog.Default()}
}

// prepared carries the validated command configuration from Prep to Exec.
type prepared struct {
	command      string
	stdin        *string
	cwd          string
	env          map[string]any
	timeout      time.Duration
	ignoreErrors bool
}

// execResult carries subprocess outcomes from Exec to Post.
type execResult struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	errMsg   string
}

// Prep validates the command, adapts stdin and collects configuration.
func (n *Node) Prep(shared map[string]any) (any, error) {
	command := n.StringParam("command", "")
	if command == "" {
		return nil, fmt.Errorf("missing required 'command' parameter")
	}

	if err := n.checkCommandTemplateSafety(command); err != nil {
		return nil, err
	}

	if pattern := matchDangerous(command); pattern != "" {
		return nil, fmt.Errorf("dangerous command pattern detected: %s", pattern)
	}

	strictMode := os.Getenv("PFLOW_SHELL_STRICT") == "true"
	if pattern := matchWarning(command); pattern != "" {
		if strictMode {
			return nil, fmt.Errorf("command blocked in strict mode: %s", pattern)
		}
		n.log.Warn("potentially dangerous command detected",
			"pattern", pattern, "command", truncate(command, 50))
	}

	// stdin comes from the shared store first, then params.
	stdinValue := shared["stdin"]
	if stdinValue == nil {
		stdinValue, _ = n.Param("stdin")
	}
	stdin, err := adaptStdin(stdinValue)
	if err != nil {
		return nil, err
	}

	cwd := n.StringParam("cwd", "")
	if cwd != "" {
		if strings.HasPrefix(cwd, "~") {
			home, err := os.UserHomeDir()
			if err == nil {
				cwd = filepath.Join(home, strings.TrimPrefix(cwd, "~"))
			}
		}
		cwd, err = filepath.Abs(cwd)
		if err != nil {
			return nil, fmt.Errorf("invalid working directory: %w", err)
		}
		info, err := os.Stat(cwd)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("working directory does not exist: %s", cwd)
		}
	}

	env, _ := n.Params()["env"].(map[string]any)

	timeout := DefaultTimeout
	if v, ok := n.Param("timeout"); ok {
		switch t := v.(type) {
		case int:
			timeout = time.Duration(t) * time.Second
		case float64:
			timeout = time.Duration(t * float64(time.Second))
		default:
			return nil, fmt.Errorf("invalid timeout value: %v", v)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("invalid timeout value: %v", v)
		}
	}

	n.log.Info("preparing command",
		"command", truncate(command, 100), "cwd", cwd, "timeout", timeout, "strict_mode", strictMode)

	return prepared{
		command:      command,
		stdin:        stdin,
		cwd:          cwd,
		env:          env,
		timeout:      timeout,
		ignoreErrors: n.BoolParam("ignore_errors", false),
	}, nil
}

// checkCommandTemplateSafety rejects commands that inline structured data.
// Template variables left in the command whose values are maps or slices
// indicate the author tried to embed JSON in a command line; that breaks on
// shell escaping and belongs on stdin instead.
func (n *Node) checkCommandTemplateSafety(command string) error {
	for varName := range template.ExtractVariables(command) {
		value, ok := n.Param(varName)
		if !ok {
			continue
		}
		switch value.(type) {
		case map[string]any, []any:
			typeName := "dict"
			if _, isList := value.([]any); isList {
				typeName = "list"
			}
			return fmt.Errorf("template variable '${%s}' in command contains structured data (%s).\n\n"+
				"Shell commands cannot safely handle JSON objects/arrays in template substitution "+
				"due to shell escaping issues.\n\n"+
				"Solution: use the 'stdin' parameter instead:\n\n"+
				"  stdin: ${%s}\n"+
				"  command: jq -r '.field'\n\n"+
				"This passes the data via stdin (no shell escaping needed) and keeps the command clean.",
				varName, typeName, varName)
		case string:
			if s := value.(string); len(s) > 500 {
				n.log.Warn("large string in command template; consider stdin",
					"var_name", varName, "size", len(s))
			}
		}
	}
	return nil
}

// Exec runs the command through the system shell.
func (n *Node) Exec(prepResult any) (any, error) {
	p, ok := prepResult.(prepared)
	if !ok {
		return nil, fmt.Errorf("unexpected prep result type %T", prepResult)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", p.command)
	cmd.Dir = p.cwd
	if len(p.env) > 0 {
		env := os.Environ()
		for key, value := range p.env {
			env = append(env, fmt.Sprintf("%s=%v", key, value))
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if p.stdin != nil {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		go func() {
			// EPIPE here means the command stopped reading; that is the
			// command's business, not ours.
			_, _ = pipe.Write([]byte(*p.stdin))
			_ = pipe.Close()
		}()
	}

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		n.log.Error("command timed out", "timeout", p.timeout)
		return execResult{
			stdout:   stdout.String(),
			stderr:   stderr.String(),
			exitCode: exitTimeout,
			timedOut: true,
			errMsg:   fmt.Sprintf("Command timed out after %v", p.timeout),
		}, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Spawn failure, not a non-zero exit.
			return nil, err
		}
	}

	exitCode := cmd.ProcessState.ExitCode()
	n.log.Info("command completed", "exit_code", exitCode, "command", truncate(p.command, 100))

	return execResult{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: exitCode,
	}, nil
}

// ExecFallback reports spawn failures as a structured result so Post still
// runs and downstream nodes see the error context.
func (n *Node) ExecFallback(prepResult any, execErr error) (any, error) {
	p, _ := prepResult.(prepared)
	n.log.Error("command execution failed", "error", execErr, "command", truncate(p.command, 100))
	return execResult{
		stderr:   execErr.Error(),
		exitCode: exitSpawnFailed,
		errMsg:   fmt.Sprintf("Failed to execute command: %v", execErr),
	}, nil
}

// Post stores outputs in the shared store and chooses the action.
func (n *Node) Post(shared map[string]any, prepResult, execRes any) (string, error) {
	p, _ := prepResult.(prepared)
	r, ok := execRes.(execResult)
	if !ok {
		return "", fmt.Errorf("unexpected exec result type %T", execRes)
	}

	shared["stdout"] = r.stdout
	shared["stderr"] = r.stderr
	shared["exit_code"] = r.exitCode
	if r.errMsg != "" {
		shared["error"] = r.errMsg
	}

	if r.timedOut {
		n.log.Warn("command timed out")
		return runtime.ActionError, nil
	}

	if r.exitCode == 0 {
		return runtime.ActionDefault, nil
	}

	if p.ignoreErrors {
		normalized := normalizeExitCode(p.command, r.exitCode, r.stdout, r.stderr)
		shared["exit_code"] = normalized
		n.log.Info("command failed but continuing (ignore_errors=true)", "exit_code", normalized)
		return runtime.ActionDefault, nil
	}

	if safe, reason := safeNonError(p.command, r.exitCode, r.stdout, r.stderr); safe {
		normalized := normalizeExitCode(p.command, r.exitCode, r.stdout, r.stderr)
		shared["exit_code"] = normalized
		// type's "not found" message lands on stdout on some platforms;
		// mirror it to stderr so behaviour matches everywhere.
		if strings.HasPrefix(strings.TrimSpace(p.command), "type ") {
			stderrNow, _ := shared["stderr"].(string)
			if !strings.Contains(stderrNow, "not found") && strings.Contains(r.stdout, "not found") {
				shared["stderr"] = r.stdout
			}
		}
		n.log.Info("auto-handling non-error", "reason", reason, "exit_code", normalized)
		return runtime.ActionDefault, nil
	}

	n.log.Warn("command failed", "exit_code", r.exitCode)
	return runtime.ActionError, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
