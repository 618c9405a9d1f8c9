package shell

import "github.com/spinje/pflow/pkg/runtime"

// TypeName is the registry key for this node.
const TypeName = "shell"

// Entry describes the shell node's interface for the registry.
func Entry() runtime.Entry {
	return runtime.Entry{
		Inputs: []runtime.PortSpec{
			{Key: "stdin", Type: "any", Description: "Optional input data piped to the command"},
		},
		Params: []runtime.PortSpec{
			{Key: "command", Type: "str", Required: true},
			{Key: "cwd", Type: "str"},
			{Key: "env", Type: "dict"},
			{Key: "timeout", Type: "int"},
			{Key: "ignore_errors", Type: "bool"},
			{Key: "stdin", Type: "any"},
		},
		Outputs: []runtime.PortSpec{
			{Key: "stdout", Type: "str", Description: "Command standard output"},
			{Key: "stderr", Type: "str", Description: "Command error output"},
			{Key: "exit_code", Type: "int", Description: "Process exit code"},
		},
		Actions:   []string{runtime.ActionDefault, runtime.ActionError},
		Module:    "pflow/nodes/shell",
		ClassName: "Node",
		FilePath:  "pkg/nodes/shell/shell.go",
	}
}
