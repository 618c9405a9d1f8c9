package file

import "github.com/spinje/pflow/pkg/runtime"

// Registry keys for the file nodes.
const (
	TypeRead   = "read-file"
	TypeWrite  = "write-file"
	TypeCopy   = "copy-file"
	TypeMove   = "move-file"
	TypeDelete = "delete-file"
)

var defaultActions = []string{runtime.ActionDefault, runtime.ActionError}

// ReadEntry describes the read-file node interface.
func ReadEntry() runtime.Entry {
	return runtime.Entry{
		Params: []runtime.PortSpec{
			{Key: "file_path", Type: "str", Required: true},
		},
		Outputs: []runtime.PortSpec{
			{Key: "content", Type: "str", Description: "File content with 1-indexed line numbers"},
		},
		Actions:   defaultActions,
		Module:    "pflow/nodes/file",
		ClassName: "ReadNode",
		FilePath:  "pkg/nodes/file/read.go",
	}
}

// WriteEntry describes the write-file node interface.
func WriteEntry() runtime.Entry {
	return runtime.Entry{
		Params: []runtime.PortSpec{
			{Key: "content", Type: "str", Required: true},
			{Key: "file_path", Type: "str", Required: true},
			{Key: "append", Type: "bool"},
		},
		Outputs: []runtime.PortSpec{
			{Key: "written", Type: "str"},
		},
		Actions:   defaultActions,
		Module:    "pflow/nodes/file",
		ClassName: "WriteNode",
		FilePath:  "pkg/nodes/file/write.go",
	}
}

// CopyEntry describes the copy-file node interface.
func CopyEntry() runtime.Entry {
	return runtime.Entry{
		Params: []runtime.PortSpec{
			{Key: "source_path", Type: "str", Required: true},
			{Key: "dest_path", Type: "str", Required: true},
			{Key: "overwrite", Type: "bool"},
		},
		Outputs: []runtime.PortSpec{
			{Key: "copied", Type: "str"},
		},
		Actions:   defaultActions,
		Module:    "pflow/nodes/file",
		ClassName: "CopyNode",
		FilePath:  "pkg/nodes/file/copy.go",
	}
}

// MoveEntry describes the move-file node interface.
func MoveEntry() runtime.Entry {
	return runtime.Entry{
		Params: []runtime.PortSpec{
			{Key: "source_path", Type: "str", Required: true},
			{Key: "dest_path", Type: "str", Required: true},
			{Key: "overwrite", Type: "bool"},
		},
		Outputs: []runtime.PortSpec{
			{Key: "moved", Type: "str"},
		},
		Actions:   defaultActions,
		Module:    "pflow/nodes/file",
		ClassName: "MoveNode",
		FilePath:  "pkg/nodes/file/move.go",
	}
}

// DeleteEntry describes the delete-file node interface.
func DeleteEntry() runtime.Entry {
	return runtime.Entry{
		Params: []runtime.PortSpec{
			{Key: "file_path", Type: "str", Required: true},
			{Key: "confirm_delete", Type: "bool", Required: true},
			{Key: "recursive", Type: "bool"},
		},
		Outputs: []runtime.PortSpec{
			{Key: "deleted", Type: "str"},
		},
		Actions:   defaultActions,
		Module:    "pflow/nodes/file",
		ClassName: "DeleteNode",
		FilePath:  "pkg/nodes/file/delete.go",
	}
}
