package engine

import (
	"github.com/spinje/pflow/pkg/nodes/file"
	"github.com/spinje/pflow/pkg/nodes/shell"
	"github.com/spinje/pflow/pkg/runtime"
)

// DefaultRegistry returns a registry with all built-in node types. Callers
// can register custom nodes on top before handing it to an Executor.
func DefaultRegistry() *runtime.Registry {
	reg := runtime.NewRegistry()

	reg.MustRegister(shell.TypeName, shell.Entry(), func() runtime.Node { return shell.New() })

	reg.MustRegister(file.TypeRead, file.ReadEntry(), func() runtime.Node { return file.NewRead() })
	reg.MustRegister(file.TypeWrite, file.WriteEntry(), func() runtime.Node { return file.NewWrite() })
	reg.MustRegister(file.TypeCopy, file.CopyEntry(), func() runtime.Node { return file.NewCopy() })
	reg.MustRegister(file.TypeMove, file.MoveEntry(), func() runtime.Node { return file.NewMove() })
	reg.MustRegister(file.TypeDelete, file.DeleteEntry(), func() runtime.Node { return file.NewDelete() })

	return reg
}
