//go:build unix

package engine

import (
	"os/signal"
	"sync"
	"syscall"
)

var sigpipeOnce sync.Once

// ignoreSIGPIPE installs SIG_IGN for SIGPIPE at the process level. Without
// this, a shell command that closes its stdin while the runtime is still
// writing a large buffered input kills the host process with exit 141.
func ignoreSIGPIPE() {
	sigpipeOnce.Do(func() {
		signal.Ignore(syscall.SIGPIPE)
	})
}
