//go:build !windows

package procsup

import (
	"os"
	"syscall"
)

func interruptSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT}
}
