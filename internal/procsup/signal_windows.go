//go:build windows

package procsup

import "os"

func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
