package procsup

import (
	"os"
	"os/signal"
	"sync"
)

// InstallSignalHandler subscribes to SIGINT (POSIX) / Ctrl-C (Windows
// console), and on receipt calls registry.DrainAndKill() followed by
// onInterrupt exactly once. It returns a stop function that cancels the
// subscription without running onInterrupt, for use in tests or when a run
// completes normally.
//
// onInterrupt is typically "print a cleanup message, then os.Exit(130)";
// the supervisor package does not call os.Exit itself so it stays testable.
func InstallSignalHandler(registry *Registry, onInterrupt func()) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, interruptSignals()...)

	done := make(chan struct{})
	var once sync.Once

	go func() {
		select {
		case <-sigCh:
			registry.DrainAndKill()
			if onInterrupt != nil {
				onInterrupt()
			}
		case <-done:
		}
	}()

	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
}
