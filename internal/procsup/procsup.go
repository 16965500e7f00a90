// Package procsup implements a process-wide registry of live child
// handles, used for signal-driven cleanup on interruption.
package procsup

import (
	"os"
	"sync"
)

// Handle is the minimal surface the supervisor needs from a running child
// process. *os.Process satisfies it directly.
type Handle interface {
	Kill() error
}

// ID identifies a registered handle for deregistration. The registry keys
// on an opaque, monotonically increasing ID rather than a logical task
// name, since a single task may spawn more than one child (setup, main,
// teardown) across its lifetime, and children are only ever referenced by
// handle once registered.
type ID uint64

// Registry is the process-wide, mutex-protected table of currently-running
// child handles. The zero value is not usable; use New.
type Registry struct {
	mu      sync.Mutex
	next    ID
	entries map[ID]Handle
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[ID]Handle)}
}

// Register inserts h and returns the ID to later Deregister it with.
func (r *Registry) Register(h Handle) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := r.next
	r.entries[id] = h
	return id
}

// Deregister removes the handle identified by id, if still present. It is
// safe to call more than once or with an unknown ID.
func (r *Registry) Deregister(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Contains reports whether id is still registered. Used by the Command
// Executor's poll loop to detect that DrainAndKill removed a handle out
// from under it, signaling cancellation.
func (r *Registry) Contains(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Len reports the number of currently-registered handles. Exposed for
// tests and metrics; it does not hold the lock any longer than necessary.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// DrainAndKill best-effort kills every registered handle and empties the
// registry. It is designed to run from an asynchronous signal handler: a
// single lock acquisition, no allocation beyond the slice copy needed to
// kill outside the critical section, no blocking. The rare race where a
// child exits between this function reading the registry and calling Kill
// is accepted.
func (r *Registry) DrainAndKill() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.entries))
	for id, h := range r.entries {
		handles = append(handles, h)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	for _, h := range handles {
		_ = h.Kill()
	}
}

// OSProcessHandle adapts *os.Process to Handle. Exists so callers do not
// need to import os themselves just to satisfy the interface.
type OSProcessHandle struct {
	Process *os.Process
}

func (h OSProcessHandle) Kill() error {
	if h.Process == nil {
		return nil
	}
	return h.Process.Kill()
}
