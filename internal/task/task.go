// Package task defines the declarative task model the engine executes, and
// the three-tier variable environment used to resolve command templates.
package task

// Task is a single named unit of work in the dependency graph.
//
// Nothing here is implied or derived (no creation timestamps, no
// host-specific data) so that two processes loading the same
// configuration build identical graphs.
type Task struct {
	// Name is the task's identity within a run. Must be unique.
	Name string `json:"name" yaml:"name"`

	// Cmd is a shell command template. May contain ${VAR} and
	// ${VAR:-default} placeholders, resolved against the three-tier
	// variable environment before the shell ever sees it.
	Cmd string `json:"cmd" yaml:"cmd"`

	// Inputs is the ordered list of path patterns hashed by the
	// Fingerprinter. An empty list makes the task uncacheable.
	Inputs []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// DependsOn lists the names of tasks that must complete before this
	// one may start.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// AllowExitCodes is the set of non-zero exit codes still treated as
	// success.
	AllowExitCodes []int `json:"allow_exit_codes,omitempty" yaml:"allow_exit_codes,omitempty"`

	// IgnoreErrors downgrades a failure to a warning: peers are not
	// stopped, but the task is not reported as a plain success either.
	IgnoreErrors bool `json:"ignore_errors,omitempty" yaml:"ignore_errors,omitempty"`

	// Tags support the selector grammar (e.g. "ci+slow,!flaky").
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Hint is surfaced to the user alongside a failure.
	Hint string `json:"hint,omitempty" yaml:"hint,omitempty"`

	// Setup, if set, names a task whose command runs synchronously before
	// Cmd. A setup failure skips Cmd but Teardown still runs.
	Setup string `json:"setup,omitempty" yaml:"setup,omitempty"`

	// Teardown, if set, names a task whose command runs unconditionally
	// after Cmd (or after a failed Setup). Its exit code never affects
	// this task's success.
	Teardown string `json:"teardown,omitempty" yaml:"teardown,omitempty"`

	// Interactive forces stdin/stdout/stderr inheritance even when the
	// scheduler is running in parallel mode.
	Interactive bool `json:"interactive,omitempty" yaml:"interactive,omitempty"`
}

// IsSuccess classifies an exit code: zero, or a member of AllowExitCodes.
func (t Task) IsSuccess(exitCode int) bool {
	if exitCode == 0 {
		return true
	}
	for _, c := range t.AllowExitCodes {
		if c == exitCode {
			return true
		}
	}
	return false
}

// HasTag reports whether t carries the given tag.
func (t Task) HasTag(tag string) bool {
	for _, g := range t.Tags {
		if g == tag {
			return true
		}
	}
	return false
}

// Cacheable reports whether t is eligible for the cache short-circuit at
// all, independent of whether a particular run forwards positional
// arguments (that check lives in the scheduler, since it is a per-run
// concern, not a per-task one).
func (t Task) Cacheable() bool {
	return len(t.Inputs) > 0 && !t.Interactive
}

// Config is the in-memory, already-parsed configuration the engine
// consumes. Config carries both yaml and json tags so the loader in
// internal/config (or any other caller) can unmarshal straight into
// these structs.
type Config struct {
	Tasks []Task            `json:"tasks" yaml:"tasks"`
	Vars  map[string]string `json:"vars,omitempty" yaml:"vars,omitempty"`
}

// TaskByName looks a task up in c.Tasks by name. The boolean is false (with
// a zero Task) if no task has that name.
func (c Config) TaskByName(name string) (Task, bool) {
	for _, t := range c.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}
