// Package cmdexec implements the Command Executor: builds an
// OS shell invocation from a resolved command string, applies environment
// augmentation, selects the I/O mode and runs the child to completion (or
// detects cancellation via the Process Supervisor registry).
package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/amit-devb/zetten/internal/enginelog"
	"github.com/amit-devb/zetten/internal/procsup"
	"github.com/amit-devb/zetten/internal/task"
)

// pollInterval is the poll period for detecting child completion or
// registry-driven cancellation.
const pollInterval = 50 * time.Millisecond

// Result is the outcome of a single command execution.
type Result struct {
	ExitCode  int
	Success   bool
	Duration  time.Duration
	Stdout    []byte
	Stderr    []byte
	Cancelled bool // true iff the run was cancelled mid-flight (exit code 130)
}

// Options carries the per-invocation inputs to Execute.
type Options struct {
	// ResolvedCmd is the command string after ${VAR} resolution and
	// positional-argument suffixing.
	ResolvedCmd string

	// Env is the three-tier variable map to export whole to the child.
	Env task.VarEnv

	// AllowExitCodes mirrors the owning task's allow list, used only for
	// Success classification here; the task itself decides caching.
	AllowExitCodes []int

	// Parallel indicates scheduler mode. Combined with Interactive it
	// selects the I/O policy.
	Parallel bool

	// Interactive forces stdin/stdout/stderr inheritance regardless of
	// Parallel.
	Interactive bool

	// WorkingDir is the directory the child runs in.
	WorkingDir string
}

// Executor runs shell commands as OS children, registering them with a
// Process Supervisor for signal-driven cleanup.
type Executor struct {
	Registry *procsup.Registry
	Logger   enginelog.Logger
}

// New creates an Executor backed by the given registry.
func New(registry *procsup.Registry, logger enginelog.Logger) *Executor {
	if logger == nil {
		logger = enginelog.Nop{}
	}
	return &Executor{Registry: registry, Logger: logger}
}

// Execute runs a single resolved command to completion.
//
// Preprocessing: a leading '@' enables quiet mode (the command is not
// echoed). In non-parallel, non-quiet mode the command is echoed to stdout
// before execution.
func (e *Executor) Execute(ctx context.Context, opts Options) (Result, error) {
	resolvedCmd := opts.ResolvedCmd
	quiet := false
	if strings.HasPrefix(resolvedCmd, "@") {
		quiet = true
		resolvedCmd = resolvedCmd[1:]
	}

	if !opts.Parallel && !quiet {
		fmt.Fprintln(os.Stdout, resolvedCmd)
	}

	name, args := shellInvocation(resolvedCmd)
	cmd := exec.Command(name, args...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}
	cmd.Env = augmentedEnviron(opts.Env, opts.WorkingDir)

	interactive := opts.Interactive
	parallel := opts.Parallel && !interactive

	var stdoutBuf, stderrBuf bytes.Buffer
	var drainWG sync.WaitGroup

	switch {
	case interactive:
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	case parallel:
		stdoutPipe, err := cmd.StdoutPipe()
		if err != nil {
			return Result{}, fmt.Errorf("cmdexec: stdout pipe: %w", err)
		}
		stderrPipe, err := cmd.StderrPipe()
		if err != nil {
			return Result{}, fmt.Errorf("cmdexec: stderr pipe: %w", err)
		}
		// Two dedicated reader goroutines drain the pipes concurrently so
		// neither can block the child on a full >64KB pipe buffer while the
		// other is still being written.
		drainWG.Add(2)
		go func() { defer drainWG.Done(); _, _ = io.Copy(&stdoutBuf, stdoutPipe) }()
		go func() { defer drainWG.Done(); _, _ = io.Copy(&stderrBuf, stderrPipe) }()
	default:
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("cmdexec: start: %w", err)
	}

	id := e.Registry.Register(procsup.OSProcessHandle{Process: cmd.Process})

	waitDone := make(chan error, 1)
	go func() {
		// Wait closes the pipes once the child exits, so it only runs after
		// both readers have hit EOF; otherwise buffered output could be lost.
		drainWG.Wait()
		waitDone <- cmd.Wait()
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var waitErr error
	cancelled := false
pollLoop:
	for {
		select {
		case waitErr = <-waitDone:
			break pollLoop
		case <-ticker.C:
			if !e.Registry.Contains(id) {
				// The handle was removed out from under us by
				// DrainAndKill: this run was cancelled.
				cancelled = true
				break pollLoop
			}
		case <-ctx.Done():
			cancelled = true
			break pollLoop
		}
	}

	e.Registry.Deregister(id)
	drainWG.Wait()
	duration := time.Since(start)

	if cancelled {
		return Result{ExitCode: 130, Success: false, Duration: duration, Cancelled: true}, nil
	}

	exitCode, err := exitCodeFromWaitErr(waitErr)
	if err != nil {
		return Result{}, fmt.Errorf("cmdexec: %w", err)
	}

	success := exitCode == 0
	for _, c := range opts.AllowExitCodes {
		if c == exitCode {
			success = true
			break
		}
	}

	return Result{
		ExitCode: exitCode,
		Success:  success,
		Duration: duration,
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
	}, nil
}

func exitCodeFromWaitErr(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

// shellInvocation picks the OS shell and wraps resolvedCmd as a single
// argument, so shell metacharacters (pipes, redirects, &&) work.
func shellInvocation(resolvedCmd string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", resolvedCmd}
	}
	return "sh", []string{"-c", resolvedCmd}
}

// venvDirs lists, in priority order, the per-OS virtual-environment bin
// directory names the executor looks for relative to the working
// directory.
func venvDirs() []string {
	if runtime.GOOS == "windows" {
		return []string{`.venv\Scripts`, `venv\Scripts`}
	}
	return []string{".venv/bin", "venv/bin"}
}

// augmentedEnviron exports env's three-tier map whole, prepending the
// first existing venv bin directory to PATH and setting VIRTUAL_ENV when
// one is found.
func augmentedEnviron(env task.VarEnv, workingDir string) []string {
	environ := env.Environ()

	base := workingDir
	if base == "" {
		base = "."
	}

	var venvBin, venvRoot string
	for _, candidate := range venvDirs() {
		full := filepath.Join(base, candidate)
		if info, err := os.Stat(full); err == nil && info.IsDir() {
			venvBin = full
			venvRoot = filepath.Dir(candidate) // ".venv" or "venv"
			break
		}
	}
	if venvBin == "" {
		return environ
	}

	pathKey := "PATH"
	pathVal, _ := env.Lookup("PATH")

	augmented := make([]string, 0, len(environ)+1)
	sawPath := false
	for _, kv := range environ {
		if strings.HasPrefix(kv, pathKey+"=") {
			sawPath = true
			augmented = append(augmented, pathKey+"="+venvBin+string(os.PathListSeparator)+pathVal)
			continue
		}
		augmented = append(augmented, kv)
	}
	if !sawPath {
		augmented = append(augmented, pathKey+"="+venvBin)
	}
	augmented = append(augmented, "VIRTUAL_ENV="+venvRoot)
	return augmented
}
