package cmdexec

import (
	"context"

	"github.com/amit-devb/zetten/internal/enginelog"
)

// CmdResolver resolves a named task's command template (and that task's own
// options) into something Execute can run. The scheduler supplies this so
// cmdexec does not need to depend on the graph/task-lookup machinery.
type CmdResolver func(taskName string) (Options, bool)

// RunWithLifecycle executes mainOpts, wrapped by the declared setup/
// teardown tasks:
//
//   - If setupTask is non-empty, its resolved command runs synchronously
//     first. A setup failure skips the main command entirely, but
//     teardown (if declared) still runs.
//   - teardownTask, if declared, always runs after the main command (or
//     after a skipped one); its exit code never influences the returned
//     Result.
//
// The returned Result is the main command's result, or the setup's failure
// result if the main command was skipped.
func (e *Executor) RunWithLifecycle(ctx context.Context, setupTask, teardownTask string, mainOpts Options, resolve CmdResolver) (Result, error) {
	skip := false
	var result Result

	if setupTask != "" {
		setupOpts, ok := resolve(setupTask)
		if ok {
			setupResult, err := e.Execute(ctx, setupOpts)
			if err != nil {
				return Result{}, err
			}
			if !setupResult.Success {
				skip = true
				result = setupResult
				e.Logger.Warn("setup task failed, skipping main command", enginelog.F("setup_task", setupTask))
			}
		}
	}

	if !skip {
		var err error
		result, err = e.Execute(ctx, mainOpts)
		if err != nil {
			return Result{}, err
		}
	}

	if teardownTask != "" {
		teardownOpts, ok := resolve(teardownTask)
		if ok {
			if _, err := e.Execute(ctx, teardownOpts); err != nil {
				e.Logger.Error("teardown task failed to start", err, enginelog.F("teardown_task", teardownTask))
			}
		}
	}

	return result, nil
}
