package cmdexec_test

import (
	"context"
	"testing"

	"github.com/amit-devb/zetten/internal/cmdexec"
	"github.com/amit-devb/zetten/internal/procsup"
	"github.com/amit-devb/zetten/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor() *cmdexec.Executor {
	return cmdexec.New(procsup.New(), nil)
}

func TestExecute_Success(t *testing.T) {
	e := newExecutor()
	res, err := e.Execute(context.Background(), cmdexec.Options{
		ResolvedCmd: "exit 0",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Success)
}

func TestExecute_NonAllowedExitCodeFails(t *testing.T) {
	e := newExecutor()
	res, err := e.Execute(context.Background(), cmdexec.Options{
		ResolvedCmd: "exit 7",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
	assert.False(t, res.Success)
}

func TestExecute_AllowedExitCodeSucceeds(t *testing.T) {
	e := newExecutor()
	res, err := e.Execute(context.Background(), cmdexec.Options{
		ResolvedCmd:    "exit 3",
		AllowExitCodes: []int{3},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, res.Success)
}

func TestExecute_ParallelCapturesOutput(t *testing.T) {
	e := newExecutor()
	res, err := e.Execute(context.Background(), cmdexec.Options{
		ResolvedCmd: "echo hello; echo world 1>&2",
		Parallel:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(res.Stdout))
	assert.Equal(t, "world\n", string(res.Stderr))
}

func TestExecute_EnvExportedWhole(t *testing.T) {
	e := newExecutor()
	env := task.Merge(nil, map[string]string{"MY_VAR": "value123"}, nil)
	res, err := e.Execute(context.Background(), cmdexec.Options{
		ResolvedCmd: "echo $MY_VAR",
		Env:         env,
		Parallel:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "value123\n", string(res.Stdout))
}

func TestRunWithLifecycle_SetupFailureSkipsMainButRunsTeardown(t *testing.T) {
	e := newExecutor()
	ran := map[string]bool{}

	resolve := func(name string) (cmdexec.Options, bool) {
		ran[name] = true
		switch name {
		case "setup":
			return cmdexec.Options{ResolvedCmd: "exit 1", Parallel: true}, true
		case "teardown":
			return cmdexec.Options{ResolvedCmd: "exit 0", Parallel: true}, true
		}
		return cmdexec.Options{}, false
	}

	mainOpts := cmdexec.Options{ResolvedCmd: "exit 0", Parallel: true}
	result, err := e.RunWithLifecycle(context.Background(), "setup", "teardown", mainOpts, resolve)
	require.NoError(t, err)

	// Main never ran: the returned result is setup's failure.
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ExitCode)
	assert.True(t, ran["teardown"], "teardown must still run after a failed setup")
}

func TestRunWithLifecycle_TeardownRunsAfterSuccess(t *testing.T) {
	e := newExecutor()
	teardownRan := false

	resolve := func(name string) (cmdexec.Options, bool) {
		if name == "teardown" {
			teardownRan = true
			return cmdexec.Options{ResolvedCmd: "exit 5", Parallel: true}, true
		}
		return cmdexec.Options{}, false
	}

	mainOpts := cmdexec.Options{ResolvedCmd: "exit 0", Parallel: true}
	result, err := e.RunWithLifecycle(context.Background(), "", "teardown", mainOpts, resolve)
	require.NoError(t, err)

	// Teardown's exit code never influences the main result.
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, teardownRan)
}
