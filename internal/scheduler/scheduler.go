package scheduler

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/amit-devb/zetten/internal/cache"
	"github.com/amit-devb/zetten/internal/cmdexec"
	"github.com/amit-devb/zetten/internal/engerrors"
	"github.com/amit-devb/zetten/internal/enginelog"
	"github.com/amit-devb/zetten/internal/fingerprint"
	"github.com/amit-devb/zetten/internal/graph"
	"github.com/amit-devb/zetten/internal/task"
	"golang.org/x/sync/semaphore"
)

// Scheduler drives one or more task closures to completion, short-circuiting
// cacheable tasks, bounding concurrency to a fixed worker count, and
// stopping new dispatch on the first non-ignored failure.
type Scheduler struct {
	Universe   *graph.Universe
	ConfigVars map[string]string
	Cache      *cache.Store
	Executor   *cmdexec.Executor
	Logger     enginelog.Logger
	Metrics    Metrics
	Clock      Clock
	WorkingDir string
}

// New builds a Scheduler, filling in the zero-value-safe defaults (Nop
// logger, NoopMetrics, RealClock) the caller left unset.
func New(universe *graph.Universe, configVars map[string]string, store *cache.Store, executor *cmdexec.Executor, logger enginelog.Logger) *Scheduler {
	if logger == nil {
		logger = enginelog.Nop{}
	}
	return &Scheduler{
		Universe:   universe,
		ConfigVars: configVars,
		Cache:      store,
		Executor:   executor,
		Logger:     logger,
		Metrics:    NoopMetrics{},
		Clock:      RealClock{},
	}
}

// taskResult is the internal message a dispatched task goroutine reports
// back through resultCh.
type taskResult struct {
	name         string
	outcome      Outcome
	success      bool
	ignoreErrors bool
	exitCode     int
	duration     time.Duration
	hint         string
	cancelled    bool
	stdout       []byte
	stderr       []byte
	err          error
}

// Run resolves opts.Roots to a closure and drives it to completion,
// returning a RunSummary. A non-nil error means the run never started (a
// resolution failure); a failed task within an otherwise-started run is
// reported through the summary, not through the returned error.
func (s *Scheduler) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	closure, err := s.Universe.Resolve(opts.Roots)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	parallel := len(closure.Names) > 1 && workers > 1
	argsForwarded := len(opts.Positional) > 0

	env := task.MergeOSEnv(s.ConfigVars, opts.Overrides)

	orderIndex := make(map[string]int, len(closure.Order))
	for i, n := range closure.Order {
		orderIndex[n] = i
	}

	inDegree := make(map[string]int, len(closure.InDegree))
	for n, d := range closure.InDegree {
		inDegree[n] = d
	}

	var ready []string
	for _, n := range closure.Names {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sortByOrder(ready, orderIndex)

	sem := semaphore.NewWeighted(int64(workers))
	resultCh := make(chan taskResult, len(closure.Names))

	var failFast bool
	var failingTask string
	var failingExitCode int

	durations := make(map[string]time.Duration, len(closure.Names))
	outcomes := make([]TaskOutcome, 0, len(closure.Names))
	runStart := s.clockNow()
	inFlight := 0

	// Dispatching spawns one goroutine per ready task, immediately blocking
	// on the semaphore; this bounds actual concurrency to workers without
	// needing a persistent worker-thread pool. Completion is tracked purely
	// through resultCh/inFlight, so no separate WaitGroup is needed.
	dispatch := func(name string) {
		inFlight++
		go func() {
			if err := sem.Acquire(ctx, 1); err != nil {
				resultCh <- taskResult{name: name, outcome: OutcomeFailed, err: err}
				return
			}
			defer sem.Release(1)
			resultCh <- s.runOneTask(ctx, name, env, argsForwarded, parallel, opts.Positional)
		}()
	}

	for _, n := range ready {
		dispatch(n)
	}
	ready = nil

	for inFlight > 0 {
		res := <-resultCh
		inFlight--

		durations[res.name] = res.duration
		outcomes = append(outcomes, TaskOutcome{
			Name:      res.name,
			Outcome:   res.outcome,
			ExitCode:  res.exitCode,
			Duration:  res.duration,
			Hint:      res.hint,
			Cancelled: res.cancelled,
			Stdout:    res.stdout,
			Stderr:    res.stderr,
		})
		s.Metrics.TaskCompleted(res.name, res.outcome, res.duration)

		if res.err != nil {
			s.Logger.Error("task run failed", res.err, enginelog.F("task", res.name))
		}

		if res.outcome == OutcomeFailed && !failFast {
			failFast = true
			failingTask = res.name
			failingExitCode = res.exitCode
			if parallel {
				s.Logger.Warn("task failed, captured stdout/stderr on its TaskOutcome", enginelog.F("task", res.name))
			}
		}

		if !failFast {
			for _, dep := range closure.Dependents[res.name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					ready = append(ready, dep)
				}
			}
			sortByOrder(ready, orderIndex)
			for _, n := range ready {
				dispatch(n)
			}
			ready = nil
		}
	}

	wall := s.clockNow().Sub(runStart)

	summary := &RunSummary{
		RunID:           uuid.NewString(),
		Outcomes:        sortOutcomesByOrder(outcomes, orderIndex),
		Wall:            wall,
		FailingTask:     failingTask,
		FailingExitCode: failingExitCode,
	}
	for _, o := range summary.Outcomes {
		switch o.Outcome {
		case OutcomeSucceeded:
			summary.Succeeded++
		case OutcomeCached:
			summary.Cached++
		case OutcomeWarned:
			summary.Warned++
		case OutcomeFailed:
			summary.Failed++
		}
	}

	var sumDurations time.Duration
	for _, d := range durations {
		sumDurations += d
	}
	if sumDurations > wall {
		summary.SavedViaParallelism = sumDurations - wall
	}

	if path := criticalPath(closure, durations); len(path) > 1 {
		summary.CriticalPath = path
	}

	return summary, nil
}

// runOneTask executes a single task's full lifecycle (cache check, setup,
// main, teardown, cache write-back), never returning an error: any failure
// to run is reported as an OutcomeFailed result so the dispatch loop never
// needs special-case error handling per task.
func (s *Scheduler) runOneTask(ctx context.Context, name string, env task.VarEnv, argsForwarded, parallel bool, positional []string) taskResult {
	t, ok := s.Universe.Task(name)
	if !ok {
		return taskResult{name: name, outcome: OutcomeFailed, err: engerrors.UserTask(name, "task vanished from universe mid-run")}
	}

	start := s.clockNow()

	if t.Cacheable() && !argsForwarded {
		if digest, hit, err := s.Cache.Get(name); err == nil && hit {
			if fp, ferr := fingerprint.Compute(t.Inputs); ferr == nil && fp == digest {
				return taskResult{name: name, outcome: OutcomeCached, success: true, exitCode: 0, duration: 0}
			}
		}
	}

	resolvedCmd := task.AppendPositional(task.ResolveCmd(t.Cmd, env), positional)
	mainOpts := cmdexec.Options{
		ResolvedCmd:    resolvedCmd,
		Env:            env,
		AllowExitCodes: t.AllowExitCodes,
		Parallel:       parallel,
		Interactive:    t.Interactive,
		WorkingDir:     s.WorkingDir,
	}

	resolve := func(depName string) (cmdexec.Options, bool) {
		dt, ok := s.Universe.Task(depName)
		if !ok {
			return cmdexec.Options{}, false
		}
		return cmdexec.Options{
			ResolvedCmd:    task.ResolveCmd(dt.Cmd, env),
			Env:            env,
			AllowExitCodes: dt.AllowExitCodes,
			Parallel:       parallel,
			Interactive:    dt.Interactive,
			WorkingDir:     s.WorkingDir,
		}, true
	}

	result, err := s.Executor.RunWithLifecycle(ctx, t.Setup, t.Teardown, mainOpts, resolve)
	if err != nil {
		return taskResult{name: name, outcome: OutcomeFailed, err: err, duration: s.clockNow().Sub(start)}
	}

	if result.Success && t.Cacheable() && !argsForwarded {
		if fp, ferr := fingerprint.Compute(t.Inputs); ferr == nil {
			if werr := s.Cache.Put(name, fp); werr != nil {
				s.Logger.Warn("cache write failed", enginelog.F("task", name), enginelog.F("error", werr.Error()))
			}
		}
	}

	outcome := OutcomeSucceeded
	if !result.Success {
		if t.IgnoreErrors {
			outcome = OutcomeWarned
		} else {
			outcome = OutcomeFailed
		}
	}

	return taskResult{
		name:         name,
		outcome:      outcome,
		success:      result.Success,
		ignoreErrors: t.IgnoreErrors,
		exitCode:     result.ExitCode,
		duration:     result.Duration,
		hint:         t.Hint,
		cancelled:    result.Cancelled,
		stdout:       result.Stdout,
		stderr:       result.Stderr,
	}
}

func (s *Scheduler) clockNow() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func sortByOrder(names []string, orderIndex map[string]int) {
	sort.Slice(names, func(i, j int) bool { return orderIndex[names[i]] < orderIndex[names[j]] })
}

func sortOutcomesByOrder(outcomes []TaskOutcome, orderIndex map[string]int) []TaskOutcome {
	sort.SliceStable(outcomes, func(i, j int) bool {
		return orderIndex[outcomes[i].Name] < orderIndex[outcomes[j].Name]
	})
	return outcomes
}
