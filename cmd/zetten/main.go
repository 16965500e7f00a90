// Command zetten wires the engine packages together behind a minimal,
// hand-rolled argument parser. A full CLI surface (subcommands, --help
// generation, shell completion) is explicitly out of scope; this binary
// exists to drive the engine end to end, not to be a polished interface.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/amit-devb/zetten/internal/cache"
	"github.com/amit-devb/zetten/internal/cmdexec"
	"github.com/amit-devb/zetten/internal/config"
	"github.com/amit-devb/zetten/internal/engerrors"
	"github.com/amit-devb/zetten/internal/enginelog"
	"github.com/amit-devb/zetten/internal/graph"
	"github.com/amit-devb/zetten/internal/procsup"
	"github.com/amit-devb/zetten/internal/scheduler"
	"github.com/amit-devb/zetten/internal/selector"
	"github.com/amit-devb/zetten/internal/task"
	"github.com/amit-devb/zetten/internal/watch"
)

// invocation is every CLI input, canonicalized up front, mirroring the
// teacher's "parse everything into one struct before touching engine logic"
// boundary.
type invocation struct {
	configPath  string
	cacheDir    string
	workers     int
	tagExpr     string
	watchMode   bool
	metricsAddr string // non-empty enables a Prometheus /metrics listener
	tasks       []string
	forwarded   []string // tokens after "--", split into positional args / overrides downstream
}

func parseArgs(args []string) invocation {
	inv := invocation{configPath: "zetten.yaml", cacheDir: cache.DirName}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			inv.forwarded = append(inv.forwarded, args[i+1:]...)
			return inv

		case a == "--watch":
			inv.watchMode = true

		case a == "--config":
			i++
			if i < len(args) {
				inv.configPath = args[i]
			}
		case strings.HasPrefix(a, "--config="):
			inv.configPath = strings.TrimPrefix(a, "--config=")

		case a == "--cache-dir":
			i++
			if i < len(args) {
				inv.cacheDir = args[i]
			}
		case strings.HasPrefix(a, "--cache-dir="):
			inv.cacheDir = strings.TrimPrefix(a, "--cache-dir=")

		case a == "--workers":
			i++
			if i < len(args) {
				inv.workers, _ = strconv.Atoi(args[i])
			}
		case strings.HasPrefix(a, "--workers="):
			inv.workers, _ = strconv.Atoi(strings.TrimPrefix(a, "--workers="))

		case a == "--tags":
			i++
			if i < len(args) {
				inv.tagExpr = args[i]
			}
		case strings.HasPrefix(a, "--tags="):
			inv.tagExpr = strings.TrimPrefix(a, "--tags=")

		case a == "--metrics-addr":
			i++
			if i < len(args) {
				inv.metricsAddr = args[i]
			}
		case strings.HasPrefix(a, "--metrics-addr="):
			inv.metricsAddr = strings.TrimPrefix(a, "--metrics-addr=")

		default:
			inv.tasks = append(inv.tasks, a)
		}
	}

	return inv
}

func main() {
	inv := parseArgs(os.Args[1:])
	logger := enginelog.New(os.Stderr, zerolog.InfoLevel)

	cfg, err := config.Load(inv.configPath)
	if err != nil {
		fail(err, 0)
	}

	universe, err := graph.NewUniverse(cfg.Tasks)
	if err != nil {
		fail(err, 0)
	}

	roots := resolveRoots(inv, cfg)
	if len(roots) == 0 {
		fail(engerrors.User("no tasks selected: pass task names or --tags"), 0)
	}

	registry := procsup.New()
	stopSignals := procsup.InstallSignalHandler(registry, func() {
		logger.Warn("interrupt received, draining running tasks")
		os.Exit(130)
	})
	defer stopSignals()

	executor := cmdexec.New(registry, logger)
	store := cache.NewStore(inv.cacheDir)
	sched := scheduler.New(universe, cfg.Vars, store, executor, logger)

	if inv.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		sched.Metrics = scheduler.NewPrometheusMetrics(reg)
		serveMetrics(inv.metricsAddr, reg, logger)
	}

	ctx := context.Background()

	if inv.watchMode {
		loop := watch.New(inv.configPath, func() (task.Config, error) {
			return config.Load(inv.configPath)
		}, sched, roots, watch.DefaultDebounce, logger)

		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fail(err, 0)
		}
		return
	}

	positional, overrides := task.SplitPositional(inv.forwarded)

	summary, err := sched.Run(ctx, scheduler.RunOptions{
		Roots:      roots,
		Workers:    inv.workers,
		Positional: positional,
		Overrides:  overrides,
	})
	if err != nil {
		fail(err, 0)
	}

	printSummary(summary)

	if summary.Failed > 0 {
		replayOutput(summary)
		fail(engerrors.TaskFailure(summary.FailingTask, summary.FailingExitCode), summary.FailingExitCode)
	}
}

// resolveRoots picks the root tasks: a non-empty --tags expression replaces
// any explicitly named tasks with every configured task it matches; an
// empty tag expression leaves the explicitly named tasks untouched.
func resolveRoots(inv invocation, cfg task.Config) []string {
	if inv.tagExpr == "" {
		return inv.tasks
	}

	sel := selector.Parse(inv.tagExpr)
	var roots []string
	for _, t := range cfg.Tasks {
		if sel.Matches(t.Tags) {
			roots = append(roots, t.Name)
		}
	}
	return roots
}

// replayOutput writes the failing task's captured stdout/stderr, if any,
// to this process's own streams. In parallel mode the child's output was
// only ever captured into buffers on its TaskOutcome, never echoed live;
// this is the one place that output actually reaches the user.
func replayOutput(s *scheduler.RunSummary) {
	for _, o := range s.Outcomes {
		if o.Name != s.FailingTask {
			continue
		}
		if len(o.Stdout) > 0 {
			os.Stdout.Write(o.Stdout)
		}
		if len(o.Stderr) > 0 {
			os.Stderr.Write(o.Stderr)
		}
		return
	}
}

func printSummary(s *scheduler.RunSummary) {
	fmt.Printf("run %s: %d succeeded, %d cached, %d warned, %d failed (wall %s, saved %s)\n",
		s.RunID, s.Succeeded, s.Cached, s.Warned, s.Failed, s.Wall, s.SavedViaParallelism)
	if len(s.CriticalPath) > 0 {
		fmt.Printf("critical path: %s\n", strings.Join(s.CriticalPath, " -> "))
	}
}

// serveMetrics starts a background HTTP listener exposing reg's collectors
// at /metrics. A bind failure is logged, not fatal: metrics are an optional
// observability surface, not a requirement for task execution.
func serveMetrics(addr string, reg *prometheus.Registry, logger enginelog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics listener stopped", err)
		}
	}()
	logger.Info("serving prometheus metrics", enginelog.F("addr", addr))
}

func fail(err error, taskExitCode int) {
	fmt.Fprintln(os.Stderr, err)
	code, _ := engerrors.ExitCode(err, taskExitCode)
	os.Exit(code)
}
