// Package watch implements the Watch Loop: it keeps
// recursive filesystem watches registered on every selected task's declared
// input paths plus the configuration file, debounces bursts of filesystem
// events, computes which tasks those events affect, and re-invokes a
// Scheduler with the affected set as roots. Reloading the configuration
// file re-registers watches from scratch, since the task graph (and
// therefore the input paths to watch) may have changed shape entirely.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	microbatch "github.com/joeycumines/go-microbatch"

	"github.com/amit-devb/zetten/internal/engerrors"
	"github.com/amit-devb/zetten/internal/enginelog"
	"github.com/amit-devb/zetten/internal/fingerprint"
	"github.com/amit-devb/zetten/internal/graph"
	"github.com/amit-devb/zetten/internal/scheduler"
	"github.com/amit-devb/zetten/internal/task"
)

// DefaultDebounce is the batching window for filesystem events: a batch is
// flushed this long after its first event arrives, whether or not further
// events are still arriving; the window is not reset by later events.
const DefaultDebounce = 300 * time.Millisecond

// ConfigLoader reloads configuration from its source into a fresh
// task.Config. Parsing the configuration file is an external collaborator's
// job; the Watch Loop only calls back into it on change.
type ConfigLoader func() (task.Config, error)

// Loop drives repeated Scheduler runs in response to filesystem activity.
type Loop struct {
	ConfigPath string
	Loader     ConfigLoader
	Scheduler  *scheduler.Scheduler
	Roots      []string
	Debounce   time.Duration
	Logger     enginelog.Logger

	mu          sync.Mutex
	fsWatcher   *fsnotify.Watcher
	watchedDirs map[string]bool
}

// New builds a Loop. debounce <= 0 uses DefaultDebounce.
func New(configPath string, loader ConfigLoader, sched *scheduler.Scheduler, roots []string, debounce time.Duration, logger enginelog.Logger) *Loop {
	if logger == nil {
		logger = enginelog.Nop{}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Loop{
		ConfigPath: configPath,
		Loader:     loader,
		Scheduler:  sched,
		Roots:      roots,
		Debounce:   debounce,
		Logger:     logger,
	}
}

// Run first runs Roots once through the Scheduler, then watches until ctx
// is cancelled, re-running the Scheduler on each flushed batch of relevant
// filesystem changes.
func (l *Loop) Run(ctx context.Context) error {
	if _, err := l.Scheduler.Run(ctx, scheduler.RunOptions{Roots: l.Roots}); err != nil {
		return err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return engerrors.Internal(err, "create filesystem watcher")
	}
	defer fsWatcher.Close()

	l.mu.Lock()
	l.fsWatcher = fsWatcher
	l.watchedDirs = make(map[string]bool)
	l.mu.Unlock()

	if err := l.registerWatches(); err != nil {
		return err
	}

	batcher := microbatch.NewBatcher(&microbatch.BatcherConfig{
		MaxSize:        -1, // batches are flushed by time only, never by size
		FlushInterval:  l.Debounce,
		MaxConcurrency: 1,
	}, l.processBatch)
	defer batcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			l.trackNewDirectory(ev)
			if _, err := batcher.Submit(ctx, ev); err != nil {
				return nil
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			l.Logger.Warn("filesystem watch error", enginelog.F("error", err.Error()))
		}
	}
}

// trackNewDirectory watches directories created inside an already-watched
// tree, since fsnotify does not recurse on its own.
func (l *Loop) trackNewDirectory(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create == 0 {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.IsDir() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watchedDirs[ev.Name] {
		return
	}
	if err := l.fsWatcher.Add(ev.Name); err == nil {
		l.watchedDirs[ev.Name] = true
	}
}

// processBatch is the microbatch.BatchProcessor for accumulated fsnotify
// events: it settles a burst, decides whether the configuration itself
// changed, and re-runs the affected tasks.
func (l *Loop) processBatch(ctx context.Context, events []fsnotify.Event) error {
	changed := make([]string, 0, len(events))
	configChanged := false
	for _, ev := range events {
		path := filepath.Clean(ev.Name)
		changed = append(changed, path)
		if l.ConfigPath != "" && path == filepath.Clean(l.ConfigPath) {
			configChanged = true
		}
	}

	if configChanged && l.Loader != nil {
		cfg, err := l.Loader()
		if err != nil {
			l.Logger.Error("configuration reload failed, keeping previous graph", err)
		} else {
			universe, err := graph.NewUniverse(cfg.Tasks)
			if err != nil {
				l.Logger.Error("configuration reload produced an invalid graph, keeping previous graph", err)
			} else {
				l.Scheduler.Universe = universe
				l.Scheduler.ConfigVars = cfg.Vars
				if err := l.registerWatches(); err != nil {
					l.Logger.Error("re-registering filesystem watches after reload failed", err)
				}
				l.Logger.Info("configuration reloaded")
			}
		}
	}

	roots := l.affectedRoots(changed)
	if len(roots) == 0 {
		return nil
	}

	l.Logger.Info("filesystem change settled, re-running affected tasks", enginelog.F("tasks", roots))
	summary, err := l.Scheduler.Run(ctx, scheduler.RunOptions{Roots: roots})
	if err != nil {
		l.Logger.Error("watch-triggered run failed to start", err)
		return nil
	}
	if summary.Failed > 0 {
		l.Logger.Warn("watch-triggered run had failures", enginelog.F("failing_task", summary.FailingTask))
	}
	return nil
}

// affectedRoots returns, sorted, the tasks within the loop's requested root
// closure for which some changed path equals or lies under one of the
// task's declared input roots (via the path-prefix matching pathIsWithin
// does). This is the set invoked
// directly as the next run's roots, not the originally requested roots
// themselves: a task's own cache entry is keyed on its own fingerprint, so
// re-dispatching an unaffected enclosing root would only ever hit its
// cache anyway.
func (l *Loop) affectedRoots(changed []string) []string {
	closure, err := l.Scheduler.Universe.Resolve(l.Roots)
	if err != nil {
		return nil
	}

	affected := make(map[string]bool)
	for _, name := range closure.Names {
		t, ok := l.Scheduler.Universe.Task(name)
		if !ok || len(t.Inputs) == 0 {
			continue
		}
		for _, root := range fingerprint.WatchRoots(t.Inputs) {
			for _, path := range changed {
				if pathIsWithin(root, path) {
					affected[name] = true
				}
			}
		}
	}
	if len(affected) == 0 {
		return nil
	}

	roots := make([]string, 0, len(affected))
	for name := range affected {
		roots = append(roots, name)
	}
	sort.Strings(roots)
	return roots
}

// registerWatches (re)builds the fsnotify watch set from the current
// Universe's declared input paths plus the configuration file's directory.
func (l *Loop) registerWatches() error {
	closure, err := l.Scheduler.Universe.Resolve(l.Roots)
	if err != nil {
		return err
	}

	dirs := make(map[string]bool)
	for _, name := range closure.Names {
		t, _ := l.Scheduler.Universe.Task(name)
		for _, root := range fingerprint.WatchRoots(t.Inputs) {
			collectDirs(root, dirs)
		}
	}
	if l.ConfigPath != "" {
		collectDirs(filepath.Dir(l.ConfigPath), dirs)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for dir := range dirs {
		if l.watchedDirs[dir] {
			continue
		}
		if err := l.fsWatcher.Add(dir); err != nil {
			l.Logger.Warn("failed to watch directory", enginelog.F("dir", dir), enginelog.F("error", err.Error()))
			continue
		}
		l.watchedDirs[dir] = true
	}
	return nil
}

// collectDirs adds root to dirs (its own directory if root is a file, or
// root itself plus every subdirectory if root is a directory) since
// fsnotify only watches the directories it is explicitly told about, never
// recursively, following the recursive filepath.Walk + watcher.Add
// pattern common to Go file-watch daemons.
func collectDirs(root string, dirs map[string]bool) {
	info, err := os.Stat(root)
	if err != nil {
		return
	}
	if !info.IsDir() {
		dirs[filepath.Dir(root)] = true
		return
	}

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			dirs[path] = true
		}
		return nil
	})
}

// pathIsWithin reports whether changed is root itself or lies under it.
func pathIsWithin(root, changed string) bool {
	root = filepath.Clean(root)
	changed = filepath.Clean(changed)
	if root == changed {
		return true
	}
	return strings.HasPrefix(changed, root+string(filepath.Separator))
}
