package scheduler

import (
	"time"

	"github.com/amit-devb/zetten/internal/graph"
)

// criticalPath returns the longest cumulative-duration chain through the
// closure's depends_on edges, using each task's observed duration. A task
// absent from durations (never dispatched in this run because fail-fast
// stopped new dispatch) contributes zero duration rather than breaking the
// chain: such tasks are traversed but weightless.
//
// The recursion is memoized per task name; ties are broken by the
// depends_on order recorded on the task itself, which is itself
// deterministic (slice order as declared).
func criticalPath(closure *graph.Closure, durations map[string]time.Duration) []string {
	memo := make(map[string]struct {
		cost time.Duration
		path []string
	}, len(closure.Names))

	var longestFrom func(name string) (time.Duration, []string)
	longestFrom = func(name string) (time.Duration, []string) {
		if cached, ok := memo[name]; ok {
			return cached.cost, cached.path
		}

		own := durations[name] // zero value if not run this pass

		t, ok := closure.Universe.Task(name)
		var best time.Duration
		var bestPath []string
		if ok {
			for _, dep := range t.DependsOn {
				if !inClosure(closure, dep) {
					continue
				}
				cost, path := longestFrom(dep)
				if cost > best {
					best = cost
					bestPath = path
				}
			}
		}

		total := own + best
		path := append(append([]string(nil), bestPath...), name)

		memo[name] = struct {
			cost time.Duration
			path []string
		}{cost: total, path: path}
		return total, path
	}

	var overallCost time.Duration
	var overallPath []string
	for _, name := range closure.Names {
		cost, path := longestFrom(name)
		if cost > overallCost || (cost == overallCost && len(path) > len(overallPath)) {
			overallCost = cost
			overallPath = path
		}
	}

	return overallPath
}

func inClosure(closure *graph.Closure, name string) bool {
	_, ok := closure.InDegree[name]
	return ok
}
