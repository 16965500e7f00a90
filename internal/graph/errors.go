// Package graph implements the Graph Resolver: expansion of requested
// root tasks into a transitive closure, topological ordering, and
// in-degree/reverse-adjacency table construction.
package graph

import (
	"sort"
	"strings"

	"github.com/amit-devb/zetten/internal/engerrors"
)

// unknownTaskError builds a "did you mean" error for a reference to a
// task name that does not exist in the universe.
func unknownTaskError(name string, known []string) error {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)

	if suggestion, _, ok := nearestMatch(name, sorted, 2); ok {
		return engerrors.UserTask(name, "task not found. Did you mean %q?", suggestion)
	}
	return engerrors.UserTask(name, "task not found")
}

// cycleError builds a dependency-cycle error naming the offending path.
func cycleError(path []string) error {
	return engerrors.User("dependency cycle detected: %s", strings.Join(path, " -> "))
}
