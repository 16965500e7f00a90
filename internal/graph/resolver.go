package graph

import (
	"sort"

	"github.com/amit-devb/zetten/internal/engerrors"
	"github.com/amit-devb/zetten/internal/task"
)

// Universe is the full set of tasks a configuration declares, indexed by
// name. Expand and related operations only ever look names up here.
type Universe struct {
	tasks map[string]task.Task
	names []string // all known names, sorted, for "did you mean" suggestions
}

// NewUniverse indexes tasks by name. Returns a user error on duplicate
// names.
func NewUniverse(tasks []task.Task) (*Universe, error) {
	byName := make(map[string]task.Task, len(tasks))
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t.Name == "" {
			return nil, engerrors.User("task name must not be empty")
		}
		if _, exists := byName[t.Name]; exists {
			return nil, engerrors.UserTask(t.Name, "duplicate task name")
		}
		byName[t.Name] = t
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return &Universe{tasks: byName, names: names}, nil
}

// Task looks up a task by name.
func (u *Universe) Task(name string) (task.Task, bool) {
	t, ok := u.tasks[name]
	return t, ok
}

// Expand performs a breadth-first traversal over depends_on starting from
// roots, returning the transitive closure as task names.
// The closure always contains the roots. Unknown names produce a
// engerrors.ErrUser-classified error, with a Levenshtein "did you mean"
// suggestion when a sufficiently close known name exists.
func (u *Universe) Expand(roots []string) ([]string, error) {
	visited := make(map[string]bool)
	var order []string

	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if visited[name] {
			continue
		}

		t, ok := u.tasks[name]
		if !ok {
			return nil, unknownTaskError(name, u.names)
		}

		visited[name] = true
		order = append(order, name)

		for _, dep := range dependenciesOf(t) {
			if !visited[dep] {
				queue = append(queue, dep)
			}
		}
	}

	return order, nil
}

// dependenciesOf returns t's depends_on edges. setup/teardown tasks are
// invoked directly by the Command Executor rather than scheduled as
// graph nodes, so they do not participate in closure expansion,
// topological ordering, or in-degree accounting.
func dependenciesOf(t task.Task) []string {
	return append([]string(nil), t.DependsOn...)
}

// Closure is a validated, acyclic task set ready for scheduling: the
// expanded task list, a deterministic topological order, and the
// in-degree/reverse-adjacency tables the scheduler drives Kahn's algorithm
// from ( Execution plan).
type Closure struct {
	Universe   *Universe
	Names      []string          // the closure, in expansion order
	Order      []string          // a valid topological order
	InDegree   map[string]int    // name -> remaining unsatisfied deps within the closure
	Dependents map[string][]string // name -> dependents within the closure
}

// Resolve expands roots and builds a Closure, detecting cycles.
func (u *Universe) Resolve(roots []string) (*Closure, error) {
	closureNames, err := u.Expand(roots)
	if err != nil {
		return nil, err
	}

	order, err := topologicalOrder(u, closureNames)
	if err != nil {
		return nil, err
	}

	inDegree, dependents := buildEdges(u, closureNames)

	return &Closure{
		Universe:   u,
		Names:      closureNames,
		Order:      order,
		InDegree:   inDegree,
		Dependents: dependents,
	}, nil
}

const (
	white = 0
	gray  = 1
	black = 2
)

// topologicalOrder computes a valid topological order over closureNames via
// DFS with three-state coloring; a back-edge to a gray (in-progress) node
// is a cycle.
func topologicalOrder(u *Universe, closureNames []string) ([]string, error) {
	inClosure := make(map[string]bool, len(closureNames))
	for _, n := range closureNames {
		inClosure[n] = true
	}

	color := make(map[string]int, len(closureNames))
	var order []string
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return cycleError(append(append([]string(nil), path...), name))
		}

		color[name] = gray
		path = append(path, name)

		t := u.tasks[name]
		for _, dep := range dependenciesOf(t) {
			if !inClosure[dep] {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		order = append(order, name)
		return nil
	}

	// Deterministic traversal order: the expansion order of closureNames,
	// so tie-breaking between roots follows the traversal order of the
	// expansion pass.
	for _, name := range closureNames {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// buildEdges computes, for the given closure, the in-degree (count of
// in-closure dependencies) and reverse-adjacency (dependents) tables.
// Dependencies outside the closure are ignored, supporting partial runs.
func buildEdges(u *Universe, closureNames []string) (map[string]int, map[string][]string) {
	inClosure := make(map[string]bool, len(closureNames))
	for _, n := range closureNames {
		inClosure[n] = true
	}

	inDegree := make(map[string]int, len(closureNames))
	dependents := make(map[string][]string, len(closureNames))
	for _, n := range closureNames {
		inDegree[n] = 0
	}

	for _, n := range closureNames {
		t := u.tasks[n]
		for _, dep := range dependenciesOf(t) {
			if !inClosure[dep] {
				continue
			}
			inDegree[n]++
			dependents[dep] = append(dependents[dep], n)
		}
	}

	for n := range dependents {
		sort.Strings(dependents[n])
	}

	return inDegree, dependents
}
