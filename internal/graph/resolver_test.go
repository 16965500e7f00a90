package graph_test

import (
	"errors"
	"testing"

	"github.com/amit-devb/zetten/internal/engerrors"
	"github.com/amit-devb/zetten/internal/graph"
	"github.com/amit-devb/zetten/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUniverse(t *testing.T, tasks []task.Task) *graph.Universe {
	t.Helper()
	u, err := graph.NewUniverse(tasks)
	require.NoError(t, err)
	return u
}

// "if expand() succeeds then the returned closure contains the
// roots and is closed under depends_on".
func TestExpand_ContainsRootsAndIsClosed(t *testing.T) {
	u := mustUniverse(t, []task.Task{
		{Name: "format"},
		{Name: "lint", DependsOn: []string{"format"}},
		{Name: "test", DependsOn: []string{"lint"}},
	})

	closure, err := u.Expand([]string{"test"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test", "lint", "format"}, closure)
}

// An unknown root task name gets a "did you mean" suggestion.
func TestExpand_UnknownTaskSuggestsNearestMatch(t *testing.T) {
	u := mustUniverse(t, []task.Task{{Name: "build"}, {Name: "test"}})

	_, err := u.Expand([]string{"buid"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engerrors.ErrUser))
	assert.Contains(t, err.Error(), `Did you mean "build"?`)
}

func TestExpand_UnknownTaskNoCloseMatch(t *testing.T) {
	u := mustUniverse(t, []task.Task{{Name: "build"}})
	_, err := u.Expand([]string{"zzzzzzzzzz"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "Did you mean")
}

// topological_order produces a permutation respecting edges.
func TestResolve_TopologicalOrderRespectsEdges(t *testing.T) {
	u := mustUniverse(t, []task.Task{
		{Name: "prep"},
		{Name: "a", DependsOn: []string{"prep"}},
		{Name: "b", DependsOn: []string{"prep"}},
		{Name: "final", DependsOn: []string{"a", "b"}},
	})

	closure, err := u.Resolve([]string{"final"})
	require.NoError(t, err)

	pos := indexOf(closure.Order)
	assert.Less(t, pos["prep"], pos["a"])
	assert.Less(t, pos["prep"], pos["b"])
	assert.Less(t, pos["a"], pos["final"])
	assert.Less(t, pos["b"], pos["final"])
}

// A dependency cycle is rejected with the offending path named.
func TestResolve_CycleDetected(t *testing.T) {
	u := mustUniverse(t, []task.Task{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	})

	_, err := u.Resolve([]string{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engerrors.ErrUser))
	assert.Contains(t, err.Error(), "cycle")
}

func TestResolve_BuildEdges_PartialRunIgnoresOutOfClosureDeps(t *testing.T) {
	u := mustUniverse(t, []task.Task{
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a"}},
		{Name: "c", DependsOn: []string{"b"}},
	})

	// Request only "b": "a" is its dependency and must be pulled in,
	// but "c" (a dependent of "b", not a dependency) must not be.
	closure, err := u.Resolve([]string{"b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, closure.Names)
	assert.Equal(t, 0, closure.InDegree["a"])
	assert.Equal(t, 1, closure.InDegree["b"])
}

func TestResolve_InDegreeMatchesInClosureDeps(t *testing.T) {
	u := mustUniverse(t, []task.Task{
		{Name: "prep"},
		{Name: "a", DependsOn: []string{"prep"}},
		{Name: "b", DependsOn: []string{"prep"}},
		{Name: "final", DependsOn: []string{"a", "b"}},
	})

	closure, err := u.Resolve([]string{"final"})
	require.NoError(t, err)

	assert.Equal(t, 0, closure.InDegree["prep"])
	assert.Equal(t, 1, closure.InDegree["a"])
	assert.Equal(t, 1, closure.InDegree["b"])
	assert.Equal(t, 2, closure.InDegree["final"])

	assert.ElementsMatch(t, []string{"a", "b"}, closure.Dependents["prep"])
	assert.ElementsMatch(t, []string{"final"}, closure.Dependents["a"])
}

func indexOf(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}
