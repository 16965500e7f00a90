package selector_test

import (
	"testing"

	"github.com/amit-devb/zetten/internal/selector"
	"github.com/stretchr/testify/assert"
)

// "ci+slow,!flaky" selects tasks tagged both ci and slow, OR tasks
// not tagged flaky.
func TestMatches_CompoundExpression(t *testing.T) {
	sel := selector.Parse("ci+slow,!flaky")

	assert.True(t, sel.Matches([]string{"ci", "slow"}))
	assert.True(t, sel.Matches([]string{}))                 // not flaky
	assert.True(t, sel.Matches([]string{"unit"}))           // not flaky
	assert.False(t, sel.Matches([]string{"flaky"}))         // flaky, and not (ci+slow)
	assert.True(t, sel.Matches([]string{"ci", "slow", "flaky"})) // matches first disjunct despite being flaky
}

func TestMatches_SingleTag(t *testing.T) {
	sel := selector.Parse("ci")
	assert.True(t, sel.Matches([]string{"ci"}))
	assert.False(t, sel.Matches([]string{"cd"}))
}

func TestMatches_EmptySelectorMatchesNothing(t *testing.T) {
	sel := selector.Parse("")
	assert.False(t, sel.Matches([]string{"ci"}))
}

func TestMatches_NegationAlone(t *testing.T) {
	sel := selector.Parse("!flaky")
	assert.True(t, sel.Matches([]string{"ci"}))
	assert.False(t, sel.Matches([]string{"flaky"}))
}
