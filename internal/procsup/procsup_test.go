package procsup_test

import (
	"testing"

	"github.com/amit-devb/zetten/internal/procsup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	killed bool
}

func (f *fakeHandle) Kill() error {
	f.killed = true
	return nil
}

func TestRegistry_RegisterDeregister(t *testing.T) {
	r := procsup.New()
	h := &fakeHandle{}
	id := r.Register(h)
	require.True(t, r.Contains(id))
	require.Equal(t, 1, r.Len())

	r.Deregister(id)
	assert.False(t, r.Contains(id))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DeregisterUnknownIsSafe(t *testing.T) {
	r := procsup.New()
	assert.NotPanics(t, func() { r.Deregister(procsup.ID(999)) })
}

func TestRegistry_DrainAndKill(t *testing.T) {
	r := procsup.New()
	h1 := &fakeHandle{}
	h2 := &fakeHandle{}
	r.Register(h1)
	r.Register(h2)

	r.DrainAndKill()

	assert.True(t, h1.killed)
	assert.True(t, h2.killed)
	assert.Equal(t, 0, r.Len())
}
