package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newFakeConn("a")))

	err := reg.Register(newFakeConn("a"))
	assert.ErrorIs(t, err, ErrDuplicateConnection)
	assert.Equal(t, 1, reg.Len())

	state, ok := reg.State("a")
	assert.True(t, ok)
	assert.Equal(t, StateIdle, state)
}

func TestRegistry_LinkIsSymmetric(t *testing.T) {
	reg := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	reg.link("a", "b", "s1", time.Now())

	pa, ok := reg.LookupPartner("a")
	require.True(t, ok)
	assert.Equal(t, "b", pa.ID())
	pb, ok := reg.LookupPartner("b")
	require.True(t, ok)
	assert.Equal(t, "a", pb.ID())
	assert.Equal(t, "s1", reg.Session("a"))
	assert.Equal(t, "s1", reg.Session("b"))
	assert.Equal(t, 1, reg.Sessions())
}

func TestRegistry_RemoveClearsEdge(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(newFakeConn("a")))
	require.NoError(t, reg.Register(newFakeConn("b")))
	reg.link("a", "b", "s1", time.Now())

	reg.Remove("a")
	reg.Remove("a")

	_, ok := reg.Lookup("a")
	assert.False(t, ok)
	_, ok = reg.LookupPartner("b")
	assert.False(t, ok)
	state, _ := reg.State("b")
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, 0, reg.Sessions())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_UnknownHasNoPartner(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.LookupPartner("ghost")
	assert.False(t, ok)
	assert.Equal(t, "", reg.unlink("ghost"))
}

func TestPairState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "waiting", StateWaiting.String())
	assert.Equal(t, "paired", StatePaired.String())
	assert.Equal(t, "unknown", PairState(42).String())
}
