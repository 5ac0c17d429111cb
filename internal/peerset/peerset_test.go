package peerset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermesh/peermesh-go/internal/peerlink"
	"github.com/peermesh/peermesh-go/pkg/overlay"
)

const selfAddr = "ws://127.0.0.1:4000/"

// newConn builds an outbound connection that is never started, so it stays
// in the connecting state and never touches the network.
func newConn(t *testing.T, addr string) *peerlink.Conn {
	t.Helper()
	cfg := &peerlink.Config{}
	cfg.SetDefaults()
	return peerlink.NewOutbound(addr, cfg, peerlink.Callbacks{})
}

func TestInsert(t *testing.T) {
	s := New(selfAddr)

	c := newConn(t, "ws://127.0.0.1:4001/")
	require.True(t, s.Insert(c))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("ws://127.0.0.1:4001/"))
}

func TestInsertRejectsSelf(t *testing.T) {
	s := New(selfAddr)

	assert.False(t, s.Insert(newConn(t, selfAddr)))
	assert.Equal(t, 0, s.Len())
}

func TestInsertRejectsDuplicateAddress(t *testing.T) {
	s := New(selfAddr)

	first := newConn(t, "ws://127.0.0.1:4001/")
	second := newConn(t, "ws://127.0.0.1:4001/")
	require.True(t, s.Insert(first))
	assert.False(t, s.Insert(second))
	assert.Equal(t, 1, s.Len())

	// The original connection stays registered.
	got, ok := s.Get("ws://127.0.0.1:4001/")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRemove(t *testing.T) {
	s := New(selfAddr)
	require.True(t, s.Insert(newConn(t, "ws://127.0.0.1:4001/")))

	assert.True(t, s.Remove("ws://127.0.0.1:4001/"))
	assert.False(t, s.Remove("ws://127.0.0.1:4001/"))
	assert.Equal(t, 0, s.Len())
}

func TestRemoveConnOnlyEvictsItself(t *testing.T) {
	s := New(selfAddr)

	registered := newConn(t, "ws://127.0.0.1:4001/")
	stale := newConn(t, "ws://127.0.0.1:4001/")
	require.True(t, s.Insert(registered))

	// A duplicate that lost the insert race must not evict the winner.
	assert.False(t, s.RemoveConn(stale))
	assert.True(t, s.Contains("ws://127.0.0.1:4001/"))

	assert.True(t, s.RemoveConn(registered))
	assert.False(t, s.Contains("ws://127.0.0.1:4001/"))
}

func TestContainsCountsSelf(t *testing.T) {
	s := New(selfAddr)
	assert.True(t, s.Contains(selfAddr))
	assert.False(t, s.Contains("ws://127.0.0.1:4001/"))
}

func TestAddressesPreserveInsertionOrder(t *testing.T) {
	s := New(selfAddr)

	var want []string
	for i := 0; i < 5; i++ {
		addr := fmt.Sprintf("ws://127.0.0.1:%d/", 4001+i)
		want = append(want, addr)
		require.True(t, s.Insert(newConn(t, addr)))
	}
	assert.Equal(t, want, s.Addresses())

	// Removing from the middle keeps the remaining order intact.
	require.True(t, s.Remove(want[2]))
	want = append(want[:2], want[3:]...)
	assert.Equal(t, want, s.Addresses())
}

func TestSnapshotAndInfos(t *testing.T) {
	s := New(selfAddr)

	c1 := newConn(t, "ws://127.0.0.1:4001/")
	c2 := newConn(t, "ws://127.0.0.1:4002/")
	require.True(t, s.Insert(c1))
	require.True(t, s.Insert(c2))

	conns := s.Snapshot()
	require.Len(t, conns, 2)
	assert.Same(t, c1, conns[0])
	assert.Same(t, c2, conns[1])

	infos := s.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "ws://127.0.0.1:4001/", infos[0].Address)
	assert.Equal(t, overlay.StateConnecting, infos[0].State)
}
