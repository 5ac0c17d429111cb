package overlaynode

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermesh/peermesh-go/internal/peerlink"
	"github.com/peermesh/peermesh-go/pkg/overlay"
)

const testReconnectDelay = 200 * time.Millisecond

// nodeLogWriter forwards node logs to the test log and goes quiet once the
// test is done, since reconnect timers can outlive the node by a tick.
type nodeLogWriter struct {
	mu   sync.Mutex
	t    *testing.T
	done bool
}

func (w *nodeLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		w.t.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func (w *nodeLogWriter) quiet() {
	w.mu.Lock()
	w.done = true
	w.mu.Unlock()
}

type testNode struct {
	node *Node
	addr string
	srv  *http.Server
	ln   net.Listener
}

// startNode runs a node over a loopback HTTP server. Shutdown happens in
// test cleanup; tests that exercise shutdown order close things themselves.
func startNode(t *testing.T, name string) *testNode {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	tn := newNodeOn(t, name, ln)
	t.Cleanup(func() { tn.stop() })
	return tn
}

// newNodeOn builds a node advertising the listener's address and serves its
// handler on it.
func newNodeOn(t *testing.T, name string, ln net.Listener) *testNode {
	t.Helper()
	addr := "ws://" + ln.Addr().String() + "/"

	writer := &nodeLogWriter{t: t}
	t.Cleanup(writer.quiet)

	cfg := NewConfig(addr)
	cfg.ReconnectDelay = testReconnectDelay
	cfg.Logger = log.New(writer, "["+name+"] ", 0)

	node, err := New(cfg)
	require.NoError(t, err)

	srv := &http.Server{Handler: node.Handler()}
	go srv.Serve(ln)
	return &testNode{node: node, addr: addr, srv: srv, ln: ln}
}

func (tn *testNode) stop() {
	tn.node.Close()
	tn.srv.Close()
}

// waitForPeers blocks until n tracks exactly the given addresses, all open.
func waitForPeers(t *testing.T, n *Node, want ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		infos := n.Peers()
		if len(infos) != len(want) {
			return false
		}
		got := make(map[string]overlay.ConnState, len(infos))
		for _, info := range infos {
			got[info.Address] = info.State
		}
		for _, addr := range want {
			if got[addr] != overlay.StateOpen {
				return false
			}
		}
		return true
	}, 10*time.Second, 20*time.Millisecond)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(NewConfig("not-a-url"))
	assert.Error(t, err)
}

func TestAddPeerSelfIsNoOp(t *testing.T) {
	a := startNode(t, "a")

	require.NoError(t, a.node.AddPeer(a.addr))
	assert.Empty(t, a.node.PeerAddresses())
}

func TestAddPeerIsIdempotent(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")

	require.NoError(t, b.node.AddPeer(a.addr))
	require.NoError(t, b.node.AddPeer(a.addr))
	waitForPeers(t, b.node, a.addr)
	assert.Equal(t, []string{a.addr}, b.node.PeerAddresses())
}

func TestAddPeerAfterCloseFails(t *testing.T) {
	a := startNode(t, "a")
	require.NoError(t, a.node.Close())
	assert.Error(t, a.node.AddPeer("ws://127.0.0.1:1/"))
}

func TestJoinLeadsToMutualDiscovery(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")

	// B seeds from A; gossip must make the link bidirectional.
	require.NoError(t, b.node.AddPeer(a.addr))
	waitForPeers(t, b.node, a.addr)
	waitForPeers(t, a.node, b.addr)
}

func TestThreeNodesConvergeToFullMesh(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")
	c := startNode(t, "c")

	// Periodic discovery re-requests peer lists so convergence does not
	// depend on join ordering.
	for _, tn := range []*testNode{a, b, c} {
		require.NoError(t, tn.node.ListenForPeers(100*time.Millisecond))
	}

	// B and C only ever hear about each other through A.
	require.NoError(t, b.node.AddPeer(a.addr))
	require.NoError(t, c.node.AddPeer(a.addr))

	waitForPeers(t, a.node, b.addr, c.addr)
	waitForPeers(t, b.node, a.addr, c.addr)
	waitForPeers(t, c.node, a.addr, b.addr)
}

func TestBroadcastReachesOpenPeers(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")

	received := make(chan string, 1)
	a.node.RegisterEvent("chat.message", func(from overlay.Sender, data json.RawMessage) error {
		var msg struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		received <- msg.Text
		return nil
	})

	require.NoError(t, b.node.AddPeer(a.addr))
	waitForPeers(t, b.node, a.addr)

	require.NoError(t, b.node.Broadcast("chat.message", map[string]string{"text": "hello"}))
	select {
	case text := <-received:
		assert.Equal(t, "hello", text)
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast never arrived")
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(b.node.metrics.Broadcasts))
}

func TestBroadcastSkipsNonOpenPeers(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")

	require.NoError(t, b.node.AddPeer(a.addr))
	waitForPeers(t, b.node, a.addr)

	// Plant a connection that never leaves the connecting state.
	stuck := peerlink.NewOutbound("ws://192.0.2.1:1/", b.node.config.Peerlink, peerlink.Callbacks{})
	require.True(t, b.node.peers.Insert(stuck))

	require.NoError(t, b.node.Broadcast("chat.message", map[string]string{"text": "hi"}))
	assert.Equal(t, overlay.StateConnecting, stuck.State())
}

func TestRegisterEventLastWins(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	a.node.RegisterEvent("evt", func(overlay.Sender, json.RawMessage) error {
		first <- struct{}{}
		return nil
	})
	a.node.RegisterEvent("evt", func(overlay.Sender, json.RawMessage) error {
		second <- struct{}{}
		return nil
	})

	require.NoError(t, b.node.AddPeer(a.addr))
	waitForPeers(t, b.node, a.addr)
	require.NoError(t, b.node.Broadcast("evt", nil))

	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("replacement handler never ran")
	}
	select {
	case <-first:
		t.Fatal("replaced handler still ran")
	default:
	}
}

func TestInboundConnectionGetsKnownPeersImmediately(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")
	require.NoError(t, a.node.AddPeer(b.addr))
	waitForPeers(t, a.node, b.addr)

	// A bare transport connection, no gossip of its own: the first thing it
	// hears must be A's peer list plus A's own address.
	msgs := make(chan []byte, 4)
	cfg := &peerlink.Config{}
	cfg.SetDefaults()
	c := peerlink.NewOutbound(a.addr, cfg, peerlink.Callbacks{
		OnMessage: func(from *peerlink.Conn, raw []byte) { msgs <- raw },
	})
	c.Start()
	defer c.Close()

	select {
	case raw := <-msgs:
		env, err := overlay.ParseEnvelope(raw)
		require.NoError(t, err)
		assert.Equal(t, overlay.EventKnownPeers, env.Event)

		var payload overlay.KnownPeersPayload
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		assert.Contains(t, payload.Value, a.addr)
		assert.Contains(t, payload.Value, b.addr)
	case <-time.After(5 * time.Second):
		t.Fatal("inbound connection never received a peer list")
	}
}

func TestReconnectAfterPeerLoss(t *testing.T) {
	lnA, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	a := newNodeOn(t, "a1", lnA)
	port := lnA.Addr().String()

	b := startNode(t, "b")
	require.NoError(t, b.node.AddPeer(a.addr))
	waitForPeers(t, b.node, a.addr)

	// Take A down; B must drop the entry promptly.
	a.stop()
	lost := time.Now()
	require.Eventually(t, func() bool {
		return len(b.node.PeerAddresses()) == 0
	}, 5*time.Second, 10*time.Millisecond)

	// Bring A back on the same port. B's fixed-delay retry loop must find
	// it without any new AddPeer call.
	lnA2, err := net.Listen("tcp", port)
	require.NoError(t, err)
	a2 := newNodeOn(t, "a2", lnA2)
	t.Cleanup(a2.stop)

	waitForPeers(t, b.node, a2.addr)
	assert.GreaterOrEqual(t, time.Since(lost), testReconnectDelay)
	assert.GreaterOrEqual(t, testutil.ToFloat64(b.node.metrics.Reconnects), float64(1))
}

func TestCloseIsIdempotentAndStopsReconnects(t *testing.T) {
	a := startNode(t, "a")
	b := startNode(t, "b")

	require.NoError(t, b.node.AddPeer(a.addr))
	waitForPeers(t, b.node, a.addr)

	require.NoError(t, b.node.Close())
	require.NoError(t, b.node.Close())

	// No reconnect may fire after close.
	time.Sleep(2 * testReconnectDelay)
	assert.Empty(t, b.node.PeerAddresses())
}

func TestListenForPeers(t *testing.T) {
	a := startNode(t, "a")

	assert.Error(t, a.node.ListenForPeers(0))
	assert.Error(t, a.node.ListenForPeers(-time.Second))
	require.NoError(t, a.node.ListenForPeers(50*time.Millisecond))

	require.NoError(t, a.node.Close())
	assert.Error(t, a.node.ListenForPeers(50*time.Millisecond))
}

func TestMetricsRegistryExposesNodeCollectors(t *testing.T) {
	a := startNode(t, "a")

	families, err := a.node.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["peermesh_peers"])
	assert.True(t, names["peermesh_broadcasts_total"])
}
