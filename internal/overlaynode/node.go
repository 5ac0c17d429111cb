// Package overlaynode implements the overlay manager node. A node plays a
// dual server/client role: it accepts inbound connections through its
// listener handler while maintaining outbound connections to every peer it
// has learned of, growing the overlay from a single seed address to full
// mesh connectivity via peer-list gossip and healing lost outbound links
// with fixed-delay reconnects.
package overlaynode

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peermesh/peermesh-go/internal/peerlink"
	"github.com/peermesh/peermesh-go/internal/peerset"
	"github.com/peermesh/peermesh-go/internal/router"
	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// Node orchestrates the connection registry, inbound listener, event router
// and gossip engine behind the public overlay API.
type Node struct {
	config   *Config
	metrics  *Metrics
	router   *router.Router
	peers    *peerset.Set
	listener *peerlink.Listener

	mu         sync.Mutex
	reconnects map[string]*time.Timer
	closed     bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a node advertising config.AdvertiseAddr. The node is live as
// soon as its Handler is mounted by a hosting HTTP server; there is no
// separate Start step.
func New(config *Config) (*Node, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetDefaults()

	n := &Node{
		config:     config,
		metrics:    NewMetrics(config.Registry),
		peers:      peerset.New(config.AdvertiseAddr),
		reconnects: make(map[string]*time.Timer),
		quit:       make(chan struct{}),
	}
	n.router = router.New(config.Logger, n.metrics)
	n.listener = peerlink.NewListener(config.Peerlink, peerlink.Callbacks{
		OnOpen:    n.handleInboundOpen,
		OnMessage: n.dispatch,
		OnClose:   n.handleInboundClosed,
	}, config.Logger)

	// The gossip protocol is layered on the router like any application
	// handler, not special-cased.
	n.RegisterEvent(overlay.EventKnownPeers, n.handleKnownPeers)
	n.RegisterEvent(overlay.EventRequestKnownPeers, n.handleRequestKnownPeers)

	return n, nil
}

// AdvertiseAddr returns this node's own address, its identity in the overlay.
func (n *Node) AdvertiseAddr() string {
	return n.config.AdvertiseAddr
}

// Handler returns the inbound listener so a hosting process can splice it
// into its own connection-upgrade path.
func (n *Node) Handler() http.Handler {
	return n.listener
}

// Registry returns the Prometheus registry holding the node's metrics.
func (n *Node) Registry() *prometheus.Registry {
	return n.config.Registry
}

// Peers returns the current peer set in discovery order.
func (n *Node) Peers() []overlay.PeerInfo {
	return n.peers.Infos()
}

// PeerAddresses returns the current peer set's addresses in discovery order.
func (n *Node) PeerAddresses() []string {
	return n.peers.Addresses()
}

// RegisterEvent stores handler under name, silently replacing any prior
// handler for that name.
func (n *Node) RegisterEvent(name string, handler overlay.HandlerFunc) {
	n.router.Register(name, handler)
}

// Broadcast serializes {event, data} once and sends it to every currently
// open outbound peer. Peers whose transport is not open are skipped
// silently; per-peer send failures are logged, never retried.
func (n *Node) Broadcast(event string, data interface{}) error {
	raw, err := overlay.Encode(event, data)
	if err != nil {
		return err
	}
	for _, c := range n.peers.Snapshot() {
		if c.State() != overlay.StateOpen {
			continue
		}
		if err := c.SendRaw(raw); err != nil {
			n.config.Logger.Printf("WARN broadcast of %q to %s failed: %v", event, c.Addr(), err)
		}
	}
	n.metrics.Broadcasts.Inc()
	return nil
}

// AddPeer opens an outbound connection to addr and registers it in the peer
// set. Idempotent: a no-op when addr is this node's own address or already
// tracked. The entry is inserted before the transport confirms open; sends
// attempted during establishment are dropped by the transport layer.
func (n *Node) AddPeer(addr string) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return fmt.Errorf("cannot add peer to closed node")
	}
	n.mu.Unlock()

	if n.peers.Contains(addr) {
		return nil
	}

	c := peerlink.NewOutbound(addr, n.config.Peerlink, peerlink.Callbacks{
		OnOpen:    n.handlePeerOpen,
		OnMessage: n.dispatch,
		OnClose:   n.handlePeerClosed,
	})
	if !n.peers.Insert(c) {
		// Lost a race with a concurrent AddPeer, or addr is our own
		// address. The conn was never started, so just drop it.
		return nil
	}
	n.metrics.OpenPeers.Set(float64(n.peers.Len()))

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.peers.RemoveConn(c)
		return fmt.Errorf("cannot add peer to closed node")
	}
	n.mu.Unlock()

	n.config.Logger.Printf("INFO connecting to peer %s", addr)
	c.Start()
	return nil
}

// ListenForPeers starts periodic discovery: every interval, broadcast a
// peer-list request naming this node as requester, re-triggering convergence
// after membership changes. Runs until Close.
func (n *Node) ListenForPeers(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("discovery interval must be positive")
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return fmt.Errorf("cannot start discovery on closed node")
	}
	n.mu.Unlock()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-n.quit:
				return
			case <-ticker.C:
				n.Broadcast(overlay.EventRequestKnownPeers, overlay.RequestKnownPeersPayload{
					Requester: n.config.AdvertiseAddr,
				})
			}
		}
	}()
	return nil
}

// Close shuts the node down: cancels reconnect timers and discovery tickers,
// closes every outbound and inbound connection, and waits for the node's
// goroutines. Idempotent.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.quit)
	for addr, t := range n.reconnects {
		t.Stop()
		delete(n.reconnects, addr)
	}
	n.mu.Unlock()

	for _, c := range n.peers.Snapshot() {
		c.Close()
	}
	n.listener.Close()
	n.wg.Wait()
	return nil
}

// dispatch feeds one received message through the shared router. Inbound and
// outbound connections use the same pipeline.
func (n *Node) dispatch(from *peerlink.Conn, raw []byte) {
	n.router.Dispatch(from, raw)
}

// handlePeerOpen runs when an outbound transport confirms open: announce
// ourselves so the peer both learns our address and answers with its own
// peer list.
func (n *Node) handlePeerOpen(c *peerlink.Conn) {
	n.config.Logger.Printf("INFO peer %s connected", c.Addr())
	err := c.Send(overlay.EventRequestKnownPeers, overlay.RequestKnownPeersPayload{
		Requester: n.config.AdvertiseAddr,
	})
	if err != nil {
		n.config.Logger.Printf("WARN peer-list request to %s failed: %v", c.Addr(), err)
	}
}

// handlePeerClosed runs exactly once when an outbound transport closes, for
// any reason: remove the entry immediately, then schedule a fresh AddPeer
// after the configured delay. There is no retry cap and no backoff; the
// loop ends only at node Close.
func (n *Node) handlePeerClosed(c *peerlink.Conn) {
	addr := c.Addr()
	if n.peers.RemoveConn(c) {
		n.config.Logger.Printf("INFO peer %s disconnected", addr)
	}
	n.metrics.OpenPeers.Set(float64(n.peers.Len()))

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if t, ok := n.reconnects[addr]; ok {
		t.Stop()
	}
	n.reconnects[addr] = time.AfterFunc(n.config.ReconnectDelay, func() {
		n.mu.Lock()
		delete(n.reconnects, addr)
		closed := n.closed
		n.mu.Unlock()
		if closed {
			return
		}
		n.metrics.Reconnects.Inc()
		if err := n.AddPeer(addr); err != nil {
			n.config.Logger.Printf("WARN reconnect to %s failed: %v", addr, err)
		}
	})
}

// handleInboundOpen runs when an inbound connection is accepted: it is
// immediately sent our full known-peer list plus our own address.
func (n *Node) handleInboundOpen(c *peerlink.Conn) {
	n.metrics.InboundConns.Inc()
	err := c.Send(overlay.EventKnownPeers, overlay.KnownPeersPayload{
		Value: append(n.peers.Addresses(), n.config.AdvertiseAddr),
	})
	if err != nil {
		n.config.Logger.Printf("WARN peer-list advertisement to %s failed: %v", c.RemoteAddr(), err)
	}
}

// handleInboundClosed runs when an inbound connection drops. Inbound
// connections are not tracked for reconnection.
func (n *Node) handleInboundClosed(c *peerlink.Conn) {
	n.metrics.InboundConns.Dec()
}

var _ router.Observer = (*Metrics)(nil)
