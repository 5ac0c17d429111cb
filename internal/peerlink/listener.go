package peerlink

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Listener accepts inbound overlay connections. It is an http.Handler so a
// hosting process can splice it into its own connection-upgrade path; the
// node exposes it via an accessor for exactly that purpose.
//
// Inbound connections are never added to the peer set and are not tracked
// for reconnection: they are purely a message source until they close. The
// listener does track them so Close can drop every open inbound socket.
type Listener struct {
	cfg      *Config
	cb       Callbacks
	log      *log.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
}

// NewListener creates a listener that hands every accepted connection the
// given callbacks. No identity or address verification is performed on
// inbound connections.
func NewListener(cfg *Config, cb Callbacks, logger *log.Logger) *Listener {
	return &Listener{
		cfg: cfg,
		cb:  cb,
		log: logger,
		upgrader: websocket.Upgrader{
			// Peers are other nodes, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and services the resulting connection until
// it closes. Runs on the HTTP server's handler goroutine.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		http.Error(w, "listener is closed", http.StatusServiceUnavailable)
		return
	}
	l.mu.Unlock()

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Printf("WARN inbound upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	cb := l.cb
	ownerOnClose := cb.OnClose
	cb.OnClose = func(closed *Conn) {
		l.remove(closed)
		if ownerOnClose != nil {
			ownerOnClose(closed)
		}
	}
	c := newInbound(ws, l.cfg, cb)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		c.Close()
		return
	}
	l.conns[c] = struct{}{}
	l.mu.Unlock()

	c.serve()
}

func (l *Listener) remove(c *Conn) {
	l.mu.Lock()
	delete(l.conns, c)
	l.mu.Unlock()
}

// Len returns the number of currently open inbound connections.
func (l *Listener) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// Close drops every open inbound connection and refuses new upgrades.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	conns := make([]*Conn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return nil
}
