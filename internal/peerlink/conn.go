// Package peerlink implements the overlay's WebSocket transport: dialing
// outbound peer connections, upgrading inbound ones, and running the
// per-connection read loop that feeds received envelopes to the node.
package peerlink

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// ErrConnNotOpen is returned by sends on a connection that is not open.
// Sends are best-effort; nothing is queued or retried at this layer.
var ErrConnNotOpen = errors.New("connection is not open")

// Callbacks are the hooks a connection owner wires into the transport.
// OnClose fires exactly once per connection, regardless of why it closed.
type Callbacks struct {
	OnOpen    func(c *Conn)
	OnMessage func(from *Conn, raw []byte)
	OnClose   func(c *Conn)
}

// Conn is a single overlay connection, inbound or outbound. Its lifecycle is
// a small state machine: Connecting -> Open -> Closed, with transport errors
// moving straight to Closed. Outbound connections carry the advertised
// overlay address they were dialed with; inbound connections carry none.
type Conn struct {
	addr     string
	outbound bool
	cfg      *Config
	cb       Callbacks

	state atomic.Int32

	mu sync.Mutex // guards ws assignment and writes
	ws *websocket.Conn

	finishOnce sync.Once
}

// NewOutbound creates an outbound connection to the given overlay address.
// The returned Conn is in the Connecting state and inert until Start is
// called, so callers can register it before the transport confirms
// establishment (optimistic insertion).
func NewOutbound(addr string, cfg *Config, cb Callbacks) *Conn {
	c := &Conn{
		addr:     addr,
		outbound: true,
		cfg:      cfg,
		cb:       cb,
	}
	c.state.Store(int32(overlay.StateConnecting))
	return c
}

// Start begins establishing an outbound connection in the background.
func (c *Conn) Start() {
	go c.run()
}

// newInbound wraps an upgraded WebSocket as an Open inbound connection.
func newInbound(ws *websocket.Conn, cfg *Config, cb Callbacks) *Conn {
	c := &Conn{
		cfg: cfg,
		cb:  cb,
		ws:  ws,
	}
	c.state.Store(int32(overlay.StateOpen))
	return c
}

// run dials the peer and, on success, services the connection until it
// closes. Any failure lands in finish(), which fires OnClose.
func (c *Conn) run() {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	ws, _, err := dialer.Dial(c.addr, nil)
	if err != nil {
		c.finish()
		return
	}

	c.mu.Lock()
	if c.State() == overlay.StateClosed {
		// Closed while the dial was in flight.
		c.mu.Unlock()
		ws.Close()
		return
	}
	c.ws = ws
	c.state.Store(int32(overlay.StateOpen))
	c.mu.Unlock()

	if c.cb.OnOpen != nil {
		c.cb.OnOpen(c)
	}
	c.readLoop()
}

// serve runs the read loop for an inbound connection. It blocks until the
// connection closes, matching the lifetime of the upgrading HTTP handler.
func (c *Conn) serve() {
	if c.cb.OnOpen != nil {
		c.cb.OnOpen(c)
	}
	c.readLoop()
}

func (c *Conn) readLoop() {
	defer c.finish()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if c.cb.OnMessage != nil {
			c.cb.OnMessage(c, raw)
		}
	}
}

// finish moves the connection to Closed and fires OnClose, exactly once.
func (c *Conn) finish() {
	c.finishOnce.Do(func() {
		c.state.Store(int32(overlay.StateClosed))
		c.mu.Lock()
		if c.ws != nil {
			c.ws.Close()
		}
		c.mu.Unlock()
		if c.cb.OnClose != nil {
			c.cb.OnClose(c)
		}
	})
}

// Addr returns the advertised overlay address this connection was dialed
// with, or the empty string for inbound connections.
func (c *Conn) Addr() string {
	return c.addr
}

// Outbound reports whether this node initiated the connection.
func (c *Conn) Outbound() bool {
	return c.outbound
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() overlay.ConnState {
	return overlay.ConnState(c.state.Load())
}

// RemoteAddr returns the transport-level remote address for logging. Before
// an outbound connection is established it falls back to the dialed address.
func (c *Conn) RemoteAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws != nil {
		return c.ws.RemoteAddr().String()
	}
	return c.addr
}

// Send serializes {event, data} and writes it to this connection.
func (c *Conn) Send(event string, data interface{}) error {
	raw, err := overlay.Encode(event, data)
	if err != nil {
		return err
	}
	return c.SendRaw(raw)
}

// SendRaw writes pre-serialized envelope bytes. A write failure forcibly
// closes the connection rather than leaving it half-open.
func (c *Conn) SendRaw(raw []byte) error {
	c.mu.Lock()
	if c.State() != overlay.StateOpen || c.ws == nil {
		c.mu.Unlock()
		return ErrConnNotOpen
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	err := c.ws.WriteMessage(websocket.TextMessage, raw)
	c.mu.Unlock()

	if err != nil {
		c.finish()
	}
	return err
}

// Close tears the connection down. Safe to call at any state and any number
// of times; a close during Connecting wins over the in-flight dial.
func (c *Conn) Close() error {
	c.finish()
	return nil
}

var _ overlay.Sender = (*Conn)(nil)
