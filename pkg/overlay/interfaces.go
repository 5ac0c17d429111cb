package overlay

import (
	"encoding/json"
	"fmt"
)

// ConnState is the per-connection state machine. A connection starts in
// Connecting, moves to Open when the transport confirms establishment, and
// ends in Closed. Transport errors transition directly to Closed.
type ConnState int32

const (
	// StateConnecting means the outbound dial has not completed yet.
	StateConnecting ConnState = iota
	// StateOpen means the transport is established and writable.
	StateOpen
	// StateClosed means the transport has closed; terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as its name, so API payloads read
// "connecting" rather than 0.
func (s ConnState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name produced by MarshalJSON.
func (s *ConnState) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return err
	}
	switch name {
	case "connecting":
		*s = StateConnecting
	case "open":
		*s = StateOpen
	case "closed":
		*s = StateClosed
	default:
		return fmt.Errorf("unknown connection state %q", name)
	}
	return nil
}

// Sender is the originating connection handle passed to event handlers.
// For an outbound peer it is the tracked peer connection; for an inbound
// connection it is the accepted socket, which carries no verified overlay
// address.
type Sender interface {
	// Send serializes {event, data} and writes it to this connection.
	// Sends to a connection that is not open are dropped with an error;
	// nothing is queued or retried.
	Send(event string, data interface{}) error

	// RemoteAddr returns the transport-level remote address, for logging.
	RemoteAddr() string
}

// HandlerFunc processes one received envelope. Handlers run synchronously on
// the receiving connection's read path; a returned error (or a panic) is
// contained and logged by the router and never affects the connection.
type HandlerFunc func(from Sender, data json.RawMessage) error

// PeerInfo describes one entry of a node's peer set.
type PeerInfo struct {
	Address string    `json:"address"`
	State   ConnState `json:"state"`
}
