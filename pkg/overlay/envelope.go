package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reserved event names used by the peer-list gossip protocol.
const (
	// EventKnownPeers advertises a node's full known-peer address list.
	EventKnownPeers = "KNOWN_PEERS"

	// EventRequestKnownPeers asks a node to reply with its known peers.
	EventRequestKnownPeers = "REQUEST_KNOWN_PEERS"
)

// Envelope validation errors returned by ParseEnvelope.
var (
	// ErrMalformedEnvelope is returned when the payload is not a JSON object
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrMissingEvent is returned when the envelope has no event field
	ErrMissingEvent = errors.New("envelope missing event field")
	// ErrEventNotString is returned when the event field is not a string
	ErrEventNotString = errors.New("envelope event field is not a string")
	// ErrMissingData is returned when the envelope has no data field
	ErrMissingData = errors.New("envelope missing data field")
)

// Envelope is the wire unit exchanged over every connection. Event selects
// the registered handler; Data is handler-defined and opaque to the router.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// KnownPeersPayload is the data carried by a KNOWN_PEERS envelope.
type KnownPeersPayload struct {
	Value []string `json:"value"`
}

// RequestKnownPeersPayload is the data carried by a REQUEST_KNOWN_PEERS
// envelope. Requester is the sender's own externally-reachable address.
type RequestKnownPeersPayload struct {
	Requester string `json:"requester"`
}

// ParseEnvelope validates raw bytes as an Envelope. It either yields a fully
// validated Envelope or a rejection reason; callers never see a partially
// trusted value. A rejected message must be dropped, not the connection.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var probe struct {
		Event json.RawMessage `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if probe.Event == nil {
		return Envelope{}, ErrMissingEvent
	}
	var event string
	if err := json.Unmarshal(probe.Event, &event); err != nil {
		return Envelope{}, ErrEventNotString
	}
	if probe.Data == nil {
		return Envelope{}, ErrMissingData
	}
	return Envelope{Event: event, Data: probe.Data}, nil
}

// Encode serializes an event name and payload into envelope wire bytes.
func Encode(event string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: payload})
}
