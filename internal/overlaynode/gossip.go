package overlaynode

import (
	"encoding/json"
	"fmt"

	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// handleKnownPeers processes a peer-list advertisement: walk every address
// in the list and connect to the unknown ones. AddPeer's idempotence makes
// already-known peers and our own address safe to pass through.
func (n *Node) handleKnownPeers(from overlay.Sender, data json.RawMessage) error {
	var payload overlay.KnownPeersPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", overlay.EventKnownPeers, err)
	}
	for _, addr := range payload.Value {
		if addr == n.config.AdvertiseAddr {
			continue
		}
		if err := n.AddPeer(addr); err != nil {
			n.config.Logger.Printf("WARN could not add advertised peer %s: %v", addr, err)
		}
	}
	return nil
}

// handleRequestKnownPeers processes a peer-list request: learn the requester
// as a new peer, then reply directly to the requesting connection with our
// current peer set plus our own address.
func (n *Node) handleRequestKnownPeers(from overlay.Sender, data json.RawMessage) error {
	var payload overlay.RequestKnownPeersPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", overlay.EventRequestKnownPeers, err)
	}
	if payload.Requester != "" {
		if err := n.AddPeer(payload.Requester); err != nil {
			n.config.Logger.Printf("WARN could not add requester %s: %v", payload.Requester, err)
		}
	}
	return from.Send(overlay.EventKnownPeers, overlay.KnownPeersPayload{
		Value: append(n.peers.Addresses(), n.config.AdvertiseAddr),
	})
}
