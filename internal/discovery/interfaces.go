package discovery

import "context"

// Discovery defines the interface for seeding the overlay with peer
// addresses before gossip takes over.
type Discovery interface {
	// FindPeers returns addresses of reachable overlay nodes.
	FindPeers(ctx context.Context) ([]string, error)
}
