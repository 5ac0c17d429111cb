package discovery

import (
	"context"
	"strings"
)

// StaticDiscovery implements Discovery using a static list of seed addresses.
// One valid seed is enough: gossip discovers the rest of the overlay.
type StaticDiscovery struct {
	seeds []string
}

// NewStaticDiscovery creates a discovery service over the given seed
// addresses. Empty entries are dropped.
func NewStaticDiscovery(seeds []string) *StaticDiscovery {
	cleaned := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return &StaticDiscovery{seeds: cleaned}
}

// FindPeers returns the static seed address list.
func (s *StaticDiscovery) FindPeers(ctx context.Context) ([]string, error) {
	peers := make([]string, len(s.seeds))
	copy(peers, s.seeds)
	return peers, nil
}

var _ Discovery = (*StaticDiscovery)(nil)
