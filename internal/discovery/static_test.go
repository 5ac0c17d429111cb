package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDiscoveryCleansSeeds(t *testing.T) {
	d := NewStaticDiscovery([]string{
		" ws://10.0.0.1:4000/ws ",
		"",
		"ws://10.0.0.2:4000/ws",
		"   ",
	})

	peers, err := d.FindPeers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ws://10.0.0.1:4000/ws", "ws://10.0.0.2:4000/ws"}, peers)
}

func TestStaticDiscoveryReturnsCopy(t *testing.T) {
	d := NewStaticDiscovery([]string{"ws://10.0.0.1:4000/ws"})

	peers, err := d.FindPeers(context.Background())
	require.NoError(t, err)
	peers[0] = "mutated"

	again, err := d.FindPeers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ws://10.0.0.1:4000/ws"}, again)
}
