package overlaynode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermesh/peermesh-go/internal/peerlink"
)

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig("ws://127.0.0.1:4000/ws")
	assert.NoError(t, cfg.Validate())

	cfg = NewConfig("wss://node.example.com:443/ws")
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsBadAddresses(t *testing.T) {
	assert.ErrorIs(t, NewConfig("").Validate(), ErrEmptyAdvertiseAddr)

	for _, addr := range []string{
		"http://127.0.0.1:4000/",
		"127.0.0.1:4000",
		"ws://",
	} {
		assert.ErrorIs(t, NewConfig(addr).Validate(), ErrInvalidAdvertiseAddr, "addr %q", addr)
	}
}

func TestConfigValidateRejectsNegativeReconnectDelay(t *testing.T) {
	cfg := NewConfig("ws://127.0.0.1:4000/")
	cfg.ReconnectDelay = -time.Second
	assert.ErrorIs(t, cfg.Validate(), ErrNegativeReconnectDelay)
}

func TestConfigValidateChecksPeerlink(t *testing.T) {
	cfg := NewConfig("ws://127.0.0.1:4000/")
	cfg.Peerlink = &peerlink.Config{DialTimeout: -time.Second}
	assert.Error(t, cfg.Validate())
}

func TestConfigSetDefaults(t *testing.T) {
	cfg := NewConfig("ws://127.0.0.1:4000/")
	cfg.SetDefaults()

	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	require.NotNil(t, cfg.Peerlink)
	assert.Equal(t, 10*time.Second, cfg.Peerlink.DialTimeout)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Registry)
}

func TestConfigSetDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := NewConfig("ws://127.0.0.1:4000/")
	cfg.ReconnectDelay = time.Second
	cfg.SetDefaults()
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
}
