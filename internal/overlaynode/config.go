package overlaynode

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peermesh/peermesh-go/internal/peerlink"
)

var (
	// ErrEmptyAdvertiseAddr is returned when the advertise address is empty
	ErrEmptyAdvertiseAddr = errors.New("advertise address cannot be empty")
	// ErrInvalidAdvertiseAddr is returned when the advertise address is not a ws/wss URL
	ErrInvalidAdvertiseAddr = errors.New("advertise address must be a ws:// or wss:// URL")
	// ErrNegativeReconnectDelay is returned for a negative reconnect delay
	ErrNegativeReconnectDelay = errors.New("reconnect delay cannot be negative")
)

// Config represents configuration for an overlay Node.
type Config struct {
	// AdvertiseAddr is this node's externally-reachable address, e.g.
	// "ws://10.0.0.5:4000/ws". It is the node's sole identity in the
	// overlay and the address gossiped to other nodes.
	AdvertiseAddr string

	// ReconnectDelay is how long to wait after an outbound peer's transport
	// closes before dialing it again. Defaults to 5 seconds.
	ReconnectDelay time.Duration

	// Peerlink configures the WebSocket transport. Nil means defaults.
	Peerlink *peerlink.Config

	// Logger receives the node's log output. Nil means stderr.
	Logger *log.Logger

	// Registry collects the node's metrics. Nil means a private registry,
	// retrievable via Node.Registry().
	Registry *prometheus.Registry
}

// NewConfig creates a node configuration with safe defaults.
func NewConfig(advertiseAddr string) *Config {
	return &Config{
		AdvertiseAddr: advertiseAddr,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.AdvertiseAddr == "" {
		return ErrEmptyAdvertiseAddr
	}
	u, err := url.Parse(c.AdvertiseAddr)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return ErrInvalidAdvertiseAddr
	}
	if c.ReconnectDelay < 0 {
		return ErrNegativeReconnectDelay
	}
	if c.Peerlink != nil {
		if err := c.Peerlink.Validate(); err != nil {
			return fmt.Errorf("invalid peerlink config: %w", err)
		}
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.Peerlink == nil {
		c.Peerlink = &peerlink.Config{}
	}
	c.Peerlink.SetDefaults()
	if c.Logger == nil {
		c.Logger = log.New(os.Stderr, "[peermesh] ", log.LstdFlags)
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
}
