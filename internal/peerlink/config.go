package peerlink

import (
	"errors"
	"time"
)

// Config holds configuration for the WebSocket transport.
type Config struct {
	// DialTimeout bounds the WebSocket handshake for outbound connections.
	DialTimeout time.Duration

	// WriteTimeout bounds a single envelope write.
	WriteTimeout time.Duration

	// MaxMessageSize caps the size of a received message in bytes.
	MaxMessageSize int64
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DialTimeout < 0 {
		return errors.New("dial timeout cannot be negative")
	}
	if c.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}
	if c.MaxMessageSize < 0 {
		return errors.New("max message size cannot be negative")
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 1024 * 1024 // 1MB
	}
}
