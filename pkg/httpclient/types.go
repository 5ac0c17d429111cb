package httpclient

import (
	"encoding/json"
	"time"

	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the peermesh HTTP API (e.g., "http://localhost:4000")
	ServerURL string

	// ClientID is the identifier for this client
	ClientID string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// AuthResponse represents the response from authentication
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HealthResponse reports node liveness and overlay view
type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	Address string `json:"address"`
	Peers   int    `json:"peers"`
}

// PeersResponse lists the node's current peer set
type PeersResponse struct {
	Peers []overlay.PeerInfo `json:"peers"`
}

// AddPeerRequest asks the node to connect to another node
type AddPeerRequest struct {
	Address string `json:"address"`
}

// BroadcastRequest sends an envelope to every open peer
type BroadcastRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// BroadcastResponse reports the broadcast outcome
type BroadcastResponse struct {
	Event string `json:"event"`
	Peers int    `json:"peers"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
