package httpapi

import (
	"encoding/json"
	"time"

	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// Request/Response types for the HTTP API

// AuthRequest represents a login request
type AuthRequest struct {
	ClientID string `json:"clientId"`
}

// AuthResponse represents a login response
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HealthResponse reports the node's liveness and overlay view
type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	Address string `json:"address"`
	Peers   int    `json:"peers"`
}

// PeersResponse lists the node's current peer set in discovery order
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
