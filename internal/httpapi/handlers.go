package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/peermesh/peermesh-go/internal/overlaynode"
)

// Handlers implements the HTTP API endpoints over an overlay node
type Handlers struct {
	node    *overlaynode.Node
	jwtAuth *JWTAuth
	log     *log.Logger
}

// NewHandlers creates HTTP handlers backed by the given node
func NewHandlers(node *overlaynode.Node, jwtAuth *JWTAuth, logger *log.Logger) *Handlers {
	return &Handlers{
		node:    node,
		jwtAuth: jwtAuth,
		log:     logger,
	}
}

// Login issues a JWT for the given client ID.
// POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		h.writeError(w, "clientId is required", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.ClientID)
	if err != nil {
		h.writeError(w, "Failed to generate token: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, AuthResponse{
		Token:     token,
		ClientID:  req.ClientID,
		ExpiresAt: expiresAt,
	})
}

// Health reports node liveness and peer count.
// GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Healthy: true,
		Address: h.node.AdvertiseAddr(),
		Peers:   len(h.node.PeerAddresses()),
	})
}

// ListPeers returns the current peer set.
// GET /api/v1/peers
func (h *Handlers) ListPeers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, PeersResponse{Peers: h.node.Peers()})
}

// AddPeer connects the node to another node's address.
// POST /api/v1/peers
func (h *Handlers) AddPeer(w http.ResponseWriter, r *http.Request) {
	var req AddPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		h.writeError(w, "address is required", http.StatusBadRequest)
		return
	}

	if err := h.node.AddPeer(req.Address); err != nil {
		h.writeError(w, "Failed to add peer: "+err.Error(), http.StatusConflict)
		return
	}

	h.log.Printf("INFO client %s added peer %s", GetClientID(r), req.Address)
	h.writeJSON(w, http.StatusAccepted, PeersResponse{Peers: h.node.Peers()})
}

// Broadcast sends an application envelope to every open peer.
// POST /api/v1/broadcast
func (h *Handlers) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		h.writeError(w, "event is required", http.StatusBadRequest)
		return
	}
	if req.Data == nil {
		h.writeError(w, "data is required", http.StatusBadRequest)
		return
	}

	if err := h.node.Broadcast(req.Event, req.Data); err != nil {
		h.writeError(w, "Broadcast failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, BroadcastResponse{
		Event: req.Event,
		Peers: len(h.node.PeerAddresses()),
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Printf("ERROR encoding response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
