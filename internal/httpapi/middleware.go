package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// ContextKey type for context keys to avoid collisions
type ContextKey string

const (
	// ClientIDKey is the context key for the authenticated client ID
	ClientIDKey ContextKey = "client_id"
	// ClaimsKey is the context key for JWT claims
	ClaimsKey ContextKey = "jwt_claims"
)

// Middleware provides HTTP middleware functions
type Middleware struct {
	jwtAuth *JWTAuth
	log     *log.Logger
	noAuth  bool // Development mode: bypass authentication
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(jwtAuth *JWTAuth, logger *log.Logger, noAuth bool) *Middleware {
	return &Middleware{
		jwtAuth: jwtAuth,
		log:     logger,
		noAuth:  noAuth,
	}
}

// AuthRequired middleware requires valid JWT authentication
func (m *Middleware) AuthRequired(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.noAuth {
			ctx := context.WithValue(r.Context(), ClientIDKey, "dev-client")
			next(w, r.WithContext(ctx))
			return
		}

		token := m.extractToken(r)
		if token == "" {
			m.writeError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtAuth.ValidateToken(token)
		if err != nil {
			m.writeError(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClientIDKey, claims.ClientID)
		ctx = context.WithValue(ctx, ClaimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// CORS middleware adds CORS headers for browser compatibility
func (m *Middleware) CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// ContentType middleware sets the content type to JSON
func (m *Middleware) ContentType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func (m *Middleware) Logging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.log.Printf("INFO %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next(w, r)
	}
}

// Recovery middleware recovers from panics and returns 500 error
func (m *Middleware) Recovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.log.Printf("ERROR panic serving %s %s: %v", r.Method, r.URL.Path, err)
				m.writeError(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// extractToken extracts the JWT token from the Authorization header.
// Both "Bearer token" and bare "token" formats are accepted.
func (m *Middleware) extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// writeError writes an error response as JSON
func (m *Middleware) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// GetClientID extracts the client ID from the request context
func GetClientID(r *http.Request) string {
	if clientID, ok := r.Context().Value(ClientIDKey).(string); ok {
		return clientID
	}
	return ""
}
