// Package httpclient provides a typed client for the peermesh HTTP API.
// It is consumed by the peermesh-cli command and usable by any host process
// managing a remote node.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client provides HTTP client access to a peermesh node's API
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a new peermesh HTTP client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("ClientID is required")
	}

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    baseURL,
	}, nil
}

// Authenticate authenticates with the node and stores the token
func (c *Client) Authenticate(ctx context.Context) error {
	authReq := map[string]string{
		"clientId": c.config.ClientID,
	}

	var authResp AuthResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", authReq, &authResp, false)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	c.token = authResp.Token
	return nil
}

// GetHealth returns the node's health status
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}
	return &resp, nil
}

// ListPeers returns the node's current peer set
func (c *Client) ListPeers(ctx context.Context) (*PeersResponse, error) {
	var resp PeersResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/peers", nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list peers: %w", err)
	}
	return &resp, nil
}

// AddPeer asks the node to connect to another node's address
func (c *Client) AddPeer(ctx context.Context, address string) (*PeersResponse, error) {
	req := AddPeerRequest{Address: address}

	var resp PeersResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/peers", req, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to add peer: %w", err)
	}
	return &resp, nil
}

// Broadcast sends an application envelope to every open peer of the node
func (c *Client) Broadcast(ctx context.Context, event string, data interface{}) (*BroadcastResponse, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal broadcast data: %w", err)
	}
	req := BroadcastRequest{Event: event, Data: payload}

	var resp BroadcastResponse
	err = c.doRequest(ctx, http.MethodPost, "/api/v1/broadcast", req, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast: %w", err)
	}
	return &resp, nil
}

// IsAuthenticated returns whether the client has a token
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// GetToken returns the current authentication token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken sets the authentication token (for token reuse across invocations)
func (c *Client) SetToken(token string) {
	c.token = token
}

// doRequest performs an HTTP request with optional authentication
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	fullURL := c.baseURL.ResolveReference(&url.URL{Path: path})

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(bodyBytes))
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Message)
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
