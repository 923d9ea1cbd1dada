// internal/trader/client.go
package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Trader is the read-side surface of the trading engine's REST API
// (freqtrade-compatible). Handlers receive an implementation through
// the tool context.
type Trader interface {
	GetStatus(ctx context.Context) (any, error)
	GetBalance(ctx context.Context) (any, error)
	GetTrades(ctx context.Context) (any, error)
}

// Client talks to a freqtrade-style API server using basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a trading-engine API client.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Trader = (*Client)(nil)

// APIAuth is the api_server section of the trading engine's own
// config file, which is the canonical place its credentials live.
type APIAuth struct {
	BaseURL  string
	Username string
	Password string
}

// LoadAPIAuth reads the trading engine's JSON config and extracts the
// API server address and credentials.
func LoadAPIAuth(configPath string) (*APIAuth, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read trader config: %w", err)
	}

	var cfg struct {
		APIServer struct {
			ListenIPAddress string `json:"listen_ip_address"`
			ListenPort      int    `json:"listen_port"`
			Username        string `json:"username"`
			Password        string `json:"password"`
		} `json:"api_server"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse trader config: %w", err)
	}

	host := cfg.APIServer.ListenIPAddress
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.APIServer.ListenPort
	if port == 0 {
		port = 18080
	}
	username := cfg.APIServer.Username
	if username == "" {
		username = "admin"
	}
	password := cfg.APIServer.Password
	if password == "" {
		password = "admin"
	}

	return &APIAuth{
		BaseURL:  fmt.Sprintf("http://%s:%d", host, port),
		Username: username,
		Password: password,
	}, nil
}

// getJSON performs an authenticated GET and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, path string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trader request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trader API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return out, nil
}

// GetStatus returns the open trades status.
func (c *Client) GetStatus(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/api/v1/status")
}

// GetBalance returns the computed account balance.
func (c *Client) GetBalance(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/api/v1/balance")
}

// GetTrades returns the trade history.
func (c *Client) GetTrades(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "/api/v1/trades")
}
