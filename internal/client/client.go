// Package client is a small HTTP client for the serve daemon's API,
// shared by the CLI subcommands and the TUI.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/wpe/internal/server"
)

// DefaultTimeout bounds one API request. Apply can block on renderer
// startup latency, so this is generous.
const DefaultTimeout = 30 * time.Second

type Client struct {
	base string
	http *http.Client
}

// New creates a client for a daemon at baseURL (e.g. http://127.0.0.1:8943).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Status fetches the per-monitor run state.
func (c *Client) Status() (server.StatusResponse, error) {
	var out server.StatusResponse
	err := c.do(http.MethodGet, "/api/status", &out)
	return out, err
}

// Apply asks the daemon to reload its config file and reconcile.
func (c *Client) Apply() (server.ApplyResponse, error) {
	var out server.ApplyResponse
	err := c.do(http.MethodPost, "/api/apply", &out)
	return out, err
}

// StopAll asks the daemon to stop every tracked renderer.
func (c *Client) StopAll() (server.StopResponse, error) {
	var out server.StopResponse
	err := c.do(http.MethodPost, "/api/stop", &out)
	return out, err
}

func (c *Client) do(method, path string, out any) error {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	// 422 still carries a useful payload (per-entry config errors).
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}
