package framework

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/dops/pkg/session"
)

// StatusClient reads the ops endpoints of a running session
type StatusClient struct {
	baseURL string
	http    *http.Client
}

// NewStatusClient creates a client for a status server base URL
func NewStatusClient(baseURL string) *StatusClient {
	return &StatusClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Snapshot fetches /status
func (c *StatusClient) Snapshot() (session.Snapshot, error) {
	var snap session.Snapshot

	resp, err := c.http.Get(c.baseURL + "/status")
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&snap)
	return snap, err
}

// ReadyCode returns the HTTP status of /ready
func (c *StatusClient) ReadyCode() (int, error) {
	resp, err := c.http.Get(c.baseURL + "/ready")
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
