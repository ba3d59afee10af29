package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cuemby/dops/pkg/types"
)

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx response
type StatusError struct {
	Code int

	// Detail is the service's "detail" message when it sent one, otherwise
	// the start of the raw body
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Detail)
}

// IsServerError reports whether the service answered 5xx
func (e *StatusError) IsServerError() bool {
	return e.Code >= http.StatusInternalServerError
}

// IsServerError reports whether err wraps a 5xx StatusError
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.IsServerError()
}

// IsNotFound reports whether err wraps a 404 StatusError
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to the prediction service. Every call is bounded by the
// context passed in; the client sets no timeout of its own.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// HTTPClient returns the underlying HTTP client
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// WithUserAgent sets the User-Agent header sent on every request
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// BaseURL returns the service base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

type statesResponse struct {
	States []string `json:"states"`
}

type districtsResponse struct {
	Districts []string `json:"districts"`
}

type predictResponse struct {
	Predictions []types.PredictionRecord `json:"predictions"`
}

// States fetches the list of states
func (c *Client) States(ctx context.Context) ([]string, error) {
	var resp statesResponse
	if err := c.do(ctx, http.MethodGet, "/states", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch states: %w", err)
	}
	if resp.States == nil {
		return nil, errors.New("failed to fetch states: response has no states field")
	}
	return resp.States, nil
}

// Districts fetches the districts of one state
func (c *Client) Districts(ctx context.Context, state string) ([]string, error) {
	var resp districtsResponse
	if err := c.do(ctx, http.MethodGet, "/districts/"+url.PathEscape(state), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch districts for %q: %w", state, err)
	}
	if resp.Districts == nil {
		return nil, fmt.Errorf("failed to fetch districts for %q: response has no districts field", state)
	}
	return resp.Districts, nil
}

// Predict runs a prediction for a state and district
func (c *Client) Predict(ctx context.Context, req types.PredictionRequest) ([]types.PredictionRecord, error) {
	var resp predictResponse
	if err := c.do(ctx, http.MethodPost, "/predict", req, &resp); err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	if resp.Predictions == nil {
		return nil, errors.New("prediction failed: response has no predictions field")
	}
	return resp.Predictions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Detail any `json:"detail"`
	}
	detail := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			detail = s
		} else if b, err := json.Marshal(payload.Detail); err == nil {
			detail = string(b)
		}
	}

	return &StatusError{Code: resp.StatusCode, Detail: detail}
}
