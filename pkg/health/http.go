package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/dops/pkg/types"
)

// LivenessPath is the endpoint probed for liveness. The service has no
// dedicated health route; any answer from /states proves it is warm.
const LivenessPath = "/states"

// maxDrain bounds how much of a probe response is read before closing, so
// keep-alive connections can be reused without downloading the full list
const maxDrain = 64 << 10

// HTTPProber performs HTTP-based liveness probes
type HTTPProber struct {
	// URL is the full URL to probe (e.g., "https://api.example.com/states")
	URL string

	// Method is the HTTP method to use (default: GET)
	Method string

	// Headers are custom HTTP headers to include in the request
	Headers map[string]string

	// Client is the HTTP client to use. Its own Timeout is left unset;
	// each probe is bounded by the timeout passed to Probe.
	Client *http.Client
}

// NewHTTPProber creates a prober for the liveness endpoint under baseURL
func NewHTTPProber(baseURL string) *HTTPProber {
	return &HTTPProber{
		URL:     strings.TrimRight(baseURL, "/") + LivenessPath,
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Client:  &http.Client{},
	}
}

// Probe performs one liveness request.
//
// Any status below 500 is Ready: a cold backend does not answer at all, so
// even a client error proves it is up. A 5xx is Ambiguous because the
// hosting proxy answered but the application did not. Timeouts and transport
// errors are NotReady. Cancellation by the caller is Ambiguous so it is never
// mistaken for a real outage.
func (h *HTTPProber) Probe(ctx context.Context, timeout time.Duration) types.ProbeResult {
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, h.Method, h.URL, nil)
	if err != nil {
		return result(types.ProbeAmbiguous, fmt.Sprintf("failed to create request: %v", err), start)
	}

	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return result(types.ProbeAmbiguous, "probe canceled", start)
		}
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return result(types.ProbeNotReady, fmt.Sprintf("timeout after %v", timeout), start)
		}
		return result(types.ProbeNotReady, fmt.Sprintf("request failed: %v", err), start)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		return result(types.ProbeAmbiguous, message, start)
	}

	return result(types.ProbeReady, message, start)
}

// WithHeader adds a custom HTTP header
func (h *HTTPProber) WithHeader(key, value string) *HTTPProber {
	h.Headers[key] = value
	return h
}

// WithClient replaces the HTTP client (e.g. to share a transport)
func (h *HTTPProber) WithClient(client *http.Client) *HTTPProber {
	h.Client = client
	return h
}

func result(status types.ProbeStatus, reason string, start time.Time) types.ProbeResult {
	return types.ProbeResult{
		Status:    status,
		Reason:    reason,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
