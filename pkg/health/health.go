package health

import (
	"context"
	"time"

	"github.com/cuemby/dops/pkg/types"
)

// Prober is the interface that all liveness probes must implement.
// A Prober never retries internally and never touches WarmupState;
// callers interpret the result.
type Prober interface {
	// Probe issues one request bounded by timeout and classifies the outcome
	Probe(ctx context.Context, timeout time.Duration) types.ProbeResult
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, timeout time.Duration) types.ProbeResult

// Probe calls f(ctx, timeout)
func (f ProberFunc) Probe(ctx context.Context, timeout time.Duration) types.ProbeResult {
	return f(ctx, timeout)
}

// Status tracks probe outcomes over the life of a session
type Status struct {
	// ConsecutiveFailures counts not-ready and ambiguous results in a row
	ConsecutiveFailures int `json:"consecutive_failures"`

	// ConsecutiveSuccesses counts ready results in a row
	ConsecutiveSuccesses int `json:"consecutive_successes"`

	// Total is the number of results recorded
	Total int `json:"total"`

	// LastCheck is the timestamp of the last probe
	LastCheck time.Time `json:"last_check"`

	// LastResult is the classification of the last probe
	LastResult string `json:"last_result"`
}

// Update records a probe result
func (s *Status) Update(result types.ProbeResult) {
	s.Total++
	s.LastCheck = result.CheckedAt
	s.LastResult = result.String()

	if result.Ready() {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
	} else {
		s.ConsecutiveFailures++
		s.ConsecutiveSuccesses = 0
	}
}
