package framework

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cuemby/dops/pkg/types"
)

// Waiter polls a check at a fixed interval until it passes or the timeout
// expires
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a new Waiter with the given timeout and polling interval
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{timeout: timeout, interval: interval}
}

// DefaultWaiter is sized for FastTimings: 5s timeout, 5ms interval
func DefaultWaiter() *Waiter {
	return NewWaiter(5*time.Second, 5*time.Millisecond)
}

// Check returns nil once the awaited condition holds. A non-nil error
// describes what was observed instead and ends up in the timeout message.
type Check func() error

var errPending = errors.New("condition not met")

// WaitFor runs check immediately and then every interval
func (w *Waiter) WaitFor(ctx context.Context, description string, check Check) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var last error
	op := func() error {
		last = check()
		return last
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(w.interval), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if last == nil {
			last = err
		}
		return fmt.Errorf("timeout after %v waiting for %s: %w", w.timeout, description, last)
	}
	return nil
}

// WaitForPhase waits until /status reports phase
func (w *Waiter) WaitForPhase(ctx context.Context, client *StatusClient, phase types.Phase) error {
	return w.WaitFor(ctx, fmt.Sprintf("phase %s", phase), func() error {
		snap, err := client.Snapshot()
		if err != nil {
			return err
		}
		if snap.State.Phase != phase {
			return fmt.Errorf("%w: phase is %s", errPending, snap.State.Phase)
		}
		return nil
	})
}

// WaitForReady waits until /ready answers 200
func (w *Waiter) WaitForReady(ctx context.Context, client *StatusClient) error {
	return w.WaitFor(ctx, "/ready to answer 200", func() error {
		code, err := client.ReadyCode()
		if err != nil {
			return err
		}
		if code != http.StatusOK {
			return fmt.Errorf("%w: /ready answered %d", errPending, code)
		}
		return nil
	})
}

// WaitForStatusServer waits until the status server accepts connections
func (w *Waiter) WaitForStatusServer(ctx context.Context, client *StatusClient) error {
	return w.WaitFor(ctx, "status server to listen", func() error {
		_, err := client.Snapshot()
		return err
	})
}
