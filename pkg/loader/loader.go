package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/log"
	"github.com/cuemby/dops/pkg/metrics"
	"github.com/cuemby/dops/pkg/types"
	"github.com/rs/zerolog"
)

// StatesFetcher fetches the raw state list
type StatesFetcher interface {
	States(ctx context.Context) ([]string, error)
}

// Loader fetches the location catalog once the backend is warm
type Loader struct {
	fetcher  StatesFetcher
	attempts int
	timeout  time.Duration
	step     time.Duration
	logger   zerolog.Logger
}

// New creates a loader using the location timings
func New(fetcher StatesFetcher, t config.Timings) *Loader {
	return &Loader{
		fetcher:  fetcher,
		attempts: t.LocationAttempts,
		timeout:  t.LocationTimeout,
		step:     t.LocationBackoffStep,
		logger:   log.WithComponent("loader"),
	}
}

// Load fetches the states with bounded retries. After failed attempt n it
// waits step×n, and each attempt is bounded by the loader timeout.
//
// When every attempt fails and backendReady is true, Load returns the
// Limited Mode catalog instead of an error: the backend is known to be up, so
// the user gets a usable screen rather than an endless spinner. Cancellation
// of ctx always returns the context error.
func (l *Loader) Load(ctx context.Context, backendReady bool) (types.LocationCatalog, error) {
	var catalog types.LocationCatalog
	attempt := 0

	operation := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		states, err := l.fetcher.States(attemptCtx)
		if err == nil {
			catalog = types.NewLocationCatalog(states)
			if len(catalog.States) == 0 {
				err = errors.New("empty state list")
			}
		}
		if err != nil {
			metrics.LocationLoadAttempts.WithLabelValues("failure").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		metrics.LocationLoadAttempts.WithLabelValues("success").Inc()
		return nil
	}

	notify := func(err error, wait time.Duration) {
		l.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", l.attempts).
			Dur("retry_in", wait).
			Msg("Failed to load locations, retrying")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: l.step}, uint64(l.attempts-1)), ctx)
	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		l.logger.Info().
			Int("states", len(catalog.States)).
			Int("attempts", attempt).
			Msg("Locations loaded")
		return catalog, nil
	}

	if ctx.Err() != nil {
		return types.LocationCatalog{}, ctx.Err()
	}

	if backendReady {
		l.logger.Error().
			Err(err).
			Int("attempts", attempt).
			Msg("Location list unavailable, continuing in limited mode")
		return types.LimitedCatalog(), nil
	}

	return types.LocationCatalog{}, fmt.Errorf("failed to load locations after %d attempts: %w", attempt, err)
}

// linearBackOff waits step, 2×step, 3×step, ...
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.step * time.Duration(b.n)
}

func (b *linearBackOff) Reset() {
	b.n = 0
}
