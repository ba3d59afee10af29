package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuemby/dops/pkg/client"
	"github.com/cuemby/dops/pkg/events"
	"github.com/cuemby/dops/pkg/metrics"
	"github.com/cuemby/dops/pkg/types"
	"github.com/cuemby/dops/pkg/warmup"
)

// gate returns the error a request must fail with in the current state
func (s *Session) gate() error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}

	st := s.State()
	switch {
	case st.Phase == types.PhaseFailed:
		return ErrServiceUnavailable
	case !st.CanPredict():
		return ErrNotReady
	}
	return nil
}

// Predict runs a prediction for a state and district. It is only allowed
// once the session is Ready with locations loaded and no recovery running.
//
// The previous records are cleared when the request starts. A 5xx answer
// hands the session back to recovery when budget remains; the returned error
// then wraps ErrRecoveryStarted.
func (s *Session) Predict(ctx context.Context, state, district string) ([]types.PredictionRecord, error) {
	state, district = strings.TrimSpace(state), strings.TrimSpace(district)
	if state == "" || district == "" {
		return nil, ErrInvalidSelection
	}
	if err := s.gate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.predictions = nil
	s.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timings.PredictTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	records, err := s.api.Predict(reqCtx, types.PredictionRequest{State: state, District: district})
	timer.ObserveDuration(metrics.PredictionDuration)

	if err != nil {
		metrics.PredictionRequests.WithLabelValues("failure").Inc()
		err = s.predictionFailed(ctx, err)
		s.broker.Publish(&events.Event{
			Type:     events.EventPredictionFailed,
			State:    s.State(),
			Message:  err.Error(),
			Metadata: map[string]string{"state": state, "district": district},
		})
		return nil, err
	}

	metrics.PredictionRequests.WithLabelValues("success").Inc()

	s.mu.Lock()
	s.predictions = records
	s.mu.Unlock()

	s.logger.Info().
		Str("state", state).
		Str("district", district).
		Int("records", len(records)).
		Dur("duration", timer.Duration()).
		Msg("Prediction completed")
	s.broker.Publish(&events.Event{
		Type:     events.EventPredictionComplete,
		State:    s.State(),
		Metadata: map[string]string{"state": state, "district": district},
	})

	return append([]types.PredictionRecord(nil), records...), nil
}

// predictionFailed decides how a failed prediction is reported
func (s *Session) predictionFailed(ctx context.Context, err error) error {
	if !client.IsServerError(err) {
		s.logger.Warn().Err(err).Msg("Prediction failed")
		return err
	}

	tr, applyErr := s.apply(ctx, warmup.PredictionServerError{})
	if applyErr != nil {
		return err
	}

	switch {
	case !tr.before.RecoveryInProgress() && tr.after.RecoveryInProgress():
		s.logger.Warn().
			Err(err).
			Int("attempt", tr.after.RecoveryAttempts).
			Msg("Prediction hit a server error, starting recovery")
		return fmt.Errorf("%w: %w", ErrRecoveryStarted, err)
	case tr.before.RecoveryInProgress():
		// another request already handed the session to recovery
		s.logger.Warn().Err(err).Msg("Prediction hit a server error during recovery")
	default:
		s.logger.Warn().Err(err).Msg("Prediction hit a server error, recovery budget spent")
	}
	return err
}

// Districts returns the districts of a state, fetching them on first use and
// caching them in the catalog afterwards
func (s *Session) Districts(ctx context.Context, state string) ([]string, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return nil, ErrInvalidSelection
	}
	if err := s.gate(); err != nil {
		return nil, err
	}

	catalog := s.Catalog()
	if catalog.Limited {
		return nil, ErrLimitedMode
	}
	if districts, ok := catalog.Districts(state); ok {
		return districts, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timings.DistrictsTimeout)
	defer cancel()

	districts, err := s.api.Districts(reqCtx, state)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, fmt.Errorf("%w for %q", ErrNoDistricts, state)
		}
		return nil, err
	}

	s.mu.Lock()
	s.catalog = s.catalog.WithDistricts(state, districts)
	cached, _ := s.catalog.Districts(state)
	s.mu.Unlock()

	if len(cached) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoDistricts, state)
	}
	return cached, nil
}

// IsInline reports whether err is a request error the user can dismiss, as
// opposed to the terminal failure of the session
func IsInline(err error) bool {
	return err != nil && !errors.Is(err, ErrServiceUnavailable) && !errors.Is(err, ErrClosed)
}
