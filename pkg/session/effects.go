package session

import (
	"context"
	"time"

	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/metrics"
	"github.com/cuemby/dops/pkg/types"
	"github.com/cuemby/dops/pkg/warmup"
)

const (
	scopeProbe     Scope = "probe"
	scopeLocations Scope = "locations"
)

func loopScope(l warmup.Loop) Scope {
	return Scope(l)
}

// execute carries out one effect. It runs on the loop goroutine and never
// blocks: anything slow is registered with the task registry.
func (s *Session) execute(st types.WarmupState, effect warmup.Effect) {
	switch e := effect.(type) {
	case warmup.ScheduleEarlyProbe:
		s.tasks.After(loopScope(warmup.LoopSchedule), e.After, s.postFunc(warmup.EarlyProbeDue{}))

	case warmup.SchedulePhase:
		s.tasks.After(loopScope(warmup.LoopSchedule), e.After, s.postFunc(warmup.PhaseElapsed{Epoch: e.Epoch, Index: e.Index}))

	case warmup.StartGrace:
		s.tasks.After(loopScope(warmup.LoopSchedule), e.After, s.postFunc(warmup.ScheduleExhausted{Epoch: e.Epoch}))

	case warmup.StartPolling:
		s.tasks.Cancel(loopScope(warmup.LoopPoll))
		s.tasks.Every(loopScope(warmup.LoopPoll), e.Interval, s.postFunc(warmup.PollDue{}))

	case warmup.StartMonitor:
		if !s.tasks.Active(loopScope(warmup.LoopMonitor)) {
			s.tasks.Every(loopScope(warmup.LoopMonitor), e.Interval, s.postFunc(warmup.MonitorDue{}))
		}

	case warmup.Probe:
		s.probe(e)

	case warmup.StartFastForward:
		s.fastForward(e)

	case warmup.StartRecovery:
		s.tasks.Go(loopScope(warmup.LoopRecovery), func(ctx context.Context) {
			ready := s.recover(ctx, e.Kind, e.Timings)
			if ctx.Err() != nil {
				metrics.RecoveryTotal.WithLabelValues(string(e.Kind), "preempted").Inc()
				return
			}
			outcome := "failed"
			if ready {
				outcome = "ready"
			}
			metrics.RecoveryTotal.WithLabelValues(string(e.Kind), outcome).Inc()
			s.post(envelope{event: warmup.RecoveryOutcome{Epoch: e.Epoch, Kind: e.Kind, Ready: ready}})
		})

	case warmup.ScheduleCycleRestart:
		s.logger.Info().
			Dur("delay", e.After).
			Msg("Quick recovery failed, restarting warm-up cycle")
		s.tasks.After(loopScope(warmup.LoopRecovery), e.After, s.postFunc(warmup.CycleRestart{Epoch: e.Epoch}))

	case warmup.Stop:
		s.tasks.Cancel(loopScope(e.Loop))

	case warmup.LoadLocations:
		s.tasks.Go(scopeLocations, s.loadLocations)

	case warmup.CancelAll:
		s.tasks.CancelAll()
		s.logger.Error().
			Int("cycle", st.Cycle).
			Int("recovery_attempts", st.RecoveryAttempts).
			Msg("Recovery budget exhausted, backend unavailable")
	}
}

// probe issues one liveness probe unless the same source already has one in
// flight
func (s *Session) probe(e warmup.Probe) {
	if s.inflight[e.Source] {
		s.logger.Debug().Str("source", string(e.Source)).Msg("Probe already in flight, skipping")
		return
	}

	registered := s.tasks.Go(scopeProbe, func(ctx context.Context) {
		timer := metrics.NewTimer()
		result := s.prober.Probe(ctx, e.Timeout)

		metrics.ProbesTotal.WithLabelValues(string(e.Source), string(result.Status)).Inc()
		timer.ObserveDurationVec(metrics.ProbeDuration, string(e.Source))
		s.logger.Debug().
			Str("source", string(e.Source)).
			Str("result", result.String()).
			Dur("duration", result.Duration).
			Msg("Probe completed")

		s.post(envelope{event: warmup.ProbeCompleted{Source: e.Source, Result: result}})
	})
	if registered {
		s.inflight[e.Source] = true
	}
}

// fastForward animates the bar to 100%, holds, and reports completion. A
// failsafe reports completion regardless if the ticks stall.
func (s *Session) fastForward(e warmup.StartFastForward) {
	scope := loopScope(warmup.LoopFastForward)
	s.tasks.Cancel(scope)

	start := time.Now()
	s.tasks.Go(scope, func(ctx context.Context) {
		ticker := time.NewTicker(e.Tick)
		defer ticker.Stop()

		for done := false; !done; {
			select {
			case <-ticker.C:
				var percent float64
				var index int
				percent, index, done = e.Animation.At(time.Since(start))
				if !s.post(envelope{event: warmup.FastForwardTick{Epoch: e.Epoch, Progress: percent, PhaseIndex: index}}) {
					return
				}
			case <-ctx.Done():
				return
			}
		}

		hold := time.NewTimer(e.Hold)
		defer hold.Stop()
		select {
		case <-hold.C:
			s.post(envelope{event: warmup.FastForwardDone{Epoch: e.Epoch}})
		case <-ctx.Done():
		}
	})

	s.tasks.After(scope, e.Failsafe, func() {
		s.logger.Warn().Dur("failsafe", e.Failsafe).Msg("Fast-forward stalled, forcing completion")
		s.post(envelope{event: warmup.FastForwardDone{Epoch: e.Epoch}})
	})
}

// recover runs one bounded recovery procedure: up to Probes probes separated
// by Backoff, then Hold before giving up
func (s *Session) recover(ctx context.Context, kind types.RecoveryKind, t config.RecoveryTimings) bool {
	logger := s.logger.With().Str("recovery", string(kind)).Logger()
	logger.Warn().
		Int("attempt", kind.Attempt()).
		Int("probes", t.Probes).
		Msg("Recovery started")

	for i := 1; i <= t.Probes; i++ {
		result := s.prober.Probe(ctx, t.Timeout)
		if ctx.Err() != nil {
			return false
		}

		metrics.ProbesTotal.WithLabelValues(string(types.SourceRecovery), string(result.Status)).Inc()
		metrics.ProbeDuration.WithLabelValues(string(types.SourceRecovery)).Observe(result.Duration.Seconds())

		if result.Ready() {
			logger.Info().Int("probe", i).Msg("Recovery probe succeeded")
			return true
		}
		logger.Debug().
			Int("probe", i).
			Str("result", result.String()).
			Msg("Recovery probe failed")

		if i < t.Probes && !sleep(ctx, t.Backoff) {
			return false
		}
	}

	if !sleep(ctx, t.Hold) {
		return false
	}
	logger.Warn().Msg("Recovery failed")
	return false
}

// loadLocations runs the location loader and posts the catalog
func (s *Session) loadLocations(ctx context.Context) {
	catalog, err := s.loader.Load(ctx, true)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Msg("Location loader failed, continuing in limited mode")
		catalog = types.LimitedCatalog()
	}

	s.post(envelope{
		event:   warmup.LocationsLoaded{Limited: catalog.Limited},
		catalog: &catalog,
	})
}

// sleep waits d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
