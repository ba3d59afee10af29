package warmup

import (
	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/progress"
	"github.com/cuemby/dops/pkg/types"
)

// Machine holds the transition rules of a warm-up session. It is stateless
// apart from its configuration and safe for concurrent use.
type Machine struct {
	timings config.Timings
	plan    progress.Plan
}

// NewMachine creates a machine for the given timings
func NewMachine(t config.Timings) *Machine {
	return &Machine{
		timings: t,
		plan:    progress.NewPlan(t),
	}
}

// Plan returns the scheduled phase plan
func (m *Machine) Plan() progress.Plan {
	return m.plan
}

// Apply is the single dispatcher: it returns the state after ev and the
// effects the runtime must execute. Apply never mutates s in place.
func (m *Machine) Apply(s types.WarmupState, ev Event) (types.WarmupState, []Effect) {
	if s.Phase.Terminal() {
		return s, nil
	}

	switch e := ev.(type) {
	case Start:
		return m.start(s)
	case EarlyProbeDue:
		if s.Active == types.TaskScheduled && s.Cycle == 0 {
			return s, []Effect{Probe{Source: types.SourceEarly, Timeout: m.timings.EarlyProbeTimeout}}
		}
	case PollDue:
		return m.poll(s)
	case MonitorDue:
		if monitored(s) {
			return s, []Effect{Probe{Source: types.SourceMonitor, Timeout: m.timings.MonitorTimeout}}
		}
	case ProbeCompleted:
		if e.Source == types.SourcePoll {
			s.PollInFlight = false
		}
		if e.Result.Ready() && monitored(s) {
			return m.confirmReady(s)
		}
	case PhaseElapsed:
		return m.phaseElapsed(s, e)
	case ScheduleExhausted:
		if s.Active == types.TaskScheduled && e.Epoch == s.Epoch {
			return m.exhausted(s)
		}
	case FastForwardTick:
		if s.Active == types.TaskFastForward && e.Epoch == s.Epoch {
			if e.Progress > s.ProgressPercent {
				s.ProgressPercent = e.Progress
			}
			if e.PhaseIndex > s.PhaseIndex {
				s.PhaseIndex = e.PhaseIndex
			}
		}
	case FastForwardDone:
		if s.Active == types.TaskFastForward && e.Epoch == s.Epoch {
			return m.finish(s)
		}
	case RecoveryOutcome:
		return m.recoveryOutcome(s, e)
	case CycleRestart:
		if s.Active == types.TaskIdle && s.Phase == types.PhaseQuickRecovery && e.Epoch == s.Epoch {
			return m.restartCycle(s)
		}
	case LocationsLoaded:
		if !s.AppInitialized {
			s.AppInitialized = true
			s.LimitedMode = e.Limited
		}
	case PredictionServerError:
		return m.predictionServerError(s)
	}

	return s, nil
}

// OnProbeResult applies the result of a probe issued by source
func (m *Machine) OnProbeResult(s types.WarmupState, source types.ProbeSource, result types.ProbeResult) (types.WarmupState, []Effect) {
	return m.Apply(s, ProbeCompleted{Source: source, Result: result})
}

// OnScheduleTick applies the end of the current scheduled phase
func (m *Machine) OnScheduleTick(s types.WarmupState) (types.WarmupState, []Effect) {
	return m.Apply(s, PhaseElapsed{Epoch: s.Epoch, Index: s.PhaseIndex})
}

// OnRecoveryOutcome applies the outcome of the running recovery procedure
func (m *Machine) OnRecoveryOutcome(s types.WarmupState, kind types.RecoveryKind, ready bool) (types.WarmupState, []Effect) {
	return m.Apply(s, RecoveryOutcome{Epoch: s.Epoch, Kind: kind, Ready: ready})
}

func (m *Machine) start(s types.WarmupState) (types.WarmupState, []Effect) {
	if s.Phase != types.PhasePolling || s.Active != types.TaskIdle || s.Epoch != 0 {
		return s, nil
	}

	s.Active = types.TaskScheduled
	s.Epoch++

	return s, []Effect{
		ScheduleEarlyProbe{After: m.timings.EarlyProbeDelay},
		StartPolling{Interval: m.timings.PollInterval},
		SchedulePhase{Epoch: s.Epoch, Index: 0, After: m.plan.Duration(0)},
	}
}

func (m *Machine) poll(s types.WarmupState) (types.WarmupState, []Effect) {
	if s.Phase != types.PhasePolling || s.Active != types.TaskScheduled {
		return s, nil
	}
	if s.PollAttempts >= m.timings.PollMaxAttempts {
		return s, []Effect{Stop{Loop: LoopPoll}}
	}
	if s.PollInFlight {
		return s, nil
	}

	s.PollAttempts++
	s.PollInFlight = true
	return s, []Effect{Probe{Source: types.SourcePoll, Timeout: m.timings.PollTimeout}}
}

func (m *Machine) phaseElapsed(s types.WarmupState, e PhaseElapsed) (types.WarmupState, []Effect) {
	if s.Active != types.TaskScheduled || e.Epoch != s.Epoch || e.Index != s.PhaseIndex {
		return s, nil
	}

	b := m.plan.Boundary(e.Index)
	if b.Progress > s.ProgressPercent {
		s.ProgressPercent = b.Progress
	}
	s.PhaseIndex = b.Next

	var effects []Effect
	if b.Probe {
		effects = append(effects, Probe{Source: types.SourceBoundary, Timeout: m.timings.BoundaryProbeTimeout})
	}
	if b.Last {
		effects = append(effects, StartGrace{Epoch: s.Epoch, After: m.timings.ScheduleGrace})
	} else {
		effects = append(effects, SchedulePhase{Epoch: s.Epoch, Index: b.Next, After: m.plan.Duration(b.Next)})
	}
	return s, effects
}

// exhausted hands an expired schedule to recovery, or fails the session once
// the budget is spent
func (m *Machine) exhausted(s types.WarmupState) (types.WarmupState, []Effect) {
	switch {
	case s.Cycle == 0 && s.RecoveryAttempts == 0:
		return m.enterRecovery(s, types.RecoveryQuick)
	case s.Cycle == types.MaxCycle && s.RecoveryAttempts == 1:
		return m.enterRecovery(s, types.RecoveryFinal)
	default:
		return m.fail(s)
	}
}

func (m *Machine) enterRecovery(s types.WarmupState, kind types.RecoveryKind) (types.WarmupState, []Effect) {
	s.RecoveryAttempts = kind.Attempt()
	s.Epoch++
	if kind == types.RecoveryFinal {
		s.Phase = types.PhaseFinalRecovery
		s.Active = types.TaskFinalRecovery
	} else {
		s.Phase = types.PhaseQuickRecovery
		s.Active = types.TaskQuickRecovery
	}

	return s, []Effect{
		Stop{Loop: LoopSchedule},
		Stop{Loop: LoopPoll},
		StartMonitor{Interval: m.timings.MonitorInterval},
		StartRecovery{Epoch: s.Epoch, Kind: kind, Timings: m.timings.Recovery(kind == types.RecoveryFinal)},
	}
}

func (m *Machine) recoveryOutcome(s types.WarmupState, e RecoveryOutcome) (types.WarmupState, []Effect) {
	if e.Epoch != s.Epoch || s.Active != recoveryTask(e.Kind) {
		return s, nil
	}

	if e.Ready {
		return m.confirmReady(s)
	}
	if e.Kind == types.RecoveryFinal {
		return m.fail(s)
	}

	// The session stays in quick recovery, with nothing active, until the
	// second cycle starts. The monitor keeps running meanwhile.
	s.Active = types.TaskIdle
	s.Epoch++
	return s, []Effect{ScheduleCycleRestart{Epoch: s.Epoch, After: m.timings.CycleRestartDelay}}
}

func (m *Machine) restartCycle(s types.WarmupState) (types.WarmupState, []Effect) {
	if s.Cycle >= types.MaxCycle {
		return m.fail(s)
	}

	s.Cycle++
	s.ProgressPercent = 0
	s.PhaseIndex = 0
	s.PollAttempts = 0
	s.Phase = types.PhasePolling
	s.Active = types.TaskScheduled
	s.Epoch++

	return s, []Effect{
		StartMonitor{Interval: m.timings.MonitorInterval},
		StartPolling{Interval: m.timings.PollInterval},
		SchedulePhase{Epoch: s.Epoch, Index: 0, After: m.plan.Duration(0)},
	}
}

// confirmReady is the only way into fast-forward. Every competing loop is
// stopped before the animation starts.
func (m *Machine) confirmReady(s types.WarmupState) (types.WarmupState, []Effect) {
	s.BackendConfirmedReady = true
	s.Phase = types.PhaseFastForwarding
	s.Active = types.TaskFastForward
	s.Epoch++

	return s, []Effect{
		Stop{Loop: LoopSchedule},
		Stop{Loop: LoopPoll},
		Stop{Loop: LoopMonitor},
		Stop{Loop: LoopRecovery},
		StartFastForward{
			Epoch: s.Epoch,
			Animation: progress.FastForward{
				Plan:      m.plan,
				From:      s.ProgressPercent,
				FromPhase: s.PhaseIndex,
				Budget:    m.timings.FastForwardBudget,
			},
			Tick:     m.timings.FastForwardTick,
			Hold:     m.timings.FastForwardHold,
			Failsafe: m.timings.FastForwardFailsafe,
		},
	}
}

func (m *Machine) finish(s types.WarmupState) (types.WarmupState, []Effect) {
	s.ProgressPercent = progress.Complete
	s.PhaseIndex = m.plan.LastIndex()
	s.Phase = types.PhaseReady
	s.Active = types.TaskIdle
	s.Epoch++

	effects := []Effect{Stop{Loop: LoopFastForward}}
	if !s.AppInitialized {
		effects = append(effects, LoadLocations{})
	}
	return s, effects
}

func (m *Machine) fail(s types.WarmupState) (types.WarmupState, []Effect) {
	s.Phase = types.PhaseFailed
	s.Active = types.TaskIdle
	s.CycleLimitReached = true
	s.Epoch++
	return s, []Effect{CancelAll{}}
}

// predictionServerError reuses the warm-up recovery budget: quick recovery
// only while nothing was spent, final recovery only from the second cycle
func (m *Machine) predictionServerError(s types.WarmupState) (types.WarmupState, []Effect) {
	if s.Phase != types.PhaseReady {
		return s, nil
	}

	switch {
	case s.Cycle == 0 && s.RecoveryAttempts == 0:
		return m.enterRecovery(s, types.RecoveryQuick)
	case s.Cycle == types.MaxCycle && s.RecoveryAttempts == 1:
		return m.enterRecovery(s, types.RecoveryFinal)
	}
	return s, nil
}

// monitored reports whether a Ready probe can still change the outcome
func monitored(s types.WarmupState) bool {
	switch s.Phase {
	case types.PhasePolling, types.PhaseQuickRecovery, types.PhaseFinalRecovery:
		return s.Active != types.TaskIdle || s.Phase == types.PhaseQuickRecovery
	}
	return false
}

func recoveryTask(kind types.RecoveryKind) types.ActiveTask {
	if kind == types.RecoveryFinal {
		return types.TaskFinalRecovery
	}
	return types.TaskQuickRecovery
}
