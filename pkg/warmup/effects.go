package warmup

import (
	"time"

	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/progress"
	"github.com/cuemby/dops/pkg/types"
)

// Effect is an instruction returned by Machine.Apply for the runtime to
// carry out. Effects are executed in order.
type Effect interface {
	effect()
}

// Loop names a group of timers the runtime can cancel together
type Loop string

const (
	LoopSchedule    Loop = "schedule"
	LoopPoll        Loop = "poll"
	LoopMonitor     Loop = "monitor"
	LoopFastForward Loop = "fast_forward"
	LoopRecovery    Loop = "recovery"
)

// SchedulePhase arms a timer that posts PhaseElapsed{Epoch, Index} After
type SchedulePhase struct {
	Epoch uint64
	Index int
	After time.Duration
}

// StartGrace arms a timer that posts ScheduleExhausted{Epoch} After
type StartGrace struct {
	Epoch uint64
	After time.Duration
}

// ScheduleEarlyProbe arms a timer that posts EarlyProbeDue After
type ScheduleEarlyProbe struct {
	After time.Duration
}

// StartPolling posts PollDue every Interval
type StartPolling struct {
	Interval time.Duration
}

// StartMonitor posts MonitorDue every Interval. Starting an already running
// monitor is a no-op.
type StartMonitor struct {
	Interval time.Duration
}

// Probe issues one liveness probe and posts ProbeCompleted. The runtime keeps
// at most one probe per source in flight.
type Probe struct {
	Source  types.ProbeSource
	Timeout time.Duration
}

// StartFastForward runs the fast-forward animation: FastForwardTick every
// Tick until Animation reports done, then FastForwardDone after Hold.
// Failsafe forces FastForwardDone if the ticks stall.
type StartFastForward struct {
	Epoch     uint64
	Animation progress.FastForward
	Tick      time.Duration
	Hold      time.Duration
	Failsafe  time.Duration
}

// StartRecovery runs a bounded recovery procedure and posts RecoveryOutcome
type StartRecovery struct {
	Epoch   uint64
	Kind    types.RecoveryKind
	Timings config.RecoveryTimings
}

// ScheduleCycleRestart arms a timer that posts CycleRestart{Epoch} After.
// It belongs to LoopRecovery.
type ScheduleCycleRestart struct {
	Epoch uint64
	After time.Duration
}

// Stop cancels every timer of a loop
type Stop struct {
	Loop Loop
}

// LoadLocations starts the location loader
type LoadLocations struct{}

// CancelAll tears down every timer and in-flight call of the session
type CancelAll struct{}

func (SchedulePhase) effect()        {}
func (StartGrace) effect()           {}
func (ScheduleEarlyProbe) effect()   {}
func (StartPolling) effect()         {}
func (StartMonitor) effect()         {}
func (Probe) effect()                {}
func (StartFastForward) effect()     {}
func (StartRecovery) effect()        {}
func (ScheduleCycleRestart) effect() {}
func (Stop) effect()                 {}
func (LoadLocations) effect()        {}
func (CancelAll) effect()            {}
