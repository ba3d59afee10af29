package warmup

import "github.com/cuemby/dops/pkg/types"

// Event is an input to Machine.Apply. Events produced by timers carry the
// Epoch they were scheduled under; Apply drops them once the epoch moved on.
type Event interface {
	event()
}

// Start begins cycle 0
type Start struct{}

// EarlyProbeDue fires once shortly after Start
type EarlyProbeDue struct{}

// PollDue is one tick of the poll interval
type PollDue struct{}

// MonitorDue is one tick of the background monitor
type MonitorDue struct{}

// ProbeCompleted reports the result of a probe issued through a Probe effect.
// Ready results are honoured whichever epoch issued them.
type ProbeCompleted struct {
	Source types.ProbeSource
	Result types.ProbeResult
}

// PhaseElapsed reports that scheduled phase Index ran its full duration
type PhaseElapsed struct {
	Epoch uint64
	Index int
}

// ScheduleExhausted fires after the grace period that follows the last phase
type ScheduleExhausted struct {
	Epoch uint64
}

// FastForwardTick carries one frame of the fast-forward animation
type FastForwardTick struct {
	Epoch      uint64
	Progress   float64
	PhaseIndex int
}

// FastForwardDone reports that fast-forward reached 100% and held, or that
// its failsafe fired
type FastForwardDone struct {
	Epoch uint64
}

// RecoveryOutcome reports the end of a recovery procedure
type RecoveryOutcome struct {
	Epoch uint64
	Kind  types.RecoveryKind
	Ready bool
}

// CycleRestart fires after the delay that follows a failed quick recovery
type CycleRestart struct {
	Epoch uint64
}

// LocationsLoaded reports that the location catalog is available
type LocationsLoaded struct {
	Limited bool
}

// PredictionServerError reports a 5xx answer to a prediction request
type PredictionServerError struct{}

func (Start) event()                 {}
func (EarlyProbeDue) event()         {}
func (PollDue) event()               {}
func (MonitorDue) event()            {}
func (ProbeCompleted) event()        {}
func (PhaseElapsed) event()          {}
func (ScheduleExhausted) event()     {}
func (FastForwardTick) event()       {}
func (FastForwardDone) event()       {}
func (RecoveryOutcome) event()       {}
func (CycleRestart) event()          {}
func (LocationsLoaded) event()       {}
func (PredictionServerError) event() {}
