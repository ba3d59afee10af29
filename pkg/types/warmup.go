package types

// Phase is the externally visible stage of a warm-up session
type Phase string

const (
	PhasePolling        Phase = "polling"
	PhaseFastForwarding Phase = "fast_forwarding"
	PhaseQuickRecovery  Phase = "quick_recovery"
	PhaseFinalRecovery  Phase = "final_recovery"
	PhaseReady          Phase = "ready"
	PhaseFailed         Phase = "failed"
)

// Terminal reports whether no further transition can leave the phase
func (p Phase) Terminal() bool {
	return p == PhaseFailed
}

// ActiveTask names the single loop that currently owns WarmupState.
// Every timer, ticker and recovery procedure checks it before acting.
type ActiveTask string

const (
	TaskIdle          ActiveTask = "idle"
	TaskScheduled     ActiveTask = "scheduled"
	TaskFastForward   ActiveTask = "fast_forward"
	TaskQuickRecovery ActiveTask = "quick_recovery"
	TaskFinalRecovery ActiveTask = "final_recovery"
)

// RecoveryKind identifies one of the two bounded recovery procedures
type RecoveryKind string

const (
	RecoveryQuick RecoveryKind = "quick"
	RecoveryFinal RecoveryKind = "final"
)

// Attempt returns the 1-based attempt number shown to the user ("attempt N/2")
func (k RecoveryKind) Attempt() int {
	if k == RecoveryFinal {
		return 2
	}
	return 1
}

const (
	// MaxCycle is the highest cycle index; at most two warm-up cycles run
	MaxCycle = 1

	// MaxRecoveryAttempts caps quick + final recovery
	MaxRecoveryAttempts = 2
)

// WarmupState is the one shared mutable record of a session.
// It is owned by the session loop and only changed through warmup.Machine.
type WarmupState struct {
	Phase                 Phase      `json:"phase"`
	Active                ActiveTask `json:"active"`
	Cycle                 int        `json:"cycle"`
	ProgressPercent       float64    `json:"progress_percent"`
	PhaseIndex            int        `json:"phase_index"`
	RecoveryAttempts      int        `json:"recovery_attempts"`
	BackendConfirmedReady bool       `json:"backend_confirmed_ready"`
	CycleLimitReached     bool       `json:"cycle_limit_reached"`
	AppInitialized        bool       `json:"app_initialized"`
	LimitedMode           bool       `json:"limited_mode"`

	// PollAttempts counts interval probes issued in the current cycle.
	// Ticks that arrive while PollInFlight is set are skipped, not counted.
	PollAttempts int  `json:"poll_attempts"`
	PollInFlight bool `json:"poll_in_flight"`

	// Epoch increases every time Active changes hands. Timed events carry
	// the epoch they were scheduled under so stale ones can be dropped.
	Epoch uint64 `json:"epoch"`
}

// NewWarmupState returns the state of a freshly mounted session
func NewWarmupState() WarmupState {
	return WarmupState{
		Phase:  PhasePolling,
		Active: TaskIdle,
	}
}

// RecoveryInProgress reports whether a recovery procedure (or the delay
// before the second cycle) currently owns the session
func (s WarmupState) RecoveryInProgress() bool {
	return s.Phase == PhaseQuickRecovery || s.Phase == PhaseFinalRecovery
}

// CanPredict reports whether prediction requests are allowed
func (s WarmupState) CanPredict() bool {
	return s.Phase == PhaseReady &&
		s.AppInitialized &&
		s.BackendConfirmedReady &&
		!s.RecoveryInProgress()
}
