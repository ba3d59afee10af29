package framework

import (
	"github.com/cuemby/dops/pkg/types"
)

// Assertions provides test assertion helpers over the status endpoints
type Assertions struct {
	t      TestingT
	client *StatusClient
}

// NewAssertions creates a new Assertions instance
func NewAssertions(t TestingT, client *StatusClient) *Assertions {
	return &Assertions{t: t, client: client}
}

func (a *Assertions) snapshot() types.WarmupState {
	a.t.Helper()

	snap, err := a.client.Snapshot()
	if err != nil {
		a.t.Fatalf("Failed to read status: %v", err)
	}
	return snap.State
}

// Phase asserts the current warm-up phase
func (a *Assertions) Phase(expected types.Phase) {
	a.t.Helper()

	if st := a.snapshot(); st.Phase != expected {
		a.t.Fatalf("Phase is %s, expected %s", st.Phase, expected)
	}
}

// ReadyForPredictions asserts that the session can serve predictions
func (a *Assertions) ReadyForPredictions() {
	a.t.Helper()

	st := a.snapshot()
	if !st.CanPredict() {
		a.t.Fatalf("Session cannot predict: phase=%s app_initialized=%v confirmed=%v",
			st.Phase, st.AppInitialized, st.BackendConfirmedReady)
	}
	if st.ProgressPercent != 100 {
		a.t.Fatalf("Progress is %.1f%%, expected 100%% when ready", st.ProgressPercent)
	}
}

// RecoveryAttempts asserts how much of the shared recovery budget was used
func (a *Assertions) RecoveryAttempts(expected int) {
	a.t.Helper()

	if st := a.snapshot(); st.RecoveryAttempts != expected {
		a.t.Fatalf("Recovery attempts is %d, expected %d", st.RecoveryAttempts, expected)
	}
}

// ReadyCode asserts the HTTP status of /ready
func (a *Assertions) ReadyCode(expected int) {
	a.t.Helper()

	code, err := a.client.ReadyCode()
	if err != nil {
		a.t.Fatalf("Failed to call /ready: %v", err)
	}
	if code != expected {
		a.t.Fatalf("/ready returned %d, expected %d", code, expected)
	}
}
