package framework

import (
	"time"

	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/types"
)

// TestingT is the subset of testing.T used by the framework
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// BackendConfig defines how the fake prediction service behaves
type BackendConfig struct {
	// ColdStart is how long every endpoint answers 503 after the backend starts
	ColdStart time.Duration
	// NeverWakes keeps the backend cold forever
	NeverWakes bool
	// States is the /states payload
	States []string
	// Districts maps a state to its /districts payload; missing states are 404
	Districts map[string][]string
	// Predictions is the /predict payload
	Predictions []types.PredictionRecord
}

// DefaultBackendConfig returns a small Indian location catalog that wakes
// after coldStart
func DefaultBackendConfig(coldStart time.Duration) BackendConfig {
	cases := 140
	return BackendConfig{
		ColdStart: coldStart,
		States:    []string{"Goa", "Kerala"},
		Districts: map[string][]string{
			"Goa":    {"North Goa", "South Goa"},
			"Kerala": {"Ernakulam", "Idukki", "Kollam"},
		},
		Predictions: []types.PredictionRecord{
			{Disease: "Dengue", Outbreak: true, Probability: 0.84, Cases: &cases},
			{Disease: "Malaria", Probability: 0.73},
			{Disease: "Cholera", Probability: 0.12},
		},
	}
}

// FastTimings shrinks the production warm-up schedule so an e2e run takes
// well under a second per scenario. Proportions between phases, polling and
// recovery are kept.
func FastTimings() config.Timings {
	t := config.DefaultTimings()
	for i := range t.Phases {
		t.Phases[i].Duration = 60 * time.Millisecond
	}
	t.ScheduleGrace = 30 * time.Millisecond
	t.EarlyProbeDelay = 20 * time.Millisecond
	t.EarlyProbeTimeout = 100 * time.Millisecond
	t.PollInterval = 25 * time.Millisecond
	t.PollTimeout = 100 * time.Millisecond
	t.BoundaryProbeTimeout = 100 * time.Millisecond
	t.MonitorInterval = 20 * time.Millisecond
	t.MonitorTimeout = 100 * time.Millisecond
	t.FastForwardBudget = 80 * time.Millisecond
	t.FastForwardTick = 5 * time.Millisecond
	t.FastForwardHold = 10 * time.Millisecond
	t.FastForwardFailsafe = 500 * time.Millisecond
	t.QuickRecovery = config.RecoveryTimings{Probes: 2, Timeout: 100 * time.Millisecond, Backoff: 40 * time.Millisecond}
	t.FinalRecovery = config.RecoveryTimings{Probes: 2, Timeout: 100 * time.Millisecond, Backoff: 40 * time.Millisecond, Hold: 30 * time.Millisecond}
	t.CycleRestartDelay = 30 * time.Millisecond
	t.LocationTimeout = 200 * time.Millisecond
	t.LocationBackoffStep = 10 * time.Millisecond
	t.DistrictsTimeout = 200 * time.Millisecond
	t.PredictTimeout = 500 * time.Millisecond
	return t
}
