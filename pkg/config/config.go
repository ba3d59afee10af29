package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is used when no base URL is configured
const DefaultAPIURL = "http://127.0.0.1:8000"

// Config holds everything a session needs besides its collaborators
type Config struct {
	// APIURL is the base URL of the prediction service
	APIURL string `yaml:"api_url"`

	// Timings are the polling, animation and retry parameters
	Timings Timings `yaml:"timings"`
}

// PhaseSpec is one step of the scheduled progress plan
type PhaseSpec struct {
	Label    string        `yaml:"label"`
	Subtitle string        `yaml:"subtitle"`
	Target   float64       `yaml:"target"`
	Duration time.Duration `yaml:"duration"`
}

// RecoveryTimings bounds one recovery procedure
type RecoveryTimings struct {
	// Probes is the number of probe attempts
	Probes int `yaml:"probes"`

	// Timeout bounds each probe
	Timeout time.Duration `yaml:"timeout"`

	// Backoff is the pause between probes
	Backoff time.Duration `yaml:"backoff"`

	// Hold is an extra wait after the last failed probe before the
	// procedure reports failure
	Hold time.Duration `yaml:"hold"`
}

// Timings are the deployment-specific constants of the warm-up state
// machine. The defaults were tuned against a free-tier host's cold start.
type Timings struct {
	Phases []PhaseSpec `yaml:"phases"`

	// BoundaryProbeFrom is the first phase index whose entry triggers a probe
	BoundaryProbeFrom int `yaml:"boundary_probe_from"`

	// ScheduleGrace is waited after the last phase before recovery starts
	ScheduleGrace time.Duration `yaml:"schedule_grace"`

	EarlyProbeDelay   time.Duration `yaml:"early_probe_delay"`
	EarlyProbeTimeout time.Duration `yaml:"early_probe_timeout"`

	PollInterval    time.Duration `yaml:"poll_interval"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	PollMaxAttempts int           `yaml:"poll_max_attempts"`

	BoundaryProbeTimeout time.Duration `yaml:"boundary_probe_timeout"`

	MonitorInterval time.Duration `yaml:"monitor_interval"`
	MonitorTimeout  time.Duration `yaml:"monitor_timeout"`

	FastForwardBudget   time.Duration `yaml:"fast_forward_budget"`
	FastForwardTick     time.Duration `yaml:"fast_forward_tick"`
	FastForwardHold     time.Duration `yaml:"fast_forward_hold"`
	FastForwardFailsafe time.Duration `yaml:"fast_forward_failsafe"`

	QuickRecovery RecoveryTimings `yaml:"quick_recovery"`
	FinalRecovery RecoveryTimings `yaml:"final_recovery"`

	CycleRestartDelay time.Duration `yaml:"cycle_restart_delay"`

	LocationAttempts    int           `yaml:"location_attempts"`
	LocationTimeout     time.Duration `yaml:"location_timeout"`
	LocationBackoffStep time.Duration `yaml:"location_backoff_step"`

	DistrictsTimeout time.Duration `yaml:"districts_timeout"`
	PredictTimeout   time.Duration `yaml:"predict_timeout"`
}

// DefaultPhases returns the five-phase plan (10s, 15s, 10s, 10s, 10s)
func DefaultPhases() []PhaseSpec {
	return []PhaseSpec{
		{Label: "Initializing AI Models", Subtitle: "(Random Forest, XGBoost, CatBoost)", Target: 20, Duration: 10 * time.Second},
		{Label: "Loading Environmental Data", Subtitle: "Weather & Air Quality Integration", Target: 40, Duration: 15 * time.Second},
		{Label: "Analyzing Weather Patterns", Subtitle: "Climate Correlation Engine", Target: 60, Duration: 10 * time.Second},
		{Label: "Integrating Population Metrics", Subtitle: "Demographic Risk Assessment", Target: 80, Duration: 10 * time.Second},
		{Label: "Calibrating Prediction Engine", Subtitle: "Final System Optimization", Target: 100, Duration: 10 * time.Second},
	}
}

// DefaultTimings returns the production timings
func DefaultTimings() Timings {
	return Timings{
		Phases:            DefaultPhases(),
		BoundaryProbeFrom: 2,
		ScheduleGrace:     5 * time.Second,

		EarlyProbeDelay:   1500 * time.Millisecond,
		EarlyProbeTimeout: 1500 * time.Millisecond,

		PollInterval:    2 * time.Second,
		PollTimeout:     1500 * time.Millisecond,
		PollMaxAttempts: 25,

		BoundaryProbeTimeout: 3 * time.Second,

		MonitorInterval: 1 * time.Second,
		MonitorTimeout:  1500 * time.Millisecond,

		FastForwardBudget:   5 * time.Second,
		FastForwardTick:     50 * time.Millisecond,
		FastForwardHold:     800 * time.Millisecond,
		FastForwardFailsafe: 6500 * time.Millisecond,

		QuickRecovery: RecoveryTimings{
			Probes:  2,
			Timeout: 1500 * time.Millisecond,
			Backoff: 1500 * time.Millisecond,
		},
		FinalRecovery: RecoveryTimings{
			Probes:  2,
			Timeout: 1500 * time.Millisecond,
			Backoff: 1500 * time.Millisecond,
			Hold:    1 * time.Second,
		},

		CycleRestartDelay: 1 * time.Second,

		LocationAttempts:    4,
		LocationTimeout:     8 * time.Second,
		LocationBackoffStep: 1500 * time.Millisecond,

		DistrictsTimeout: 8 * time.Second,
		PredictTimeout:   15 * time.Second,
	}
}

// Default returns a Config with the default API URL and timings
func Default() Config {
	return Config{
		APIURL:  DefaultAPIURL,
		Timings: DefaultTimings(),
	}
}

// ScheduleLength is the nominal duration of one scheduled cycle
func (t Timings) ScheduleLength() time.Duration {
	var total time.Duration
	for _, p := range t.Phases {
		total += p.Duration
	}
	return total
}

// Recovery returns the timings of a recovery procedure
func (t Timings) Recovery(final bool) RecoveryTimings {
	if final {
		return t.FinalRecovery
	}
	return t.QuickRecovery
}

// Validate checks that the timings describe a usable state machine
func (t Timings) Validate() error {
	var errs []error

	if len(t.Phases) == 0 {
		errs = append(errs, errors.New("at least one phase is required"))
	}
	prev := 0.0
	for i, p := range t.Phases {
		if p.Duration <= 0 {
			errs = append(errs, fmt.Errorf("phase %d: duration must be positive", i))
		}
		if p.Target <= prev || p.Target > 100 {
			errs = append(errs, fmt.Errorf("phase %d: target %.1f must increase and stay within 100", i, p.Target))
		}
		prev = p.Target
	}
	if len(t.Phases) > 0 && t.Phases[len(t.Phases)-1].Target != 100 {
		errs = append(errs, errors.New("last phase must reach 100"))
	}
	if t.BoundaryProbeFrom < 0 {
		errs = append(errs, errors.New("boundary_probe_from must not be negative"))
	}

	positive := map[string]time.Duration{
		"poll_interval":          t.PollInterval,
		"poll_timeout":           t.PollTimeout,
		"early_probe_timeout":    t.EarlyProbeTimeout,
		"boundary_probe_timeout": t.BoundaryProbeTimeout,
		"monitor_interval":       t.MonitorInterval,
		"monitor_timeout":        t.MonitorTimeout,
		"fast_forward_tick":      t.FastForwardTick,
		"location_timeout":       t.LocationTimeout,
		"districts_timeout":      t.DistrictsTimeout,
		"predict_timeout":        t.PredictTimeout,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if t.PollMaxAttempts < 1 {
		errs = append(errs, errors.New("poll_max_attempts must be at least 1"))
	}
	if t.FastForwardFailsafe <= t.FastForwardBudget {
		errs = append(errs, errors.New("fast_forward_failsafe must exceed fast_forward_budget"))
	}
	for name, r := range map[string]RecoveryTimings{"quick_recovery": t.QuickRecovery, "final_recovery": t.FinalRecovery} {
		if r.Probes < 1 {
			errs = append(errs, fmt.Errorf("%s: probes must be at least 1", name))
		}
		if r.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("%s: timeout must be positive", name))
		}
	}
	if t.LocationAttempts < 1 {
		errs = append(errs, errors.New("location_attempts must be at least 1"))
	}

	return errors.Join(errs...)
}

// Validate checks the whole configuration
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if err := c.Timings.Validate(); err != nil {
		return fmt.Errorf("invalid timings: %w", err)
	}
	return nil
}

// LoadFile reads a YAML configuration on top of the defaults. Keys missing
// from the file keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
