package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTimings(t *testing.T) {
	timings := DefaultTimings()

	require.NoError(t, timings.Validate())
	assert.Len(t, timings.Phases, 5)
	assert.Equal(t, 55*time.Second, timings.ScheduleLength())
	assert.Equal(t, 2*time.Second, timings.PollInterval)
	assert.Equal(t, 25, timings.PollMaxAttempts)
	assert.Equal(t, 5*time.Second, timings.FastForwardBudget)
	assert.Equal(t, 4, timings.LocationAttempts)

	targets := make([]float64, 0, len(timings.Phases))
	for _, p := range timings.Phases {
		targets = append(targets, p.Target)
	}
	assert.Equal(t, []float64{20, 40, 60, 80, 100}, targets)
}

func TestRecoveryTimings(t *testing.T) {
	timings := DefaultTimings()

	quick := timings.Recovery(false)
	final := timings.Recovery(true)

	assert.Equal(t, 2, quick.Probes)
	assert.Zero(t, quick.Hold)
	assert.Equal(t, time.Second, final.Hold)

	// Two probes plus one backoff stay within the 4.5s ceiling
	ceiling := time.Duration(quick.Probes)*quick.Timeout + time.Duration(quick.Probes-1)*quick.Backoff
	assert.LessOrEqual(t, ceiling, 4500*time.Millisecond)
}

func TestTimingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Timings)
		wantErr string
	}{
		{
			name:    "no phases",
			mutate:  func(t *Timings) { t.Phases = nil },
			wantErr: "at least one phase",
		},
		{
			name: "targets not increasing",
			mutate: func(t *Timings) {
				t.Phases[2].Target = 30
			},
			wantErr: "must increase",
		},
		{
			name: "last phase short of 100",
			mutate: func(t *Timings) {
				t.Phases = t.Phases[:4]
			},
			wantErr: "last phase must reach 100",
		},
		{
			name:    "zero poll interval",
			mutate:  func(t *Timings) { t.PollInterval = 0 },
			wantErr: "poll_interval must be positive",
		},
		{
			name:    "failsafe shorter than budget",
			mutate:  func(t *Timings) { t.FastForwardFailsafe = t.FastForwardBudget },
			wantErr: "fast_forward_failsafe",
		},
		{
			name:    "recovery without probes",
			mutate:  func(t *Timings) { t.FinalRecovery.Probes = 0 },
			wantErr: "final_recovery: probes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timings := DefaultTimings()
			tt.mutate(&timings)

			err := timings.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.APIURL = ""

	assert.Error(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dops.yaml")

	content := `
api_url: https://dops.example.com
timings:
  poll_interval: 3s
  poll_max_attempts: 10
  quick_recovery:
    probes: 3
    timeout: 2s
    backoff: 500ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://dops.example.com", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.Timings.PollInterval)
	assert.Equal(t, 10, cfg.Timings.PollMaxAttempts)
	assert.Equal(t, 3, cfg.Timings.QuickRecovery.Probes)
	assert.Equal(t, 500*time.Millisecond, cfg.Timings.QuickRecovery.Backoff)

	// Untouched keys keep their defaults
	assert.Len(t, cfg.Timings.Phases, 5)
	assert.Equal(t, 5*time.Second, cfg.Timings.FastForwardBudget)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timings:\n  poll_interval: 0s\n"), 0600))

	_, err = LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}
