package warmup

import (
	"math/rand/v2"
	"testing"

	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/types"
	"github.com/stretchr/testify/require"
)

// randomEvent picks an event that is plausible for s, sometimes with a stale
// epoch so the drop rules are exercised as often as the transitions
func randomEvent(r *rand.Rand, s types.WarmupState) Event {
	epoch := s.Epoch
	if r.IntN(4) == 0 && epoch > 0 {
		epoch -= uint64(r.IntN(int(epoch)) + 1)
	}

	status := []types.ProbeStatus{types.ProbeNotReady, types.ProbeAmbiguous, types.ProbeReady}
	kind := []types.RecoveryKind{types.RecoveryQuick, types.RecoveryFinal}

	switch r.IntN(13) {
	case 0:
		return Start{}
	case 1:
		return EarlyProbeDue{}
	case 2:
		return PollDue{}
	case 3:
		return MonitorDue{}
	case 4:
		// Ready probes are rare so long runs reach recovery and failure
		st := status[r.IntN(2)]
		if r.IntN(10) == 0 {
			st = types.ProbeReady
		}
		return ProbeCompleted{Source: types.SourcePoll, Result: types.ProbeResult{Status: st}}
	case 5, 6:
		return PhaseElapsed{Epoch: epoch, Index: s.PhaseIndex}
	case 7:
		return ScheduleExhausted{Epoch: epoch}
	case 8:
		return FastForwardTick{Epoch: epoch, Progress: r.Float64() * 100, PhaseIndex: r.IntN(5)}
	case 9:
		return FastForwardDone{Epoch: epoch}
	case 10:
		return RecoveryOutcome{Epoch: epoch, Kind: kind[r.IntN(2)], Ready: r.IntN(6) == 0}
	case 11:
		return CycleRestart{Epoch: epoch}
	default:
		if r.IntN(2) == 0 {
			return LocationsLoaded{Limited: r.IntN(2) == 0}
		}
		return PredictionServerError{}
	}
}

func TestMachine_RandomSequencesKeepInvariants(t *testing.T) {
	m := newMachine()

	for seed := uint64(1); seed <= 200; seed++ {
		r := rand.New(rand.NewPCG(seed, seed*7919))
		s := types.NewWarmupState()
		failedSeen := false

		for step := 0; step < 400; step++ {
			prev := s
			ev := randomEvent(r, s)
			s, _ = m.Apply(s, ev)

			require.LessOrEqual(t, s.Cycle, types.MaxCycle, "seed %d step %d", seed, step)
			require.LessOrEqual(t, s.RecoveryAttempts, types.MaxRecoveryAttempts, "seed %d step %d", seed, step)
			require.GreaterOrEqual(t, s.Cycle, prev.Cycle, "seed %d step %d", seed, step)
			require.GreaterOrEqual(t, s.RecoveryAttempts, prev.RecoveryAttempts, "seed %d step %d", seed, step)
			require.GreaterOrEqual(t, s.Epoch, prev.Epoch, "seed %d step %d", seed, step)
			require.LessOrEqual(t, s.PollAttempts, config.DefaultTimings().PollMaxAttempts)
			if prev.PollInFlight && s.PollAttempts > prev.PollAttempts {
				t.Fatalf("seed %d step %d: poll counted while a poll probe was in flight", seed, step)
			}
			require.GreaterOrEqual(t, s.ProgressPercent, 0.0)
			require.LessOrEqual(t, s.ProgressPercent, 100.0)

			if prev.BackendConfirmedReady {
				require.True(t, s.BackendConfirmedReady, "seed %d step %d: ready flag reset by %T", seed, step, ev)
			}
			if s.Cycle == prev.Cycle {
				require.GreaterOrEqual(t, s.ProgressPercent, prev.ProgressPercent, "seed %d step %d: progress fell on %T", seed, step, ev)
			} else {
				require.Equal(t, 0.0, s.ProgressPercent, "seed %d step %d: new cycle must start at 0", seed, step)
			}
			if prev.Phase == types.PhaseFailed {
				require.Equal(t, prev, s, "seed %d step %d: failed session mutated by %T", seed, step, ev)
			}
			if s.Phase == types.PhaseFailed {
				require.True(t, s.CycleLimitReached)
				if prev.Phase != types.PhaseFailed {
					require.False(t, failedSeen, "seed %d: failed twice", seed)
					failedSeen = true
				}
			}
			if s.CanPredict() {
				require.Equal(t, types.TaskIdle, s.Active)
			}
		}
	}
}
