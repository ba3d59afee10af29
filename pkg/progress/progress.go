package progress

import (
	"time"

	"github.com/cuemby/dops/pkg/config"
)

// Complete is the progress value of a finished warm-up
const Complete = 100.0

// Plan is the ordered list of scheduled phases
type Plan struct {
	Phases []config.PhaseSpec

	// ProbeFrom is the first phase index whose entry triggers a probe
	ProbeFrom int
}

// NewPlan builds a plan from configured timings
func NewPlan(t config.Timings) Plan {
	return Plan{Phases: t.Phases, ProbeFrom: t.BoundaryProbeFrom}
}

// Len returns the number of phases
func (p Plan) Len() int {
	return len(p.Phases)
}

// LastIndex returns the index of the final phase
func (p Plan) LastIndex() int {
	if len(p.Phases) == 0 {
		return 0
	}
	return len(p.Phases) - 1
}

// Phase returns the phase at i, clamped into range
func (p Plan) Phase(i int) config.PhaseSpec {
	if len(p.Phases) == 0 {
		return config.PhaseSpec{Target: Complete}
	}
	return p.Phases[clamp(i, 0, p.LastIndex())]
}

// Duration returns how long phase i runs in scheduled mode
func (p Plan) Duration(i int) time.Duration {
	return p.Phase(i).Duration
}

// Boundary describes what happens when phase i finishes: the progress it
// reaches, the phase index shown next, whether that boundary is probed and
// whether it was the last phase.
type Boundary struct {
	Progress float64
	Next     int
	Probe    bool
	Last     bool
}

// Boundary returns the boundary at the end of phase i
func (p Plan) Boundary(i int) Boundary {
	next := i + 1
	return Boundary{
		Progress: p.Phase(i).Target,
		Next:     clamp(next, 0, p.LastIndex()),
		Probe:    next >= p.ProbeFrom,
		Last:     next >= p.Len(),
	}
}

// IndexAt returns the phase a progress value belongs to: the first phase
// whose target has not been reached yet, or the last phase at 100.
func (p Plan) IndexAt(percent float64) int {
	for i, ph := range p.Phases {
		if percent < ph.Target {
			return i
		}
	}
	return p.LastIndex()
}

// FastForward compresses the rest of the journey to 100% into Budget
type FastForward struct {
	Plan      Plan
	From      float64
	FromPhase int
	Budget    time.Duration
}

// At returns the progress and phase index after elapsed time. Progress eases
// linearly from From to 100 and never moves backwards; the phase index never
// drops below FromPhase. done is true once 100 is reached.
func (f FastForward) At(elapsed time.Duration) (percent float64, phaseIndex int, done bool) {
	from := f.From
	if from < 0 {
		from = 0
	}
	if from > Complete {
		from = Complete
	}

	if f.Budget <= 0 || elapsed >= f.Budget {
		percent = Complete
	} else if elapsed > 0 {
		frac := float64(elapsed) / float64(f.Budget)
		percent = from + (Complete-from)*frac
	} else {
		percent = from
	}

	phaseIndex = f.Plan.IndexAt(percent)
	if phaseIndex < f.FromPhase {
		phaseIndex = f.FromPhase
	}
	return percent, phaseIndex, percent >= Complete
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
