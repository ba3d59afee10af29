package view

import (
	"fmt"
	"math"

	"github.com/cuemby/dops/pkg/progress"
	"github.com/cuemby/dops/pkg/types"
)

// Screen is what the user sees for a warm-up phase
type Screen string

const (
	ScreenWarmup      Screen = "warmup"
	ScreenRecovery    Screen = "recovery"
	ScreenDashboard   Screen = "dashboard"
	ScreenUnavailable Screen = "unavailable"
)

// ScreenFor maps a phase to its screen. The phase alone decides; no other
// flag is consulted.
func ScreenFor(phase types.Phase) Screen {
	switch phase {
	case types.PhaseQuickRecovery, types.PhaseFinalRecovery:
		return ScreenRecovery
	case types.PhaseReady:
		return ScreenDashboard
	case types.PhaseFailed:
		return ScreenUnavailable
	default:
		return ScreenWarmup
	}
}

// Heading is the title and subtitle shown for a state
type Heading struct {
	Title    string
	Subtitle string
}

// HeadingFor returns the heading of the current screen
func HeadingFor(plan progress.Plan, st types.WarmupState) Heading {
	switch ScreenFor(st.Phase) {
	case ScreenRecovery:
		return Heading{Title: "Reconnecting to prediction service", Subtitle: RecoveryLabel(st)}
	case ScreenDashboard:
		return Heading{Title: "Prediction service ready"}
	case ScreenUnavailable:
		return Heading{
			Title:    "Service unavailable",
			Subtitle: "The prediction service did not respond. Restart to try again.",
		}
	}

	phase := plan.Phase(st.PhaseIndex)
	return Heading{Title: phase.Label, Subtitle: phase.Subtitle}
}

// RecoveryLabel returns the "attempt N/2" indicator, or "" outside recovery
func RecoveryLabel(st types.WarmupState) string {
	if !st.RecoveryInProgress() {
		return ""
	}
	return fmt.Sprintf("Recovery attempt %d/%d", st.RecoveryAttempts, types.MaxRecoveryAttempts)
}

// Risk is the headline status of one disease
type Risk string

const (
	RiskOutbreak Risk = "Outbreak Expected"
	RiskHigh     Risk = "High Risk"
	RiskLow      Risk = "Low Risk"
)

// highRiskPercent is the percentage above which a disease without a
// predicted outbreak is still flagged
const highRiskPercent = 70.0

// RiskFor classifies a prediction record. The probability is compared as
// the percentage the dashboard shows, rounded to one decimal.
func RiskFor(r types.PredictionRecord) Risk {
	switch {
	case r.Outbreak:
		return RiskOutbreak
	case math.Round(r.Probability*1000)/10 > highRiskPercent:
		return RiskHigh
	default:
		return RiskLow
	}
}
