package view

import (
	"bytes"
	"testing"

	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/progress"
	"github.com/cuemby/dops/pkg/types"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestScreenFor(t *testing.T) {
	tests := []struct {
		phase    types.Phase
		expected Screen
	}{
		{phase: types.PhasePolling, expected: ScreenWarmup},
		{phase: types.PhaseFastForwarding, expected: ScreenWarmup},
		{phase: types.PhaseQuickRecovery, expected: ScreenRecovery},
		{phase: types.PhaseFinalRecovery, expected: ScreenRecovery},
		{phase: types.PhaseReady, expected: ScreenDashboard},
		{phase: types.PhaseFailed, expected: ScreenUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			assert.Equal(t, tt.expected, ScreenFor(tt.phase))
		})
	}
}

func TestHeadingFor(t *testing.T) {
	plan := progress.NewPlan(config.DefaultTimings())

	st := types.NewWarmupState()
	st.PhaseIndex = 2
	assert.Equal(t, Heading{Title: "Analyzing Weather Patterns", Subtitle: "Climate Correlation Engine"}, HeadingFor(plan, st))

	st.Phase = types.PhaseFinalRecovery
	st.RecoveryAttempts = 2
	assert.Equal(t, "Recovery attempt 2/2", HeadingFor(plan, st).Subtitle)

	st.Phase = types.PhaseFailed
	assert.Equal(t, "Service unavailable", HeadingFor(plan, st).Title)
}

func TestRecoveryLabel(t *testing.T) {
	st := types.NewWarmupState()
	assert.Empty(t, RecoveryLabel(st))

	st.Phase = types.PhaseQuickRecovery
	st.RecoveryAttempts = 1
	assert.Equal(t, "Recovery attempt 1/2", RecoveryLabel(st))
}

func TestRiskFor(t *testing.T) {
	tests := []struct {
		name     string
		record   types.PredictionRecord
		expected Risk
	}{
		{name: "outbreak wins", record: types.PredictionRecord{Outbreak: true, Probability: 0.2}, expected: RiskOutbreak},
		{name: "above 70 percent", record: types.PredictionRecord{Probability: 0.71}, expected: RiskHigh},
		{name: "exactly 70 percent", record: types.PredictionRecord{Probability: 0.70}, expected: RiskLow},
		{name: "rounds down to 70.0 percent", record: types.PredictionRecord{Probability: 0.7004}, expected: RiskLow},
		{name: "rounds up to 70.1 percent", record: types.PredictionRecord{Probability: 0.7006}, expected: RiskHigh},
		{name: "low", record: types.PredictionRecord{Probability: 0.1}, expected: RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RiskFor(tt.record))
		})
	}
}

func TestBar(t *testing.T) {
	assert.Equal(t, "["+repeat("░", 30)+"]", Bar(0))
	assert.Equal(t, "["+repeat("█", 15)+repeat("░", 15)+"]", Bar(50))
	assert.Equal(t, "["+repeat("█", 30)+"]", Bar(140))
}

func TestStatusLine(t *testing.T) {
	plan := progress.NewPlan(config.DefaultTimings())
	st := types.NewWarmupState()
	st.ProgressPercent = 40
	st.PhaseIndex = 2

	line := StatusLine(plan, st)
	assert.Contains(t, line, " 40%")
	assert.Contains(t, line, "Analyzing Weather Patterns")

	st.Phase = types.PhaseReady
	assert.Contains(t, StatusLine(plan, st), "ready")
}

func TestRenderPredictions(t *testing.T) {
	cases := 120
	pm := 41.5
	records := []types.PredictionRecord{
		{Disease: "Dengue", Outbreak: true, Probability: 0.82, Cases: &cases, PM25: &pm},
		{Disease: "Cholera", Probability: 0.1},
	}

	var buf bytes.Buffer
	RenderPredictions(&buf, "Kerala", "Ernakulam", records)
	out := buf.String()

	assert.Contains(t, out, "Outbreak risk for Ernakulam, Kerala")
	assert.Contains(t, out, "Dengue")
	assert.Contains(t, out, "82.0%")
	assert.Contains(t, out, "Outbreak Expected")
	assert.Contains(t, out, "cases 120  deaths -")
	assert.Contains(t, out, "Low Risk")
	assert.Contains(t, out, "PM2.5 41.5µg/m³")

	buf.Reset()
	RenderPredictions(&buf, "A", "X", nil)
	assert.Contains(t, buf.String(), "no predictions returned")
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
