package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/cuemby/dops/pkg/progress"
	"github.com/cuemby/dops/pkg/types"
	"github.com/fatih/color"
)

const barWidth = 30

var (
	titleColor    = color.New(color.Bold, color.FgCyan)
	subtleColor   = color.New(color.FgHiBlack)
	recoveryColor = color.New(color.FgYellow, color.Bold)
	failColor     = color.New(color.FgRed, color.Bold)
	readyColor    = color.New(color.FgGreen, color.Bold)
)

// Bar renders a fixed-width progress bar for a percentage
func Bar(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > progress.Complete {
		percent = progress.Complete
	}
	filled := int(percent / progress.Complete * barWidth)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// StatusLine renders one line describing the warm-up state
func StatusLine(plan progress.Plan, st types.WarmupState) string {
	h := HeadingFor(plan, st)

	switch ScreenFor(st.Phase) {
	case ScreenRecovery:
		return recoveryColor.Sprint("↻ "+h.Title) + "  " + subtleColor.Sprint(h.Subtitle)
	case ScreenDashboard:
		return readyColor.Sprint("● " + h.Title)
	case ScreenUnavailable:
		return failColor.Sprint("✗ "+h.Title) + "  " + subtleColor.Sprint(h.Subtitle)
	}

	return fmt.Sprintf("%s %3.0f%%  %s  %s",
		Bar(st.ProgressPercent),
		st.ProgressPercent,
		titleColor.Sprint(h.Title),
		subtleColor.Sprint(h.Subtitle),
	)
}

// riskColor returns the colour of a risk status
func riskColor(r Risk) *color.Color {
	switch r {
	case RiskOutbreak:
		return failColor
	case RiskHigh:
		return recoveryColor
	default:
		return subtleColor
	}
}

// RenderPredictions writes one block per disease
func RenderPredictions(w io.Writer, state, district string, records []types.PredictionRecord) {
	fmt.Fprintln(w, titleColor.Sprintf("Outbreak risk for %s, %s", district, state))

	if len(records) == 0 {
		fmt.Fprintln(w, subtleColor.Sprint("  no predictions returned"))
		return
	}

	for _, r := range records {
		risk := RiskFor(r)
		fmt.Fprintf(w, "  %-12s %5.1f%%  %s\n", r.Disease, r.Probability*100, riskColor(risk).Sprint(risk))

		if r.Cases != nil || r.Deaths != nil {
			fmt.Fprintf(w, "               cases %s  deaths %s\n", intOrDash(r.Cases), intOrDash(r.Deaths))
		}
	}

	// Environmental context is identical across records
	env := records[0]
	var details []string
	for _, f := range []struct {
		label string
		value *float64
		unit  string
	}{
		{"PM2.5", env.PM25, "µg/m³"},
		{"NO2", env.NO2, "µg/m³"},
		{"O3", env.O3, "µg/m³"},
		{"Temp", env.Temperature, "°C"},
		{"Humidity", env.Humidity, "%"},
		{"Density", env.PopulationDensity, "/km²"},
	} {
		if f.value != nil {
			details = append(details, fmt.Sprintf("%s %.1f%s", f.label, *f.value, f.unit))
		}
	}
	if len(details) > 0 {
		fmt.Fprintln(w, subtleColor.Sprint("  "+strings.Join(details, "  ")))
	}
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
