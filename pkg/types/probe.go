package types

import (
	"fmt"
	"time"
)

// ProbeStatus classifies a single liveness probe
type ProbeStatus string

const (
	ProbeReady     ProbeStatus = "ready"
	ProbeNotReady  ProbeStatus = "not_ready"
	ProbeAmbiguous ProbeStatus = "ambiguous"
)

// ProbeSource names the loop that issued a probe
type ProbeSource string

const (
	SourceEarly    ProbeSource = "early"
	SourcePoll     ProbeSource = "poll"
	SourceBoundary ProbeSource = "boundary"
	SourceMonitor  ProbeSource = "monitor"
	SourceRecovery ProbeSource = "recovery"
)

// ProbeResult is the transient outcome of one probe. It is consumed by
// whichever controller issued the probe and never stored in WarmupState.
type ProbeResult struct {
	Status    ProbeStatus
	Reason    string
	CheckedAt time.Time
	Duration  time.Duration
}

// Ready reports whether the backend answered warm
func (r ProbeResult) Ready() bool {
	return r.Status == ProbeReady
}

func (r ProbeResult) String() string {
	if r.Reason == "" {
		return string(r.Status)
	}
	return fmt.Sprintf("%s(%s)", r.Status, r.Reason)
}
