package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/dops/pkg/client"
	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/events"
	"github.com/cuemby/dops/pkg/health"
	"github.com/cuemby/dops/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimings scales the production timings down to milliseconds while
// keeping their proportions
func testTimings() config.Timings {
	t := config.DefaultTimings()
	for i := range t.Phases {
		t.Phases[i].Duration = 30 * time.Millisecond
	}
	t.ScheduleGrace = 20 * time.Millisecond
	t.EarlyProbeDelay = 10 * time.Millisecond
	t.EarlyProbeTimeout = 50 * time.Millisecond
	t.PollInterval = 20 * time.Millisecond
	t.PollTimeout = 50 * time.Millisecond
	t.BoundaryProbeTimeout = 50 * time.Millisecond
	t.MonitorInterval = 15 * time.Millisecond
	t.MonitorTimeout = 50 * time.Millisecond
	t.FastForwardBudget = 60 * time.Millisecond
	t.FastForwardTick = 5 * time.Millisecond
	t.FastForwardHold = 10 * time.Millisecond
	t.FastForwardFailsafe = 300 * time.Millisecond
	t.QuickRecovery = config.RecoveryTimings{Probes: 2, Timeout: 50 * time.Millisecond, Backoff: 20 * time.Millisecond}
	t.FinalRecovery = config.RecoveryTimings{Probes: 2, Timeout: 50 * time.Millisecond, Backoff: 20 * time.Millisecond, Hold: 20 * time.Millisecond}
	t.CycleRestartDelay = 20 * time.Millisecond
	t.LocationTimeout = 100 * time.Millisecond
	t.LocationBackoffStep = 5 * time.Millisecond
	t.DistrictsTimeout = 200 * time.Millisecond
	t.PredictTimeout = 500 * time.Millisecond
	return t
}

const predictionJSON = `{"predictions":[{"Disease":"Dengue","outbreak":true,"probability":0.82}]}`

// backend is a fake prediction service that is cold until ready is set
type backend struct {
	server        *httptest.Server
	ready         atomic.Bool
	statesCalls   atomic.Int64
	districtCalls atomic.Int64
	predictStatus atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}

	mux := http.NewServeMux()
	mux.HandleFunc("/states", func(w http.ResponseWriter, r *http.Request) {
		b.statesCalls.Add(1)
		if !b.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"states":["A","B"]}`))
	})
	mux.HandleFunc("/districts/", func(w http.ResponseWriter, r *http.Request) {
		b.districtCalls.Add(1)
		if strings.TrimPrefix(r.URL.Path, "/districts/") != "A" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"No districts found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"districts":["X","Y","X"]}`))
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		if code := b.predictStatus.Load(); code != 0 {
			w.WriteHeader(int(code))
			_, _ = w.Write([]byte(`{"detail":"model crashed"}`))
			return
		}
		_, _ = w.Write([]byte(predictionJSON))
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func readyProber() health.Prober {
	return health.ProberFunc(func(ctx context.Context, timeout time.Duration) types.ProbeResult {
		return types.ProbeResult{Status: types.ProbeReady, CheckedAt: time.Now()}
	})
}

func newSession(t *testing.T, b *backend, timings config.Timings) *Session {
	t.Helper()
	s, err := New(config.Config{APIURL: b.server.URL, Timings: timings}, Deps{})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// recorder collects session events and can react to them
type recorder struct {
	mu     sync.Mutex
	events []*events.Event
	hook   func(*events.Event)
}

func record(t *testing.T, s *Session, hook func(*events.Event)) *recorder {
	t.Helper()
	r := &recorder{hook: hook}
	sub := s.Subscribe()
	t.Cleanup(func() { s.Unsubscribe(sub) })

	go func() {
		for ev := range sub {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			if r.hook != nil {
				r.hook(ev)
			}
		}
	}()
	return r
}

func (r *recorder) phases() []types.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []types.Phase
	for _, ev := range r.events {
		switch ev.Type {
		case events.EventPhaseChanged, events.EventRecoveryStarted, events.EventSessionReady, events.EventSessionFailed:
			out = append(out, ev.State.Phase)
		}
	}
	return out
}

func (r *recorder) progress() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []float64
	for _, ev := range r.events {
		if ev.Type == events.EventProgressUpdated {
			out = append(out, ev.State.ProgressPercent)
		}
	}
	return out
}

func waitSettled(t *testing.T, s *Session) types.WarmupState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := s.WaitSettled(ctx)
	require.NoError(t, err)
	return st
}

func TestSession_WarmBackendSkipsSchedule(t *testing.T) {
	b := newBackend(t)
	b.ready.Store(true)

	timings := testTimings()
	for i := range timings.Phases {
		timings.Phases[i].Duration = time.Second
	}
	s := newSession(t, b, timings)
	rec := record(t, s, nil)

	start := time.Now()
	require.NoError(t, s.Start())
	st := waitSettled(t, s)

	assert.Equal(t, types.PhaseReady, st.Phase)
	assert.True(t, st.AppInitialized)
	assert.True(t, st.BackendConfirmedReady)
	assert.False(t, st.LimitedMode)
	assert.Equal(t, 0, st.Cycle)
	assert.Equal(t, 0, st.RecoveryAttempts)
	assert.Equal(t, 100.0, st.ProgressPercent)
	assert.Less(t, time.Since(start), time.Second, "ready well before the first phase would end")
	assert.Equal(t, []string{"A", "B"}, s.Catalog().States)

	require.Eventually(t, func() bool {
		return len(rec.phases()) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []types.Phase{types.PhaseFastForwarding, types.PhaseReady}, rec.phases())

	snap := s.Snapshot()
	assert.Equal(t, s.ID(), snap.SessionID)
	assert.Equal(t, 2, snap.States)
	assert.GreaterOrEqual(t, snap.Probes.ConsecutiveSuccesses, 1)
}

func TestSession_ColdBackendFailsOnce(t *testing.T) {
	b := newBackend(t)
	s := newSession(t, b, testTimings())
	rec := record(t, s, nil)

	require.NoError(t, s.Start())
	st := waitSettled(t, s)

	assert.Equal(t, types.PhaseFailed, st.Phase)
	assert.True(t, st.CycleLimitReached)
	assert.Equal(t, 1, st.Cycle)
	assert.Equal(t, 2, st.RecoveryAttempts)
	assert.False(t, st.BackendConfirmedReady)

	// No timer, ticker or probe survives the failure
	require.Eventually(t, func() bool { return s.tasks.Len() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	calls := b.statesCalls.Load()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, calls, b.statesCalls.Load(), "probes fired after the session failed")
	assert.Equal(t, st, s.State())

	require.Eventually(t, func() bool {
		phases := rec.phases()
		return len(phases) > 0 && phases[len(phases)-1] == types.PhaseFailed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []types.Phase{
		types.PhaseQuickRecovery,
		types.PhasePolling,
		types.PhaseFinalRecovery,
		types.PhaseFailed,
	}, rec.phases())

	// Progress rises through each cycle and resets exactly once
	resets := 0
	progress := rec.progress()
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			resets++
			assert.Equal(t, 0.0, progress[i])
		}
	}
	assert.Equal(t, 1, resets)
}

// TestSession_SlowPollProbesDoNotExhaustCap runs a poll timeout longer than
// the poll interval: ticks that find a probe outstanding must not count
func TestSession_SlowPollProbesDoNotExhaustCap(t *testing.T) {
	timings := testTimings()
	for i := range timings.Phases {
		timings.Phases[i].Duration = 200 * time.Millisecond
	}
	timings.PollInterval = 20 * time.Millisecond
	timings.PollTimeout = 100 * time.Millisecond
	timings.PollMaxAttempts = 10

	var polls atomic.Int64
	prober := health.ProberFunc(func(ctx context.Context, timeout time.Duration) types.ProbeResult {
		if timeout == timings.PollTimeout {
			polls.Add(1)
		}
		select {
		case <-time.After(timeout):
		case <-ctx.Done():
		}
		return types.ProbeResult{Status: types.ProbeNotReady, CheckedAt: time.Now()}
	})

	b := newBackend(t)
	s, err := New(config.Config{APIURL: b.server.URL, Timings: timings}, Deps{Prober: prober})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Start())
	time.Sleep(350 * time.Millisecond)

	st := s.State()
	require.Equal(t, types.PhasePolling, st.Phase)
	require.Equal(t, 0, st.Cycle)

	sent := int(polls.Load())
	assert.GreaterOrEqual(t, sent, 2)
	assert.Less(t, st.PollAttempts, timings.PollMaxAttempts)
	assert.InDelta(t, sent, st.PollAttempts, 1, "attempts %d, probes sent %d", st.PollAttempts, sent)
}

func TestNew_DefaultDepsShareClient(t *testing.T) {
	var mu sync.Mutex
	agents := map[string]bool{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents[r.URL.Path+" "+r.UserAgent()] = true
		mu.Unlock()
		switch r.URL.Path {
		case "/states":
			_, _ = w.Write([]byte(`{"states":["A"]}`))
		default:
			_, _ = w.Write([]byte(predictionJSON))
		}
	}))
	t.Cleanup(server.Close)

	s, err := New(config.Config{APIURL: server.URL, Timings: testTimings()}, Deps{})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	prober, ok := s.prober.(*health.HTTPProber)
	require.True(t, ok)
	api, ok := s.api.(*client.Client)
	require.True(t, ok)
	assert.Same(t, api.HTTPClient(), prober.Client)

	require.NoError(t, s.Start())
	require.Equal(t, types.PhaseReady, waitSettled(t, s).Phase)
	_, err = s.Predict(context.Background(), "A", "X")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]bool{
		"/states " + UserAgent:  true,
		"/predict " + UserAgent: true,
	}, agents)
}

func TestSession_QuickRecoverySucceeds(t *testing.T) {
	b := newBackend(t)
	timings := testTimings()
	timings.QuickRecovery.Backoff = 40 * time.Millisecond
	s := newSession(t, b, timings)
	record(t, s, func(ev *events.Event) {
		if ev.State.Phase == types.PhaseQuickRecovery {
			b.ready.Store(true)
		}
	})

	require.NoError(t, s.Start())
	st := waitSettled(t, s)

	assert.Equal(t, types.PhaseReady, st.Phase)
	assert.Equal(t, 0, st.Cycle)
	assert.Equal(t, 1, st.RecoveryAttempts)
	assert.True(t, st.AppInitialized)
}

func TestSession_LateReadyInSecondCycle(t *testing.T) {
	b := newBackend(t)
	timings := testTimings()
	for i := range timings.Phases {
		timings.Phases[i].Duration = 200 * time.Millisecond
	}
	timings.ScheduleGrace = 10 * time.Millisecond
	s := newSession(t, b, timings)

	record(t, s, func(ev *events.Event) {
		if ev.Type == events.EventPhaseChanged && ev.State.Phase == types.PhasePolling && ev.State.Cycle == 1 {
			b.ready.Store(true)
		}
	})

	require.NoError(t, s.Start())
	start := time.Now()
	st := waitSettled(t, s)

	assert.Equal(t, types.PhaseReady, st.Phase)
	assert.Equal(t, 1, st.Cycle)
	assert.Equal(t, 1, st.RecoveryAttempts)
	// Cycle 0 takes about a second; the monitor ends cycle 1 long before its schedule would
	assert.Less(t, time.Since(start), 1800*time.Millisecond)
}

func TestSession_ReadyDuringFinalRecovery(t *testing.T) {
	b := newBackend(t)
	timings := testTimings()
	timings.MonitorInterval = time.Second
	timings.FinalRecovery = config.RecoveryTimings{Probes: 3, Timeout: 50 * time.Millisecond, Backoff: 80 * time.Millisecond, Hold: 500 * time.Millisecond}
	s := newSession(t, b, timings)

	var flippedAt atomic.Int64
	record(t, s, func(ev *events.Event) {
		if ev.Type == events.EventRecoveryStarted && ev.State.Phase == types.PhaseFinalRecovery {
			time.AfterFunc(40*time.Millisecond, func() {
				flippedAt.Store(time.Now().UnixNano())
				b.ready.Store(true)
			})
		}
	})

	require.NoError(t, s.Start())
	st := waitSettled(t, s)

	assert.Equal(t, types.PhaseReady, st.Phase, "ready mid-window must win over the failure")
	assert.False(t, st.CycleLimitReached)
	assert.Equal(t, 1, st.Cycle)
	assert.Equal(t, 2, st.RecoveryAttempts)
	require.NotZero(t, flippedAt.Load())
	elapsed := time.Since(time.Unix(0, flippedAt.Load()))
	assert.Less(t, elapsed, 500*time.Millisecond, "ready within the fast-forward budget of the success")
}

func TestSession_LimitedModeWhenLocationsFail(t *testing.T) {
	b := newBackend(t)
	s, err := New(config.Config{APIURL: b.server.URL, Timings: testTimings()}, Deps{
		Prober: readyProber(),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Start())
	st := waitSettled(t, s)

	assert.Equal(t, types.PhaseReady, st.Phase)
	assert.True(t, st.AppInitialized)
	assert.True(t, st.LimitedMode)
	assert.Equal(t, int64(4), b.statesCalls.Load())
	assert.Equal(t, []string{types.LimitedModeState}, s.Catalog().States)

	_, err = s.Districts(context.Background(), types.LimitedModeState)
	assert.ErrorIs(t, err, ErrLimitedMode)
}

func TestSession_CloseStopsEverything(t *testing.T) {
	b := newBackend(t)
	s := newSession(t, b, testTimings())

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return b.statesCalls.Load() > 0 }, time.Second, 5*time.Millisecond)

	s.Close()
	s.Close()
	time.Sleep(30 * time.Millisecond)

	calls := b.statesCalls.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, calls, b.statesCalls.Load())
	assert.Equal(t, 0, s.tasks.Len())

	_, err := s.WaitSettled(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Start(), ErrClosed)
	_, err = s.Predict(context.Background(), "A", "X")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_StartTwice(t *testing.T) {
	b := newBackend(t)
	b.ready.Store(true)
	s := newSession(t, b, testTimings())

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
}

func TestSession_WaitSettledContext(t *testing.T) {
	b := newBackend(t)
	s := newSession(t, b, testTimings())
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	st, err := s.WaitSettled(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEqual(t, types.PhaseFailed, st.Phase)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(config.Config{}, Deps{})
	assert.Error(t, err)
}
