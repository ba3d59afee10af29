package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/dops/pkg/client"
	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/events"
	"github.com/cuemby/dops/pkg/health"
	"github.com/cuemby/dops/pkg/loader"
	"github.com/cuemby/dops/pkg/log"
	"github.com/cuemby/dops/pkg/metrics"
	"github.com/cuemby/dops/pkg/types"
	"github.com/cuemby/dops/pkg/warmup"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// API is the part of the prediction service a session calls after warm-up
type API interface {
	States(ctx context.Context) ([]string, error)
	Districts(ctx context.Context, state string) ([]string, error)
	Predict(ctx context.Context, req types.PredictionRequest) ([]types.PredictionRecord, error)
}

// UserAgent is sent on every request to the prediction service. The CLI
// sets it to include its version.
var UserAgent = "dops"

// Deps are the collaborators of a session. Nil fields are built from the
// configured API URL.
type Deps struct {
	Prober health.Prober
	API    API
	Broker *events.Broker
}

// Snapshot is a consistent view of a session for status reporting
type Snapshot struct {
	SessionID string            `json:"session_id"`
	StartedAt time.Time         `json:"started_at"`
	State     types.WarmupState `json:"state"`
	Probes    health.Status     `json:"probes"`
	States    int               `json:"states"`
}

// envelope carries one event into the session loop. reply, when set,
// receives the states on either side of the event.
type envelope struct {
	event   warmup.Event
	catalog *types.LocationCatalog
	reply   chan transition
}

// transition is one event's effect on the state, as seen by the loop
type transition struct {
	before types.WarmupState
	after  types.WarmupState
}

// Session runs one warm-up of the backend and, once Ready, gates prediction
// requests. All WarmupState changes happen on a single loop goroutine; timers,
// probes and recovery procedures only post events to it.
type Session struct {
	id      string
	cfg     config.Config
	machine *warmup.Machine
	prober  health.Prober
	api     API
	loader  *loader.Loader
	broker  *events.Broker
	tasks   *Registry
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan envelope
	done   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once

	// inflight is owned by the loop goroutine
	inflight map[types.ProbeSource]bool

	mu          sync.RWMutex
	state       types.WarmupState
	catalog     types.LocationCatalog
	predictions []types.PredictionRecord
	probes      health.Status
	startedAt   time.Time
	changed     chan struct{}
}

// New creates a session. It does not start warming up until Start.
func New(cfg config.Config, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	// API calls and probes share one client so a connection opened by a
	// successful probe is reused by the first data request
	hc := &http.Client{}
	if deps.API == nil {
		deps.API = client.NewClient(cfg.APIURL).WithHTTPClient(hc).WithUserAgent(UserAgent)
	}
	if deps.Prober == nil {
		deps.Prober = health.NewHTTPProber(cfg.APIURL).WithClient(hc).WithHeader("User-Agent", UserAgent)
	}
	if deps.Broker == nil {
		deps.Broker = events.NewBroker()
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:       id,
		cfg:      cfg,
		machine:  warmup.NewMachine(cfg.Timings),
		prober:   deps.Prober,
		api:      deps.API,
		loader:   loader.New(deps.API, cfg.Timings),
		broker:   deps.Broker,
		tasks:    NewRegistry(),
		logger:   log.WithSessionID("session", id),
		ctx:      ctx,
		cancel:   cancel,
		inbox:    make(chan envelope, 64),
		done:     make(chan struct{}),
		inflight: make(map[types.ProbeSource]bool),
		state:    types.NewWarmupState(),
		changed:  make(chan struct{}),
	}, nil
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Start launches the session loop and begins cycle 0
func (s *Session) Start() error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}

	started := false
	s.startOnce.Do(func() {
		started = true

		s.mu.Lock()
		s.startedAt = time.Now()
		s.mu.Unlock()

		s.broker.Start()
		go s.run()

		s.logger.Info().
			Str("api_url", s.cfg.APIURL).
			Dur("schedule", s.cfg.Timings.ScheduleLength()).
			Msg("Warm-up started")
		s.post(envelope{event: warmup.Start{}})
	})
	if !started {
		return fmt.Errorf("session %s already started", s.id)
	}
	return nil
}

// Close cancels every timer and in-flight call and waits for them to return.
// Completions that race with Close are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.tasks.CancelAll()

		s.startOnce.Do(func() {
			close(s.done)
		})
		<-s.done
		s.tasks.Wait()
		s.broker.Stop()

		s.mu.Lock()
		close(s.changed)
		s.changed = nil
		s.mu.Unlock()

		s.logger.Debug().Msg("Session closed")
	})
}

// run is the session loop
func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case env := <-s.inbox:
			s.handle(env)
		case <-s.ctx.Done():
			return
		}
	}
}

// post hands an envelope to the loop. It returns false once the session
// is closed.
func (s *Session) post(env envelope) bool {
	select {
	case s.inbox <- env:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// postFunc returns a callback that posts ev, for timers and tickers
func (s *Session) postFunc(ev warmup.Event) func() {
	return func() {
		s.post(envelope{event: ev})
	}
}

// apply posts ev and waits for the loop to apply it
func (s *Session) apply(ctx context.Context, ev warmup.Event) (transition, error) {
	reply := make(chan transition, 1)
	if !s.post(envelope{event: ev, reply: reply}) {
		return transition{}, ErrClosed
	}

	select {
	case tr := <-reply:
		return tr, nil
	case <-ctx.Done():
		return transition{}, ctx.Err()
	case <-s.done:
		return transition{}, ErrClosed
	}
}

func (s *Session) handle(env envelope) {
	if pc, ok := env.event.(warmup.ProbeCompleted); ok {
		delete(s.inflight, pc.Source)
		s.mu.Lock()
		s.probes.Update(pc.Result)
		s.mu.Unlock()
	}

	prev := s.state
	next, effects := s.machine.Apply(prev, env.event)

	s.commit(prev, next, env.catalog)

	for _, effect := range effects {
		s.execute(next, effect)
	}

	if env.reply != nil {
		env.reply <- transition{before: prev, after: next}
	}
}

// commit publishes the new state and reports what changed
func (s *Session) commit(prev, next types.WarmupState, catalog *types.LocationCatalog) {
	s.mu.Lock()
	s.state = next
	if catalog != nil && next.AppInitialized && !prev.AppInitialized {
		s.catalog = *catalog
	}
	startedAt := s.startedAt
	if prev != next {
		close(s.changed)
		s.changed = make(chan struct{})
	}
	s.mu.Unlock()

	if next.ProgressPercent != prev.ProgressPercent {
		metrics.WarmupProgress.Set(next.ProgressPercent)
		s.broker.Publish(&events.Event{Type: events.EventProgressUpdated, State: next})
	}

	if next.BackendConfirmedReady && !prev.BackendConfirmedReady {
		metrics.WarmupReadyDuration.Observe(time.Since(startedAt).Seconds())
		s.logger.Info().
			Float64("progress", prev.ProgressPercent).
			Int("cycle", next.Cycle).
			Dur("elapsed", time.Since(startedAt)).
			Msg("Backend confirmed ready")
	}

	if next.AppInitialized && !prev.AppInitialized {
		s.logger.Info().
			Bool("limited", next.LimitedMode).
			Msg("Application initialized")
		s.broker.Publish(&events.Event{
			Type:    events.EventLocationsLoaded,
			State:   next,
			Message: fmt.Sprintf("%d states", len(s.Catalog().States)),
		})
	}

	if next.Phase == prev.Phase {
		return
	}

	metrics.WarmupTransitions.WithLabelValues(string(next.Phase)).Inc()

	ev := &events.Event{Type: events.EventPhaseChanged, State: next}
	logEvent := s.logger.Info()

	switch next.Phase {
	case types.PhaseQuickRecovery, types.PhaseFinalRecovery:
		ev.Type = events.EventRecoveryStarted
		ev.Message = fmt.Sprintf("attempt %d/%d", next.RecoveryAttempts, types.MaxRecoveryAttempts)
		logEvent = s.logger.Warn().Int("attempt", next.RecoveryAttempts)
	case types.PhaseReady:
		ev.Type = events.EventSessionReady
	case types.PhaseFailed:
		ev.Type = events.EventSessionFailed
		ev.Message = ErrServiceUnavailable.Error()
		logEvent = s.logger.Error()
	}

	logEvent.
		Str("from", string(prev.Phase)).
		Str("to", string(next.Phase)).
		Int("cycle", next.Cycle).
		Float64("progress", next.ProgressPercent).
		Msg("Warm-up phase changed")

	s.broker.Publish(ev)
}

// Snapshot returns the current state and probe statistics
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		SessionID: s.id,
		StartedAt: s.startedAt,
		State:     s.state,
		Probes:    s.probes,
		States:    len(s.catalog.States),
	}
}

// State returns the current warm-up state
func (s *Session) State() types.WarmupState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Catalog returns the location catalog. It is empty until the application
// is initialized.
func (s *Session) Catalog() types.LocationCatalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Predictions returns the records of the last successful prediction
func (s *Session) Predictions() []types.PredictionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.PredictionRecord(nil), s.predictions...)
}

// Subscribe returns a channel of session events. With types given, only
// those event types are delivered.
func (s *Session) Subscribe(only ...events.EventType) events.Subscriber {
	return s.broker.SubscribeTypes(only...)
}

// Unsubscribe stops delivery to a subscriber
func (s *Session) Unsubscribe(sub events.Subscriber) {
	s.broker.Unsubscribe(sub)
}

// settled reports whether the session needs nothing more from the warm-up:
// ready with locations loaded, or failed
func settled(st types.WarmupState) bool {
	return st.Phase == types.PhaseFailed || (st.Phase == types.PhaseReady && st.AppInitialized)
}

// WaitSettled blocks until the session is ready to serve predictions or has
// failed, and returns the state at that moment
func (s *Session) WaitSettled(ctx context.Context) (types.WarmupState, error) {
	for {
		s.mu.RLock()
		st, changed := s.state, s.changed
		s.mu.RUnlock()

		if settled(st) {
			return st, nil
		}
		if changed == nil {
			return st, ErrClosed
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}
