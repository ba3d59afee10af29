package session

import (
	"context"
	"sync"
	"time"
)

// Scope groups tasks that are cancelled together
type Scope string

// Registry owns every timer, ticker and goroutine of a session. Each
// registration gets its own cancel function, stored under its scope, so a
// whole loop can be torn down with Cancel and the whole session with
// CancelAll. After CancelAll the registry refuses new registrations.
type Registry struct {
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	cancelFns map[Scope]map[uint64]context.CancelFunc
	nextID    uint64
	closed    bool
	wg        sync.WaitGroup
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		ctx:       ctx,
		cancel:    cancel,
		cancelFns: make(map[Scope]map[uint64]context.CancelFunc),
	}
}

// register allocates a task context under scope
func (r *Registry) register(scope Scope) (context.Context, uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, 0, false
	}

	ctx, cancel := context.WithCancel(r.ctx)
	r.nextID++
	id := r.nextID
	if r.cancelFns[scope] == nil {
		r.cancelFns[scope] = make(map[uint64]context.CancelFunc)
	}
	r.cancelFns[scope][id] = cancel
	r.wg.Add(1)
	return ctx, id, true
}

// release forgets a finished task
func (r *Registry) release(scope Scope, id uint64) {
	r.mu.Lock()
	if cancel, ok := r.cancelFns[scope][id]; ok {
		cancel()
		delete(r.cancelFns[scope], id)
		if len(r.cancelFns[scope]) == 0 {
			delete(r.cancelFns, scope)
		}
	}
	r.mu.Unlock()
	r.wg.Done()
}

// After runs fn once after d unless the scope is cancelled first
func (r *Registry) After(scope Scope, d time.Duration, fn func()) bool {
	ctx, id, ok := r.register(scope)
	if !ok {
		return false
	}

	go func() {
		defer r.release(scope, id)

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			fn()
		case <-ctx.Done():
		}
	}()
	return true
}

// Every runs fn every d until the scope is cancelled
func (r *Registry) Every(scope Scope, d time.Duration, fn func()) bool {
	ctx, id, ok := r.register(scope)
	if !ok {
		return false
	}

	go func() {
		defer r.release(scope, id)

		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fn()
			case <-ctx.Done():
				return
			}
		}
	}()
	return true
}

// Go runs fn in its own goroutine with a context cancelled by the scope
func (r *Registry) Go(scope Scope, fn func(ctx context.Context)) bool {
	ctx, id, ok := r.register(scope)
	if !ok {
		return false
	}

	go func() {
		defer r.release(scope, id)
		fn(ctx)
	}()
	return true
}

// Active reports whether any task of scope is still registered
func (r *Registry) Active(scope Scope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancelFns[scope]) > 0
}

// Cancel stops every task of scope. Tasks already running their callback
// finish it; the session drops what they post by epoch.
func (r *Registry) Cancel(scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, cancel := range r.cancelFns[scope] {
		cancel()
		delete(r.cancelFns[scope], id)
	}
	delete(r.cancelFns, scope)
}

// CancelAll stops every task and closes the registry
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.cancel()
	r.cancelFns = make(map[Scope]map[uint64]context.CancelFunc)
}

// Len returns the number of registered tasks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, fns := range r.cancelFns {
		n += len(fns)
	}
	return n
}

// Wait blocks until every task goroutine has returned
func (r *Registry) Wait() {
	r.wg.Wait()
}
