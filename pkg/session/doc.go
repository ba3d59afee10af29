/*
Package session runs the backend warm-up and gates prediction requests.

A Session owns exactly one WarmupState. Every change to it happens on a single
loop goroutine that receives events from an inbox, applies them through
warmup.Machine and executes the returned effects. Timers, tickers, probes,
the fast-forward animation, recovery procedures and the location loader all
run as tasks in a scoped Registry and communicate only by posting events.

# Concurrency

	   Registry tasks                          loop goroutine
	┌───────────────────┐                 ┌──────────────────────────┐
	│ schedule timers   │── PhaseElapsed ─►│                          │
	│ poll ticker       │── PollDue ──────►│  Machine.Apply(state, ev)│
	│ monitor ticker    │── MonitorDue ───►│          │               │
	│ probe goroutines  │── ProbeCompleted►│          ▼               │
	│ fast-forward      │── FFTick/Done ──►│  commit + publish event  │
	│ recovery          │── Outcome ──────►│          │               │
	│ location loader   │── Loaded ───────►│  execute effects ────────┼──► Registry
	└───────────────────┘                 └──────────────────────────┘

The loop never blocks on I/O. A result that arrives after its loop was
cancelled, or after the epoch moved on, is dropped by the machine, and at
most one probe per source is in flight.

# Teardown

The Failed transition and Close both cancel every registered task. After
that no timer fires, no probe is issued and the registry refuses new work;
Close additionally waits for every task goroutine to return.

# Requests

Predict and Districts are allowed only while the state is Ready with the
location catalog loaded and no recovery running. A 5xx answer to Predict is
reported to the machine, which may start recovery from the shared budget;
the caller then receives an error wrapping ErrRecoveryStarted.
*/
package session
