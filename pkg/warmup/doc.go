/*
Package warmup contains the decision logic of the backend warm-up: every rule
about when to probe, when to escalate to recovery, when to fail and when to
fast-forward to Ready.

Machine.Apply is the single dispatcher. It takes the current WarmupState and
an Event, and returns the next state plus a list of Effects (arm a timer,
issue a probe, start the recovery procedure, cancel a loop). It performs no
I/O and reads no clock, so the whole state machine is tested without
goroutines or sleeps; pkg/session executes the effects.

# States

	            Start
	              │
	              ▼
	 ┌────────► Polling ──────── ready probe ──────────┐
	 │        (scheduled)                              │
	 │            │ schedule + grace exhausted         │
	 │            ▼                                    ▼
	 │   QuickRecovery (1/2) ──── ready ─────► FastForwarding ──► Ready
	 │            │ failed                             ▲            │
	 │            ▼                                    │            │ 5xx on /predict
	 └── cycle 1 restart                               │            │ (budget left)
	              │                                    │            ▼
	              │ cycle 1 exhausted                  │     Quick/FinalRecovery
	              ▼                                    │
	     FinalRecovery (2/2) ──── ready ───────────────┘
	              │ failed
	              ▼
	           Failed (terminal)

# Mutual exclusion

WarmupState.Active names the one loop that owns the session: Scheduled,
FastForward, QuickRecovery, FinalRecovery or Idle. Every change of owner bumps
WarmupState.Epoch, and every timed event carries the epoch it was armed
under. Apply drops an event whose epoch or owner no longer matches, so a
timer that fires late or a recovery that finishes after the monitor already
saw Ready is a no-op.

A Ready probe result is the only event honoured from any owner: it always
leads to FastForwarding, and confirmReady stops every competing loop in the
same step.

# Budget

At most two cycles and two recovery attempts run per session. A 5xx from the
prediction endpoint draws from the same budget: quick recovery only while
cycle == 0 and no attempt was spent, final recovery only from cycle 1 after
the quick attempt.
*/
package warmup
