/*
Package types defines the data model shared by every DOPS client package.

The model is small and entirely process-local. Nothing here is persisted by
the warm-up core; the CLI's optional history store serializes
PredictionRecord values on its own.

# Core Types

Warm-up:
  - WarmupState: the single mutable record of a session (phase, cycle,
    progress, recovery attempts, readiness flags, active task, epoch)
  - Phase: polling, fast_forwarding, quick_recovery, final_recovery, ready,
    failed
  - ActiveTask: which loop currently owns the state (idle, scheduled,
    fast_forward, quick_recovery, final_recovery)
  - RecoveryKind: quick (attempt 1/2) or final (attempt 2/2)

Probing:
  - ProbeResult: ready, not_ready or ambiguous(reason), never stored
  - ProbeSource: early, poll, boundary, monitor, recovery

Application data:
  - LocationCatalog: ordered unique states and a districts-by-state cache
  - PredictionRecord: per-disease outbreak probability plus environmental,
    weather and demographic context
  - PredictionRequest: body of POST /predict

# Invariants

WarmupState values are only produced by warmup.Machine, which guarantees:

  - Cycle never exceeds MaxCycle (1)
  - RecoveryAttempts never exceeds MaxRecoveryAttempts (2)
  - BackendConfirmedReady never goes back to false
  - ProgressPercent never decreases within a cycle and resets to 0 only
    when cycle 1 starts
  - once CycleLimitReached is set the phase is failed and nothing changes

LocationCatalog values are treated as immutable; WithDistricts returns a
new value instead of editing the receiver's map.
*/
package types
