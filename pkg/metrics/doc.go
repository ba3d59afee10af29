/*
Package metrics provides Prometheus instrumentation for the DOPS client.

All collectors are package-level variables registered with the default
Prometheus registry at init, and exposed by the ops server under /metrics.

# Metrics

Probing:

	dops_probes_total{source,result}          counter
	dops_probe_duration_seconds{source}       histogram

source is one of early, poll, boundary, monitor, recovery; result is one of
ready, not_ready, ambiguous.

Warm-up:

	dops_warmup_transitions_total{phase}      counter
	dops_warmup_progress_percent              gauge
	dops_warmup_ready_seconds                 histogram
	dops_recovery_total{kind,outcome}         counter

Application data:

	dops_location_load_attempts_total{result} counter
	dops_prediction_requests_total{result}    counter
	dops_prediction_duration_seconds          histogram

# Timing Operations

Timer wraps time.Since for histogram observation:

	timer := metrics.NewTimer()
	records, err := client.Predict(ctx, req)
	timer.ObserveDuration(metrics.PredictionDuration)

Useful queries:

	# share of sessions that needed recovery
	sum(rate(dops_recovery_total[1h])) / sum(rate(dops_warmup_transitions_total{phase="polling"}[1h]))

	# p95 cold start as seen by clients
	histogram_quantile(0.95, rate(dops_warmup_ready_seconds_bucket[1h]))
*/
package metrics
