/*
Package health implements the liveness probe used during backend warm-up.

A probe is a single bounded HTTP request against the prediction service. It
never retries and never mutates session state; the caller decides what a
result means for the warm-up.

# Classification

	status < 500              → ready      (the app answered, even with 404)
	status >= 500             → ambiguous  (proxy answered, app did not)
	timeout / transport error → not_ready
	request build error       → ambiguous
	caller cancellation       → ambiguous

Only ready results are ever treated as proof of liveness. Ambiguous results
are logged with their reason so that a gateway answering 503 during a cold
start is distinguishable from a dead network in the logs.

# Usage

	prober := health.NewHTTPProber("https://dops.example.com").
		WithHeader("User-Agent", "dops/1.0")

	result := prober.Probe(ctx, 1500*time.Millisecond)
	if result.Ready() {
		// backend confirmed warm
	}

Status accumulates consecutive successes and failures for the ops status
endpoint.
*/
package health
