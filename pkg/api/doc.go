/*
Package api exposes a running warm-up session over HTTP for operators.

# Endpoints

	GET /health   liveness; always 200 while the process serves
	GET /ready    200 once the backend is Ready and locations are loaded,
	              503 otherwise (including the terminal Failed phase)
	GET /status   JSON session snapshot: phase, progress, cycle,
	              recovery attempts, probe counters
	GET /metrics  Prometheus exposition

Limited Mode counts as ready: the backend answered and predictions work,
only the state list is a placeholder. /ready reports it as
"locations": "limited".

# Usage

	srv := api.NewStatusServer(sess)
	go func() {
		if err := srv.Start(":9090"); err != nil {
			log.Logger.Error().Err(err).Msg("status server failed")
		}
	}()
	defer srv.Shutdown(context.Background())

The handlers only read Session.Snapshot, so they never block the session
loop.
*/
package api
