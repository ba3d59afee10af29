/*
Package log provides structured logging for the DOPS client using zerolog.

A single global zerolog.Logger is configured once through Init and shared by
every package. Packages derive child loggers that stamp a component name
(and, for sessions, the session ID) on every entry:

	log.Init(log.Config{Level: log.InfoLevel})

	logger := log.WithSessionID("session", id)
	logger.Info().
		Str("phase", "quick_recovery").
		Int("attempt", 1).
		Msg("Entering recovery")

# Output

Console output (the default) is meant for humans running the CLI:

	2025-10-13T10:30:00Z INF Backend confirmed ready component=session session_id=3f2a… source=poll

JSON output (--log-json) is meant for collection:

	{"level":"info","component":"session","session_id":"3f2a…","source":"poll","time":"…","message":"Backend confirmed ready"}

Logs go to stderr unless Config.Output says otherwise, because the CLI
renders warm-up progress and prediction tables on stdout.

# Levels

  - debug: individual probe outcomes, stale events dropped by the dispatcher
  - info: phase transitions, recovery entry, Ready, catalog loaded
  - warn: exhausted budgets, Limited Mode fallback
  - error: terminal failure of a session
*/
package log
