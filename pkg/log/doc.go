/*
Package log provides structured logging for roadwatch built on zerolog.

A single global logger is initialized once at startup and shared by every
package through child-logger helpers that attach standard fields:

	logger := log.WithComponent("syncer")
	logger.Info().Str("action_id", id).Msg("queued alert created on backend")

# Output Formats

Console (default, human-readable):

	2026-09-01T10:30:00Z INF connected component=realtime url=ws://...

JSON (for log aggregation):

	{"level":"info","component":"realtime","time":"...","message":"connected"}

# Conventions

  - component: which package emitted the line (syncer, realtime, storage...)
  - alert_id / action_id: entity context where one applies
  - Err(err) for errors, never string interpolation
  - Debug for per-item chatter, Info for state transitions, Warn for
    absorbed failures, Error for failures that lose data

Tests call Init with io.Discard so logging paths run without output.
*/
package log
