/*
Package metrics provides Prometheus instrumentation and health reporting.

All collectors are package-level variables registered in init, so
instrumenting a code path is a single call with no plumbing:

	metrics.SyncPassesTotal.Inc()
	metrics.QueueLength.Set(float64(n))

# Collectors

Sync:
  - roadwatch_sync_passes_total: completed sync passes
  - roadwatch_sync_skipped_total{reason}: skipped passes (offline, in_progress)
  - roadwatch_sync_duration_seconds: pass duration histogram
  - roadwatch_actions_replayed_total / _failed_total / _deadlettered_total

State:
  - roadwatch_queue_length: queued offline actions
  - roadwatch_deadletter_length: retired actions
  - roadwatch_cached_alerts: alerts in the persistent cache

Realtime:
  - roadwatch_realtime_connected: 1 while the event stream is open
  - roadwatch_realtime_reconnects_total: scheduled reconnect attempts
  - roadwatch_realtime_events_total{type}: dispatched events
  - roadwatch_realtime_frames_dropped_total: unparseable or unknown frames

# Health Endpoint

The health checker aggregates per-component health (backend reachability,
storage) into a single JSON document served at /healthz next to /metrics:

	{
	  "status": "healthy",
	  "version": "1.0.0",
	  "uptime": "1h23m5s",
	  "components": {"backend": "healthy"}
	}

Overall status is unhealthy when any component is, and the endpoint answers
503 so an orchestrator liveness probe sees it directly. Serve starts
both endpoints on the configured address; the daemon runs it only when
metrics_addr is set.
*/
package metrics
