/*
Package syncer reconciles locally queued offline work with the backend.

The syncer owns the opportunistic sync pass: it replays queued offline
actions against the REST API in enqueue order, then refreshes the local
alert snapshot from the authoritative backend list. It also fronts alert
creation, deciding between an immediate backend call and offline staging.

# Sync Pass

	Sync(ctx)
	  │
	  ├─ offline? ──────────────► skip (reason "offline")
	  │
	  ├─ pass in flight? ───────► skip (reason "in_progress")
	  │
	  ├─ for each queued action, oldest first:
	  │    ├─ replay against backend
	  │    ├─ ok:    confirm pending alert, remove action
	  │    └─ fail:  attempts++, stay queued
	  │              (dead-letter once attempts reach the cap)
	  │
	  └─ refresh cache from GET /api/alert
	       └─ re-surface still-queued pending alerts

At most one pass runs at a time. The guard is a compare-and-swap on an
atomic flag, so overlapping triggers (startup, connectivity recovery,
realtime reconnect, CLI) collapse into a single pass; the losers return
immediately with a skip result instead of blocking.

Failures never propagate out of a pass. A failing action stays queued with
its incremented attempt count and the pass moves on to the next action, so
one rejected creation cannot wedge the queue behind it. Actions that exhaust
their attempts (default 10) are retired to the dead letter together with
their synthetic pending alert.

A failing refresh keeps the previously cached snapshot; stale data beats no
data for an offline-first client.

# Alert Creation

CreateAlert prefers the backend and falls back to the queue:

	alert, queued := s.CreateAlert(ctx, req)
	if queued {
		// alert is a synthetic pending record with a negative ID
	}

Online, the backend-confirmed record is cached and returned. Offline, or
when the backend call fails, a pending alert is built, the creation is
queued for later replay, and both are visible locally immediately. When the
replay later succeeds, the confirmed record replaces the pending one
wholesale; fields are never merged.

# Integration Points

  - pkg/storage: queue, dead letter, and cache persistence
  - pkg/alertstore: in-memory snapshot updated as actions confirm
  - pkg/client: the Backend interface is a subset of its surface
  - pkg/metrics: pass counters, durations, and queue gauges
*/
package syncer
