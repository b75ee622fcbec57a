/*
Package storage provides BoltDB-backed persistence for roadwatch's offline state.

The storage package implements the Store interface using BoltDB as the
underlying database, persisting the bounded alert cache, the FIFO queue of
offline actions, and the dead letter of retired actions. All values are
serialized as JSON and stored in separate buckets so that a crash or restart
never loses queued work.

# Architecture

Roadwatch uses BoltDB (bbolt) for embedded, transactional storage with zero
external dependencies:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                       │          │
	│  │  - File: <dataDir>/roadwatch.db            │          │
	│  │  - Format: B+tree with MVCC                │          │
	│  │  - Transactions: ACID with fsync           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure              │          │
	│  │  ┌────────────────────────────┐            │          │
	│  │  │ alerts      (position key) │            │          │
	│  │  │ actions     (sequence key) │            │          │
	│  │  │ deadletter  (sequence key) │            │          │
	│  │  └────────────────────────────┘            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │        Ordering via Key Encoding           │          │
	│  │  - Keys: 8-byte big-endian counters        │          │
	│  │  - Cursor iteration == logical order       │          │
	│  │  - alerts: position 0 is most recent       │          │
	│  │  - actions: lowest sequence is oldest      │          │
	│  └────────────────────────────────────────────┘          │
	└───────────────────────────────────────────────────────────┘

# Core Components

BoltStore:
  - Implements Store interface using BoltDB
  - Single database file per daemon
  - Automatic bucket creation on initialization
  - Thread-safe via BoltDB's transaction model

Alert Cache:
  - Bounded ring of the most recent alerts (default capacity 120)
  - Most-recent-first ordering preserved by position keys
  - Deduplicated by alert ID; a re-added alert moves to the front
  - Rewritten wholesale inside a single write transaction

Action Queue:
  - FIFO queue of operations performed while offline
  - Keys from the bucket's monotonic sequence, never reused
  - Each action carries its attempt count and its pending alert ID
  - Survives process restarts; replayed by pkg/syncer

Dead Letter:
  - Terminal parking lot for actions that exhausted their replay
    attempts or carried an unknown kind
  - Retired actions keep the failure reason and retirement time
  - Inspected and cleared through the CLI

# Pending Alerts

Alerts created while offline are synthesized locally before the backend has
assigned an ID. BuildPendingAlert gives them a negative ID derived from the
creation timestamp so they can never collide with backend-assigned positive
IDs, and marks them Pending and Offline for the UI layer.

PendingAlertFromAction rebuilds the same synthetic alert from a queued
action, which is how still-queued creations re-surface after the cache is
replaced wholesale by a backend refresh.

# Usage

Creating a store:

	store, err := storage.NewBoltStore("/var/lib/roadwatch", 120)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

Cache operations:

	// Replace the snapshot after a successful backend fetch
	err := store.CacheAlerts(alerts)

	// Insert one alert at the front (evicts the oldest beyond capacity)
	err = store.AddAlertToCache(alert)

	// Read back, most recent first
	alerts, err := store.CachedAlerts()

Queue operations:

	// Stage an offline creation
	pending := storage.BuildPendingAlert(req)
	action, err := store.QueueCreateAlert(req, pending.ID)

	// Replay in enqueue order
	actions, err := store.QueuedActions()
	for _, action := range actions {
		// ... replay against the backend ...
		err = store.RemoveQueuedAction(action.ID)
	}

	// Persist an incremented attempt count in place
	action.Attempts++
	err = store.UpdateQueuedAction(action)

Dead letter:

	err := store.DeadLetter(action, "replay attempts exhausted")
	dead, err := store.DeadLetteredActions()
	err = store.ClearDeadLetter()

# Integration Points

This package integrates with:

  - pkg/syncer: replays queued actions and refreshes the cache snapshot
  - pkg/alertstore: primed from CachedAlerts at startup
  - pkg/types: Alert, OfflineAction, and DeadAction definitions
  - cmd/roadwatch: queue and dead-letter inspection commands

# Design Patterns

Wholesale Rewrite:
  - Cache mutations rewrite the alerts bucket inside one transaction
  - Keeps position keys dense and ordering exact
  - Cheap at the bounded capacity (at most 120 entries)

Skip, Don't Fail:
  - A corrupt JSON entry is logged and skipped during reads
  - One bad record never takes down the whole cache or queue

Sequence Keys:
  - Queue keys come from BoltDB's NextSequence, monotonic per bucket
  - Enqueue order falls out of byte-ordered cursor iteration
  - Clearing a bucket resets nothing the queue relies on

# See Also

  - pkg/syncer for the replay loop that drains the queue
  - pkg/types for the persisted entity definitions
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
