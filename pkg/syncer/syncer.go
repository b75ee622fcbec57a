package syncer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadwatch/roadwatch/pkg/alertstore"
	"github.com/roadwatch/roadwatch/pkg/log"
	"github.com/roadwatch/roadwatch/pkg/metrics"
	"github.com/roadwatch/roadwatch/pkg/storage"
	"github.com/roadwatch/roadwatch/pkg/types"
)

// Backend is the subset of the REST client the syncer needs
type Backend interface {
	ListAlerts(ctx context.Context) ([]*types.Alert, error)
	CreateAlert(ctx context.Context, req types.CreateAlertRequest) (*types.Alert, error)
}

// Config holds syncer configuration
type Config struct {
	// MaxAttempts bounds replay attempts per action before it is retired to
	// the dead letter
	MaxAttempts int
	// Online reports current connectivity; a nil func means always online
	Online func() bool
}

// Result summarizes one sync pass
type Result struct {
	Skipped      bool
	SkipReason   string
	Replayed     int
	Failed       int
	DeadLettered int
	Refreshed    bool
}

// Syncer opportunistically replays queued offline actions against the
// backend and refreshes the local alert snapshot. At most one pass runs at a
// time; overlapping calls return immediately
type Syncer struct {
	store   storage.Store
	backend Backend
	alerts  *alertstore.Store
	online  func() bool

	maxAttempts int
	syncing     atomic.Bool
	logger      zerolog.Logger
}

// New creates a syncer
func New(store storage.Store, backend Backend, alerts *alertstore.Store, cfg Config) *Syncer {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Syncer{
		store:       store,
		backend:     backend,
		alerts:      alerts,
		online:      cfg.Online,
		maxAttempts: maxAttempts,
		logger:      log.WithComponent("syncer"),
	}
}

// Sync runs one pass: replay queued actions in enqueue order, then refresh
// the cache from the backend. Failures are absorbed and logged, never
// propagated; a failing action stays queued for the next pass
func (s *Syncer) Sync(ctx context.Context) Result {
	if s.online != nil && !s.online() {
		metrics.SyncSkippedTotal.WithLabelValues("offline").Inc()
		s.logger.Debug().Msg("skipping sync, offline")
		return Result{Skipped: true, SkipReason: "offline"}
	}

	// Single-permit guard: a pass already in flight wins
	if !s.syncing.CompareAndSwap(false, true) {
		metrics.SyncSkippedTotal.WithLabelValues("in_progress").Inc()
		s.logger.Debug().Msg("skipping sync, pass already in progress")
		return Result{Skipped: true, SkipReason: "in_progress"}
	}
	defer s.syncing.Store(false)

	start := time.Now()
	defer func() {
		metrics.SyncDuration.Observe(time.Since(start).Seconds())
		metrics.SyncPassesTotal.Inc()
	}()

	var res Result
	actions, err := s.store.QueuedActions()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read action queue")
	}

	for _, action := range actions {
		alog := log.WithActionID(action.ID)

		if action.Kind != types.ActionCreateAlert {
			alog.Warn().Str("kind", string(action.Kind)).Msg("unknown action kind, dead-lettering")
			s.retire(action, "unknown action kind")
			res.DeadLettered++
			continue
		}

		confirmed, err := s.backend.CreateAlert(ctx, action.Payload)
		if err != nil {
			res.Failed++
			metrics.ActionsFailedTotal.Inc()
			action.Attempts++
			if action.Attempts >= s.maxAttempts {
				alog.Warn().Err(err).Int("attempts", action.Attempts).
					Msg("replay attempts exhausted, dead-lettering")
				s.retire(action, err.Error())
				res.DeadLettered++
			} else {
				alog.Warn().Err(err).Int("attempts", action.Attempts).
					Msg("replay failed, action stays queued")
				if uerr := s.store.UpdateQueuedAction(action); uerr != nil {
					alog.Error().Err(uerr).Msg("failed to persist attempt count")
				}
			}
			continue
		}

		// Backend confirmed; the locally-pending copy is replaced, not merged
		s.alerts.Confirm(action.PendingAlertID, confirmed)
		if err := s.store.RemoveQueuedAction(action.ID); err != nil {
			alog.Error().Err(err).Msg("failed to remove replayed action")
		}
		res.Replayed++
		metrics.ActionsReplayedTotal.Inc()
		alog.Info().Int64("alert_id", confirmed.ID).Msg("queued alert created on backend")
	}

	res.Refreshed = s.refresh(ctx)
	s.updateGauges()
	return res
}

// retire moves an action to the dead letter and drops its pending alert
func (s *Syncer) retire(action *types.OfflineAction, reason string) {
	if err := s.store.DeadLetter(action, reason); err != nil {
		alog := log.WithActionID(action.ID)
		alog.Error().Err(err).Msg("failed to dead-letter action")
		return
	}
	metrics.ActionsDeadLetteredTotal.Inc()
	s.alerts.Remove(action.PendingAlertID)
}

// refresh replaces the cache and store with the authoritative backend list.
// A failing fetch leaves the previously cached snapshot in place
func (s *Syncer) refresh(ctx context.Context) bool {
	alerts, err := s.backend.ListAlerts(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache refresh failed, keeping stale snapshot")
		return false
	}

	if err := s.store.CacheAlerts(alerts); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist cache snapshot")
	}
	s.alerts.Replace(alerts)

	// Re-surface still-queued pending alerts hidden by the wholesale replace
	actions, err := s.store.QueuedActions()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to re-read action queue")
		return true
	}
	for _, action := range actions {
		pending := storage.PendingAlertFromAction(action)
		s.alerts.Upsert(pending)
		if err := s.store.AddAlertToCache(pending); err != nil {
			s.logger.Error().Err(err).Int64("alert_id", pending.ID).
				Msg("failed to re-cache pending alert")
		}
	}
	return true
}

// CreateAlert creates an alert through the backend when online, or stages a
// synthetic pending alert plus a queued action when offline or when the
// backend call fails. The returned bool reports whether the creation was
// queued for later replay
func (s *Syncer) CreateAlert(ctx context.Context, req types.CreateAlertRequest) (*types.Alert, bool) {
	if s.online == nil || s.online() {
		confirmed, err := s.backend.CreateAlert(ctx, req)
		if err == nil {
			if cerr := s.store.AddAlertToCache(confirmed); cerr != nil {
				s.logger.Error().Err(cerr).Msg("failed to cache created alert")
			}
			s.alerts.Upsert(confirmed)
			return confirmed, false
		}
		s.logger.Warn().Err(err).Msg("create failed, queueing for later replay")
	}

	pending := storage.BuildPendingAlert(req)
	if _, err := s.store.QueueCreateAlert(req, pending.ID); err != nil {
		s.logger.Error().Err(err).Msg("failed to queue offline creation")
	}
	if err := s.store.AddAlertToCache(pending); err != nil {
		s.logger.Error().Err(err).Msg("failed to cache pending alert")
	}
	s.alerts.Upsert(pending)
	s.updateGauges()
	return pending, true
}

func (s *Syncer) updateGauges() {
	if n, err := s.store.QueueLength(); err == nil {
		metrics.QueueLength.Set(float64(n))
	}
	if n, err := s.store.CacheSize(); err == nil {
		metrics.CachedAlerts.Set(float64(n))
	}
	if dead, err := s.store.DeadLetteredActions(); err == nil {
		metrics.DeadLetterLength.Set(float64(len(dead)))
	}
}
