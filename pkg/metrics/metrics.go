package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Offline state metrics
	QueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadwatch_queue_length",
			Help: "Number of offline actions awaiting replay",
		},
	)

	DeadLetterLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadwatch_deadletter_length",
			Help: "Number of offline actions retired after exhausting replay attempts",
		},
	)

	CachedAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadwatch_cached_alerts",
			Help: "Number of alerts in the local cache snapshot",
		},
	)

	// Sync metrics
	SyncPassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadwatch_sync_passes_total",
			Help: "Total number of completed sync passes",
		},
	)

	SyncSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadwatch_sync_skipped_total",
			Help: "Sync passes skipped by reason (offline, in_progress)",
		},
		[]string{"reason"},
	)

	ActionsReplayedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadwatch_actions_replayed_total",
			Help: "Total number of queued actions successfully replayed",
		},
	)

	ActionsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadwatch_actions_failed_total",
			Help: "Total number of failed replay attempts",
		},
	)

	ActionsDeadLetteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadwatch_actions_deadlettered_total",
			Help: "Total number of actions retired to the dead letter",
		},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roadwatch_sync_duration_seconds",
			Help:    "Duration of sync passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Realtime metrics
	ConnectionUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadwatch_realtime_connected",
			Help: "Whether the realtime connection is open (1 = connected)",
		},
	)

	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadwatch_realtime_reconnects_total",
			Help: "Total number of scheduled reconnect attempts",
		},
	)

	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadwatch_realtime_events_total",
			Help: "Total number of realtime events received by type",
		},
		[]string{"type"},
	)

	FramesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadwatch_realtime_frames_dropped_total",
			Help: "Total number of inbound frames dropped as unparseable or unknown",
		},
	)
)

func init() {
	prometheus.MustRegister(
		QueueLength,
		DeadLetterLength,
		CachedAlerts,
		SyncPassesTotal,
		SyncSkippedTotal,
		ActionsReplayedTotal,
		ActionsFailedTotal,
		ActionsDeadLetteredTotal,
		SyncDuration,
		ConnectionUp,
		ReconnectsTotal,
		EventsReceivedTotal,
		FramesDroppedTotal,
	)
}
