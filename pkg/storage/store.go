package storage

import (
	"github.com/roadwatch/roadwatch/pkg/types"
)

// Store defines the interface for local offline state: the bounded alert
// snapshot and the deferred-action queue.
// This is implemented by BoltDB-backed storage
type Store interface {
	// Alert cache
	CachedAlerts() ([]*types.Alert, error)
	CacheAlerts(alerts []*types.Alert) error
	AddAlertToCache(alert *types.Alert) error
	CacheSize() (int, error)

	// Offline action queue
	QueueCreateAlert(req types.CreateAlertRequest, pendingAlertID int64) (*types.OfflineAction, error)
	QueuedActions() ([]*types.OfflineAction, error)
	UpdateQueuedAction(action *types.OfflineAction) error
	RemoveQueuedAction(id string) error
	ClearQueue() error
	QueueLength() (int, error)

	// Dead letter
	DeadLetter(action *types.OfflineAction, reason string) error
	DeadLetteredActions() ([]*types.DeadAction, error)
	ClearDeadLetter() error

	// Utility
	Close() error
}
