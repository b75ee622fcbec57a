package alertstore

import (
	"sort"
	"sync"

	"github.com/roadwatch/roadwatch/pkg/types"
)

// Store is the shared in-memory alert container. All mutations are simple
// replace or merge operations; there are no transaction semantics and
// concurrent writers are last-write-wins
type Store struct {
	mu     sync.RWMutex
	alerts map[int64]*types.Alert
}

// New creates an empty alert store
func New() *Store {
	return &Store{
		alerts: make(map[int64]*types.Alert),
	}
}

// Replace swaps the entire contents for the given list
func (s *Store) Replace(alerts []*types.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = make(map[int64]*types.Alert, len(alerts))
	for _, alert := range alerts {
		s.alerts[alert.ID] = alert
	}
}

// Upsert inserts or replaces a single alert by ID
func (s *Store) Upsert(alert *types.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = alert
}

// Confirm replaces a locally-pending alert with the backend-assigned record.
// The pending copy is removed outright, never merged
func (s *Store) Confirm(pendingID int64, confirmed *types.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.alerts, pendingID)
	s.alerts[confirmed.ID] = confirmed
}

// Remove deletes an alert by ID
func (s *Store) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alerts, id)
}

// ApplyEvent merges a server-pushed alert event into the store
func (s *Store) ApplyEvent(ev *types.AlertEvent) {
	switch ev.Type {
	case types.EventAlertCreated, types.EventAlertUpdated,
		types.EventAlertCommented, types.EventAlertVoted:
		if ev.Alert != nil {
			s.Upsert(ev.Alert)
		}
	case types.EventAlertDeleted:
		id := ev.AlertID
		if id == 0 && ev.Alert != nil {
			id = ev.Alert.ID
		}
		s.Remove(id)
	}
}

// Get returns an alert by ID, or nil if absent
func (s *Store) Get(id int64) *types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts[id]
}

// List returns all alerts, most recently created first
func (s *Store) List() []*types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*types.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		list = append(list, alert)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Active returns alerts whose status is active, most recent first
func (s *Store) Active() []*types.Alert {
	all := s.List()
	active := make([]*types.Alert, 0, len(all))
	for _, alert := range all {
		if alert.Status == types.AlertStatusActive {
			active = append(active, alert)
		}
	}
	return active
}

// Len returns the number of stored alerts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}
