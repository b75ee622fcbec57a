package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/roadwatch/roadwatch/pkg/log"
	"github.com/roadwatch/roadwatch/pkg/types"
)

var (
	// Bucket names
	bucketAlerts     = []byte("alerts")
	bucketActions    = []byte("actions")
	bucketDeadLetter = []byte("deadletter")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db       *bolt.DB
	capacity int
	logger   zerolog.Logger
}

// NewBoltStore creates a new BoltDB-backed store. capacity bounds the alert
// cache; entries beyond it are evicted oldest-first
func NewBoltStore(dataDir string, capacity int) (*BoltStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}

	dbPath := filepath.Join(dataDir, "roadwatch.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketAlerts,
			bucketActions,
			bucketDeadLetter,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{
		db:       db,
		capacity: capacity,
		logger:   log.WithComponent("storage"),
	}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// seqKey encodes a position as a big-endian key so cursor order matches
// insertion order
func seqKey(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}

// --- Alert cache ---

// CachedAlerts returns the cached snapshot, most-recent-first. Entries that
// fail to decode are skipped, not surfaced as errors
func (s *BoltStore) CachedAlerts() ([]*types.Alert, error) {
	var alerts []*types.Alert
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAlerts)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var alert types.Alert
			if err := json.Unmarshal(v, &alert); err != nil {
				s.logger.Warn().Err(err).Msg("skipping corrupt cached alert")
				continue
			}
			alerts = append(alerts, &alert)
		}
		return nil
	})
	return alerts, err
}

// CacheAlerts replaces the stored snapshot wholesale, truncated to the
// cache capacity
func (s *BoltStore) CacheAlerts(alerts []*types.Alert) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketAlerts); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketAlerts)
		if err != nil {
			return err
		}
		return writeAlerts(b, alerts, s.capacity)
	})
}

// AddAlertToCache inserts or replaces (by ID) at the front of the snapshot,
// re-applying the capacity cap
func (s *BoltStore) AddAlertToCache(alert *types.Alert) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAlerts)

		existing := make([]*types.Alert, 0, s.capacity)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var a types.Alert
			if err := json.Unmarshal(v, &a); err != nil {
				continue
			}
			if a.ID == alert.ID {
				continue // Replaced by the front insert
			}
			existing = append(existing, &a)
		}

		if err := tx.DeleteBucket(bucketAlerts); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketAlerts)
		if err != nil {
			return err
		}
		return writeAlerts(b, append([]*types.Alert{alert}, existing...), s.capacity)
	})
}

// CacheSize returns the number of cached alerts
func (s *BoltStore) CacheSize() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketAlerts).Stats().KeyN
		return nil
	})
	return n, err
}

func writeAlerts(b *bolt.Bucket, alerts []*types.Alert, capacity int) error {
	if len(alerts) > capacity {
		alerts = alerts[:capacity]
	}
	for i, alert := range alerts {
		data, err := json.Marshal(alert)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(uint64(i)), data); err != nil {
			return err
		}
	}
	return nil
}

// --- Offline action queue ---

// QueueCreateAlert appends a create-alert action to the persisted queue and
// returns it. pendingAlertID links the action to the synthetic local alert
// it will eventually replace
func (s *BoltStore) QueueCreateAlert(req types.CreateAlertRequest, pendingAlertID int64) (*types.OfflineAction, error) {
	action := &types.OfflineAction{
		ID:             newActionID(),
		Kind:           types.ActionCreateAlert,
		Payload:        req,
		PendingAlertID: pendingAlertID,
		EnqueuedAt:     time.Now(),
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(action)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

// QueuedActions returns all pending actions in enqueue order
func (s *BoltStore) QueuedActions() ([]*types.OfflineAction, error) {
	var actions []*types.OfflineAction
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActions)
		return b.ForEach(func(k, v []byte) error {
			var action types.OfflineAction
			if err := json.Unmarshal(v, &action); err != nil {
				s.logger.Warn().Err(err).Msg("skipping corrupt queued action")
				return nil
			}
			actions = append(actions, &action)
			return nil
		})
	})
	return actions, err
}

// UpdateQueuedAction rewrites a queued action in place, preserving its
// queue position
func (s *BoltStore) UpdateQueuedAction(action *types.OfflineAction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActions)
		key := findActionKey(b, action.ID)
		if key == nil {
			return fmt.Errorf("action not found: %s", action.ID)
		}
		data, err := json.Marshal(action)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// RemoveQueuedAction deletes an action from the queue by ID
func (s *BoltStore) RemoveQueuedAction(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActions)
		key := findActionKey(b, id)
		if key == nil {
			return fmt.Errorf("action not found: %s", id)
		}
		return b.Delete(key)
	})
}

// ClearQueue removes all pending actions
func (s *BoltStore) ClearQueue() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketActions); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketActions)
		return err
	})
}

// QueueLength returns the number of pending actions
func (s *BoltStore) QueueLength() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketActions).Stats().KeyN
		return nil
	})
	return n, err
}

func findActionKey(b *bolt.Bucket, id string) []byte {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var action types.OfflineAction
		if err := json.Unmarshal(v, &action); err != nil {
			continue
		}
		if action.ID == id {
			key := make([]byte, len(k))
			copy(key, k)
			return key
		}
	}
	return nil
}

// --- Dead letter ---

// DeadLetter retires an action from the queue after it has exhausted its
// replay attempts
func (s *BoltStore) DeadLetter(action *types.OfflineAction, reason string) error {
	dead := &types.DeadAction{
		Action:    *action,
		Reason:    reason,
		RetiredAt: time.Now(),
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		actions := tx.Bucket(bucketActions)
		if key := findActionKey(actions, action.ID); key != nil {
			if err := actions.Delete(key); err != nil {
				return err
			}
		}

		b := tx.Bucket(bucketDeadLetter)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(dead)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// DeadLetteredActions returns all retired actions in retirement order
func (s *BoltStore) DeadLetteredActions() ([]*types.DeadAction, error) {
	var dead []*types.DeadAction
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeadLetter)
		return b.ForEach(func(k, v []byte) error {
			var d types.DeadAction
			if err := json.Unmarshal(v, &d); err != nil {
				s.logger.Warn().Err(err).Msg("skipping corrupt dead-lettered action")
				return nil
			}
			dead = append(dead, &d)
			return nil
		})
	})
	return dead, err
}

// ClearDeadLetter removes all retired actions
func (s *BoltStore) ClearDeadLetter() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketDeadLetter); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketDeadLetter)
		return err
	})
}
