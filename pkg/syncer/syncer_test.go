package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/roadwatch/pkg/alertstore"
	"github.com/roadwatch/roadwatch/pkg/log"
	"github.com/roadwatch/roadwatch/pkg/storage"
	"github.com/roadwatch/roadwatch/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// fakeBackend records create calls and serves them back from its list, like
// a real backend would
type fakeBackend struct {
	mu            sync.Mutex
	created       []types.CreateAlertRequest
	createdAlerts []*types.Alert
	nextID        int64

	failTitles map[string]bool // Creates for these titles fail
	listResult []*types.Alert
	listErr    error

	// When set, CreateAlert blocks until the gate closes and signals entry
	gate    chan struct{}
	entered chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 100, failTitles: make(map[string]bool)}
}

func (f *fakeBackend) CreateAlert(ctx context.Context, req types.CreateAlertRequest) (*types.Alert, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failTitles[req.Title] {
		return nil, fmt.Errorf("simulated network error")
	}

	f.created = append(f.created, req)
	f.nextID++
	alert := &types.Alert{
		ID:        f.nextID,
		Type:      req.Type,
		Title:     req.Title,
		Severity:  req.Severity,
		Status:    types.AlertStatusActive,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		CreatedAt: time.Now(),
	}
	f.createdAlerts = append(f.createdAlerts, alert)
	return alert, nil
}

func (f *fakeBackend) ListAlerts(ctx context.Context) ([]*types.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append(append([]*types.Alert{}, f.listResult...), f.createdAlerts...), nil
}

func (f *fakeBackend) createdTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	titles := make([]string, 0, len(f.created))
	for _, req := range f.created {
		titles = append(titles, req.Title)
	}
	return titles
}

func newTestSyncer(t *testing.T, backend Backend, cfg Config) (*Syncer, *storage.BoltStore, *alertstore.Store) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), 120)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	alerts := alertstore.New()
	return New(store, backend, alerts, cfg), store, alerts
}

func request(title string) types.CreateAlertRequest {
	return types.CreateAlertRequest{
		Type:      types.AlertTypeAccident,
		Title:     title,
		Severity:  types.SeverityHigh,
		Latitude:  1.21,
		Longitude: -77.28,
	}
}

func TestSyncSkipsWhenOffline(t *testing.T) {
	backend := newFakeBackend()
	s, store, _ := newTestSyncer(t, backend, Config{Online: func() bool { return false }})

	_, err := store.QueueCreateAlert(request("queued"), -1)
	require.NoError(t, err)

	res := s.Sync(context.Background())
	assert.True(t, res.Skipped)
	assert.Equal(t, "offline", res.SkipReason)
	assert.Empty(t, backend.createdTitles())

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncReplaysInEnqueueOrder(t *testing.T) {
	backend := newFakeBackend()
	s, store, _ := newTestSyncer(t, backend, Config{})

	for _, title := range []string{"A1", "A2", "A3"} {
		_, err := store.QueueCreateAlert(request(title), -1)
		require.NoError(t, err)
	}

	res := s.Sync(context.Background())
	assert.Equal(t, 3, res.Replayed)
	assert.Equal(t, []string{"A1", "A2", "A3"}, backend.createdTitles())

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSyncPartialFailureLeavesFailedActionQueued(t *testing.T) {
	backend := newFakeBackend()
	backend.failTitles["A2"] = true
	s, store, alerts := newTestSyncer(t, backend, Config{MaxAttempts: 5})

	a1Pending := storage.BuildPendingAlert(request("A1"))
	_, err := store.QueueCreateAlert(request("A1"), a1Pending.ID)
	require.NoError(t, err)
	_, err = store.QueueCreateAlert(request("A2"), -2)
	require.NoError(t, err)
	a3Pending := storage.BuildPendingAlert(request("A3"))
	_, err = store.QueueCreateAlert(request("A3"), a3Pending.ID)
	require.NoError(t, err)

	res := s.Sync(context.Background())
	assert.Equal(t, 2, res.Replayed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, res.DeadLettered)

	// A1 and A3 were sent despite A2 failing between them
	assert.Equal(t, []string{"A1", "A3"}, backend.createdTitles())

	actions, err := store.QueuedActions()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "A2", actions[0].Payload.Title)
	assert.Equal(t, 1, actions[0].Attempts)

	// Confirmed records replaced their pending copies in the store
	assert.Nil(t, alerts.Get(a1Pending.ID))
	assert.Nil(t, alerts.Get(a3Pending.ID))
}

func TestSyncDeadLettersAfterMaxAttempts(t *testing.T) {
	backend := newFakeBackend()
	backend.failTitles["doomed"] = true
	s, store, alerts := newTestSyncer(t, backend, Config{MaxAttempts: 3})

	pending := storage.BuildPendingAlert(request("doomed"))
	alerts.Upsert(pending)
	_, err := store.QueueCreateAlert(request("doomed"), pending.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res := s.Sync(context.Background())
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, 0, res.DeadLettered)
	}

	res := s.Sync(context.Background())
	assert.Equal(t, 1, res.DeadLettered)

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	dead, err := store.DeadLetteredActions()
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "doomed", dead[0].Action.Payload.Title)
	assert.Equal(t, 3, dead[0].Action.Attempts)

	// The stale pending alert is dropped with its action
	assert.Nil(t, alerts.Get(pending.ID))

	// No further replay attempts for a dead-lettered action
	res = s.Sync(context.Background())
	assert.Equal(t, 0, res.Failed)
}

func TestSyncRefreshReplacesCacheWholesale(t *testing.T) {
	backend := newFakeBackend()
	backend.listResult = []*types.Alert{
		{ID: 1, Title: "server one", Status: types.AlertStatusActive, CreatedAt: time.Now()},
		{ID: 2, Title: "server two", Status: types.AlertStatusActive, CreatedAt: time.Now()},
	}
	s, store, alerts := newTestSyncer(t, backend, Config{})

	require.NoError(t, store.CacheAlerts([]*types.Alert{
		{ID: 99, Title: "stale", CreatedAt: time.Now()},
	}))

	res := s.Sync(context.Background())
	assert.True(t, res.Refreshed)

	cached, err := store.CachedAlerts()
	require.NoError(t, err)
	require.Len(t, cached, 2)
	assert.Equal(t, int64(1), cached[0].ID)

	assert.Equal(t, 2, alerts.Len())
	assert.Nil(t, alerts.Get(99))
}

func TestSyncRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	backend := newFakeBackend()
	backend.listErr = fmt.Errorf("backend down")
	s, store, _ := newTestSyncer(t, backend, Config{})

	require.NoError(t, store.CacheAlerts([]*types.Alert{
		{ID: 5, Title: "stale but present", CreatedAt: time.Now()},
	}))

	res := s.Sync(context.Background())
	assert.False(t, res.Refreshed)

	cached, err := store.CachedAlerts()
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, int64(5), cached[0].ID)
}

func TestSyncResurfacesQueuedPendingAfterRefresh(t *testing.T) {
	backend := newFakeBackend()
	backend.failTitles["still queued"] = true
	backend.listResult = []*types.Alert{
		{ID: 1, Title: "server one", Status: types.AlertStatusActive, CreatedAt: time.Now()},
	}
	s, store, alerts := newTestSyncer(t, backend, Config{MaxAttempts: 5})

	pending := storage.BuildPendingAlert(request("still queued"))
	_, err := store.QueueCreateAlert(request("still queued"), pending.ID)
	require.NoError(t, err)

	s.Sync(context.Background())

	// The wholesale refresh must not hide the still-pending local alert
	got := alerts.Get(pending.ID)
	require.NotNil(t, got)
	assert.True(t, got.Pending)

	cached, err := store.CachedAlerts()
	require.NoError(t, err)
	ids := make([]int64, 0, len(cached))
	for _, a := range cached {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, pending.ID)
}

func TestSyncMutualExclusion(t *testing.T) {
	backend := newFakeBackend()
	backend.gate = make(chan struct{})
	backend.entered = make(chan struct{}, 1)
	s, store, _ := newTestSyncer(t, backend, Config{})

	_, err := store.QueueCreateAlert(request("slow"), -1)
	require.NoError(t, err)

	done := make(chan Result, 1)
	go func() {
		done <- s.Sync(context.Background())
	}()

	// Wait until the first pass is inside the backend call, then try again
	<-backend.entered
	second := s.Sync(context.Background())
	assert.True(t, second.Skipped)
	assert.Equal(t, "in_progress", second.SkipReason)

	close(backend.gate)
	first := <-done
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, first.Replayed)

	// Exactly one pass touched the backend
	assert.Equal(t, []string{"slow"}, backend.createdTitles())
}

func TestCreateAlertOnlineRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	s, store, alerts := newTestSyncer(t, backend, Config{Online: func() bool { return true }})

	alert, queued := s.CreateAlert(context.Background(), request("immediate"))
	assert.False(t, queued)
	assert.Positive(t, alert.ID)
	assert.False(t, alert.Pending)

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NotNil(t, alerts.Get(alert.ID))
}

func TestCreateAlertFallsBackToQueueOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failTitles["flaky"] = true
	s, store, _ := newTestSyncer(t, backend, Config{Online: func() bool { return true }})

	alert, queued := s.CreateAlert(context.Background(), request("flaky"))
	assert.True(t, queued)
	assert.Negative(t, alert.ID)
	assert.True(t, alert.Pending)

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOfflineCreationThenReconnect(t *testing.T) {
	backend := newFakeBackend()
	online := false
	s, store, alerts := newTestSyncer(t, backend, Config{Online: func() bool { return online }})

	// Offline creation stages a synthetic local alert and one queued action
	alert, queued := s.CreateAlert(context.Background(), request("X"))
	assert.True(t, queued)
	assert.Negative(t, alert.ID)
	assert.True(t, alert.Pending)
	assert.True(t, alert.Offline)

	cached, err := store.CachedAlerts()
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, alert.ID, cached[0].ID)

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Connectivity returns; exactly one create call replays the action
	online = true
	res := s.Sync(context.Background())
	assert.Equal(t, 1, res.Replayed)
	assert.Equal(t, []string{"X"}, backend.createdTitles())

	n, err = store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The pending alert is replaced by the backend-assigned record
	assert.Nil(t, alerts.Get(alert.ID))
	confirmed := alerts.List()
	require.Len(t, confirmed, 1)
	assert.Positive(t, confirmed[0].ID)
	assert.False(t, confirmed[0].Pending)
}
