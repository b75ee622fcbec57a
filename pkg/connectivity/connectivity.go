package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadwatch/roadwatch/pkg/log"
	"github.com/roadwatch/roadwatch/pkg/metrics"
)

// Prober checks backend reachability. Satisfied by the backend client's
// Health method
type Prober interface {
	Health(ctx context.Context) error
}

// Watcher periodically probes the backend and publishes edge-triggered
// online/offline transitions, the process analog of the browser's
// online/offline events
type Watcher struct {
	probe    Prober
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	online  bool
	known   bool // False until the first probe completes
	subs    []subscription
	nextID  int
	stopCh  chan struct{}
	stopped sync.Once
}

type subscription struct {
	id int
	fn func(online bool)
}

// NewWatcher creates a connectivity watcher probing on the given interval
func NewWatcher(probe Prober, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{
		probe:    probe,
		interval: interval,
		logger:   log.WithComponent("connectivity"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the probe loop
func (w *Watcher) Start() {
	go w.run()
}

// Stop stops the probe loop
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		close(w.stopCh)
	})
}

// Online reports the last known connectivity state. Before the first probe
// completes the watcher reports offline
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Subscribe registers a callback for connectivity transitions and returns an
// unsubscribe function. Callbacks fire only when the state changes
func (w *Watcher) Subscribe(fn func(online bool)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.subs = append(w.subs, subscription{id: id, fn: fn})
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, sub := range w.subs {
			if sub.id == id {
				w.subs = append(w.subs[:i], w.subs[i+1:]...)
				return
			}
		}
	}
}

func (w *Watcher) run() {
	// Probe immediately so the first state is known without waiting a full
	// interval
	w.check()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	err := w.probe.Health(ctx)
	online := err == nil

	w.mu.Lock()
	changed := !w.known || w.online != online
	w.online = online
	w.known = true
	subs := make([]subscription, len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	if !changed {
		return
	}

	if online {
		metrics.UpdateComponent("backend", true, "reachable")
		w.logger.Info().Msg("backend reachable")
	} else {
		metrics.UpdateComponent("backend", false, err.Error())
		w.logger.Warn().Err(err).Msg("backend unreachable")
	}

	for _, sub := range subs {
		sub.fn(online)
	}
}
