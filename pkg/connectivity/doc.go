/*
Package connectivity tracks backend reachability with a periodic health probe.

The watcher probes the backend health endpoint on a fixed interval (default
15 seconds) and publishes edge-triggered online/offline transitions to its
subscribers. Subscribers only hear about changes; a backend that stays up
for an hour produces exactly one notification, not 240.

The first probe runs immediately on Start so the initial state is known
without waiting a full interval, and always notifies so subscribers learn
the starting state. Until that first probe completes the watcher reports
offline, which keeps the syncer from attempting replays against a backend
nobody has seen yet.

# Usage

	watcher := connectivity.NewWatcher(backendClient, 15*time.Second)
	watcher.Subscribe(func(online bool) {
		if online {
			rt.Connect()
			go sync.Sync(context.Background())
		}
	})
	watcher.Start()
	defer watcher.Stop()

The Prober interface is satisfied by the backend client's Health method;
tests substitute fakes.
*/
package connectivity
