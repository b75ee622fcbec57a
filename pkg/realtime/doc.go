/*
Package realtime maintains the live WebSocket connection to the road-alert
event stream.

The realtime client subscribes to alert lifecycle events pushed by the
backend, delivers them to registered callbacks, and transparently recovers
from disconnects with linearly increasing backoff. Callers interact with a
small surface (Connect, Disconnect, Subscribe, SubscribeStatus, Send) and
never see the underlying socket.

# Architecture

	┌──────────────────── REALTIME CLIENT ─────────────────────┐
	│                                                           │
	│   Connect()                                               │
	│      │                                                    │
	│      ▼                                                    │
	│  ┌─────────────┐   dial ok   ┌─────────────┐             │
	│  │ connecting  ├────────────►│  connected  │             │
	│  └──────┬──────┘             └──────┬──────┘             │
	│         │ dial fails                │ read error         │
	│         ▼                           ▼                    │
	│  ┌─────────────┐   backoff   ┌──────────────┐            │
	│  │    error    ├────────────►│ disconnected │            │
	│  └─────────────┘  base × n   └──────┬───────┘            │
	│                                     │ Disconnect()       │
	│                                     ▼                    │
	│                              (no reconnect)              │
	│                                                           │
	│  While connected:                                         │
	│    - readLoop: decode frames, dispatch to subscribers     │
	│    - pingLoop: {"type":"PING"} every 30 seconds           │
	└───────────────────────────────────────────────────────────┘

# Wire Format

Inbound frames are JSON objects with a type discriminator and a payload:

	{"type": "alert.created", "data": {...alert...}, "timestamp": "..."}
	{"type": "alert.deleted", "data": {"id": 42}}
	{"type": "PONG"}

Deletion frames carry only the alert ID; every other alert event carries the
full alert record. Frames with an unknown type, or a payload that does not
decode, are dropped with a logged warning and counted, never dispatched.

# Reconnection

Backoff before reconnect attempt n is linear, not exponential:

	attempt 1: base × 1  (3s with the default base)
	attempt 2: base × 2  (6s)
	...
	attempt 5: base × 5  (15s)

After MaxAttempts consecutive failures (default 5) the client gives up and
stays disconnected until the next explicit Connect, which the connectivity
watcher issues when the backend becomes reachable again. A successful
connection resets the attempt counter.

Connect is idempotent: calling it while a socket is open or being opened is
a no-op, so overlapping triggers (startup, connectivity recovery, CLI) never
race into duplicate connections.

# Usage

	rt := realtime.NewClient(realtime.Config{
		URL:          "wss://backend.example.com/ws",
		PingInterval: 30 * time.Second,
		BaseDelay:    3 * time.Second,
		MaxAttempts:  5,
	})

	unsub := rt.Subscribe(types.EventAlertCreated, func(e *types.AlertEvent) {
		// apply to local state
	})
	defer unsub()

	rt.SubscribeStatus(func(s types.ConnectionStatus) {
		if s == types.StatusConnected {
			// trigger a sync pass
		}
	})

	rt.Connect()
	defer rt.Disconnect()

Delivery is synchronous and in registration order. A panicking subscriber is
recovered and logged; it never prevents delivery to later subscribers or
kills the read loop.

# Integration Points

  - pkg/types: event union and connection status definitions
  - pkg/connectivity: re-issues Connect when the backend comes back
  - pkg/syncer: a sync pass is triggered on transition to connected
  - pkg/metrics: connection gauge, reconnect and dropped-frame counters

# See Also

  - gorilla/websocket: https://github.com/gorilla/websocket
*/
package realtime
