/*
Package types defines the core data structures shared across roadwatch.

All entities are plain structs with JSON tags matching the backend wire
format. Packages communicate through these types rather than defining their
own, keeping serialization consistent between the REST client, the realtime
stream, and the persistent cache.

# Entities

Alert:
  - A road incident report: type, severity, lifecycle status, location,
    votes, and timestamps
  - Backend-assigned IDs are positive; alerts created offline carry a
    negative synthetic ID until confirmed (IsLocal reports this)
  - Pending marks an alert awaiting backend confirmation; Offline marks
    one created without connectivity

OfflineAction:
  - A queued operation recorded while offline, replayed by the syncer
  - Carries its payload, attempt count, and the ID of the synthetic
    pending alert it will confirm
  - Kind is a closed enum; unknown kinds are retired, never replayed

DeadAction:
  - An OfflineAction that exhausted its replay attempts, wrapped with
    the failure reason and retirement time

AlertEvent:
  - One event from the realtime stream: a closed union over the five
    alert lifecycle event types
  - Deletion events carry only AlertID; all others carry the full Alert

# Enumerations

AlertType:     landslide, accident, flood, closure, maintenance
Severity:      low, medium, high, critical (Rank orders them)
AlertStatus:   active, in-progress, resolved
EventType:     alert.created, alert.updated, alert.deleted,
               alert.commented, alert.voted
ConnectionStatus: connected, connecting, disconnected, error

Enum types with a Valid method are closed sets: values outside the set are
rejected at the boundary (CLI flags, inbound frames) rather than carried
through the system.
*/
package types
