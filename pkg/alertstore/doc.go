/*
Package alertstore holds the in-memory working set of road alerts.

The store is a mutex-guarded map keyed by alert ID, primed from the
persistent cache at startup and kept current by realtime events and sync
passes. Reads return copies sorted most recent first, so callers can render
or print without holding any lock.

Pending alerts created offline live here under their negative synthetic IDs
until the backend confirms them; Confirm atomically swaps the pending record
for the backend-assigned one. ApplyEvent folds a realtime event into the
map, treating every non-deletion event as an upsert of the carried alert.
*/
package alertstore
