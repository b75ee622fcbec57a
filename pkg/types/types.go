package types

import (
	"time"
)

// Alert represents a reported road incident
type Alert struct {
	ID              int64       `json:"id"`
	Type            AlertType   `json:"type"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Severity        Severity    `json:"severity"`
	Status          AlertStatus `json:"status"`
	Latitude        float64     `json:"latitude"`
	Longitude       float64     `json:"longitude"`
	Location        string      `json:"location,omitempty"` // Free-text address
	Municipality    string      `json:"municipality,omitempty"`
	DurationMinutes int         `json:"estimated_duration_minutes,omitempty"`
	AffectedRoads   []string    `json:"affected_roads,omitempty"`
	ImageURL        string      `json:"image_url,omitempty"`
	Upvotes         int         `json:"upvotes"`
	Downvotes       int         `json:"downvotes"`
	CreatedAt       time.Time   `json:"created_at"`

	// Local-only flags, never sent to the backend
	Pending bool `json:"is_pending,omitempty"` // Created locally, not yet confirmed
	Offline bool `json:"is_offline,omitempty"` // Created while disconnected
}

// IsLocal reports whether the alert carries a synthetic local ID.
// Backend-assigned IDs are always positive.
func (a *Alert) IsLocal() bool {
	return a.ID < 0
}

// AlertType defines the incident category
type AlertType string

const (
	AlertTypeLandslide   AlertType = "landslide"
	AlertTypeAccident    AlertType = "accident"
	AlertTypeFlood       AlertType = "flood"
	AlertTypeClosure     AlertType = "closure"
	AlertTypeMaintenance AlertType = "maintenance"
)

// Valid reports whether the alert type is a known category
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeLandslide, AlertTypeAccident, AlertTypeFlood,
		AlertTypeClosure, AlertTypeMaintenance:
		return true
	}
	return false
}

// Severity is the ordered urgency classification of an alert
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordering of a severity (low=0 .. critical=3, unknown=-1)
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// Valid reports whether the severity is a known level
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// AlertStatus represents the lifecycle state of an alert
type AlertStatus string

const (
	AlertStatusActive     AlertStatus = "active"
	AlertStatusInProgress AlertStatus = "in-progress"
	AlertStatusResolved   AlertStatus = "resolved"
)

// CreateAlertRequest is the payload for creating a new alert
type CreateAlertRequest struct {
	Type            AlertType `json:"type"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Severity        Severity  `json:"severity"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	Location        string    `json:"location,omitempty"`
	Municipality    string    `json:"municipality,omitempty"`
	DurationMinutes int       `json:"estimated_duration_minutes,omitempty"`
	AffectedRoads   []string  `json:"affected_roads,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
}

// ActionKind defines the kind of deferred mutation
type ActionKind string

const (
	ActionCreateAlert ActionKind = "create-alert"
)

// OfflineAction is a deferred mutation awaiting replay against the backend
type OfflineAction struct {
	ID             string             `json:"id"` // Unique within the queue
	Kind           ActionKind         `json:"kind"`
	Payload        CreateAlertRequest `json:"payload"`
	PendingAlertID int64              `json:"pending_alert_id"` // Synthetic ID of the local alert
	Attempts       int                `json:"attempts"`         // Failed replay attempts so far
	EnqueuedAt     time.Time          `json:"enqueued_at"`
}

// DeadAction is an offline action retired from the queue after exhausting
// its replay attempts
type DeadAction struct {
	Action    OfflineAction `json:"action"`
	Reason    string        `json:"reason"`
	RetiredAt time.Time     `json:"retired_at"`
}

// ConnectionStatus represents the realtime connection state
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// EventType discriminates inbound realtime frames
type EventType string

const (
	EventAlertCreated   EventType = "alert.created"
	EventAlertUpdated   EventType = "alert.updated"
	EventAlertDeleted   EventType = "alert.deleted"
	EventAlertCommented EventType = "alert.commented"
	EventAlertVoted     EventType = "alert.voted"
)

// Valid reports whether the event type is part of the known set
func (t EventType) Valid() bool {
	switch t {
	case EventAlertCreated, EventAlertUpdated, EventAlertDeleted,
		EventAlertCommented, EventAlertVoted:
		return true
	}
	return false
}

// AlertEvent is a server-pushed alert lifecycle event
type AlertEvent struct {
	Type      EventType `json:"type"`
	Alert     *Alert    `json:"alert,omitempty"`
	AlertID   int64     `json:"alert_id,omitempty"` // Set for deletions
	Timestamp time.Time `json:"timestamp"`
}

// Comment represents a user comment on an alert
type Comment struct {
	ID        int64     `json:"id"`
	AlertID   int64     `json:"alert_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteDirection defines the direction of an alert vote
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)
