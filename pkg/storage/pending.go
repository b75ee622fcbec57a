package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roadwatch/roadwatch/pkg/types"
)

// DefaultLocation is used when a creation payload omits the free-text address
const DefaultLocation = "Location not specified"

// BuildPendingAlert constructs a synthetic alert from a creation payload so
// it can be displayed before the backend assigns a permanent ID. The ID is
// negative, derived from the current time; backend IDs are always positive
func BuildPendingAlert(req types.CreateAlertRequest) *types.Alert {
	location := req.Location
	if location == "" {
		location = DefaultLocation
	}

	return &types.Alert{
		ID:              -time.Now().UnixMilli(),
		Type:            req.Type,
		Title:           req.Title,
		Description:     req.Description,
		Severity:        req.Severity,
		Status:          types.AlertStatusActive,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Location:        location,
		Municipality:    req.Municipality,
		DurationMinutes: req.DurationMinutes,
		AffectedRoads:   req.AffectedRoads,
		ImageURL:        req.ImageURL,
		CreatedAt:       time.Now(),
		Pending:         true,
		Offline:         true,
	}
}

// PendingAlertFromAction reconstructs the synthetic local alert a queued
// action refers to, so it stays visible after the cache snapshot has been
// replaced wholesale
func PendingAlertFromAction(action *types.OfflineAction) *types.Alert {
	alert := BuildPendingAlert(action.Payload)
	alert.ID = action.PendingAlertID
	alert.CreatedAt = action.EnqueuedAt
	return alert
}

// newActionID builds a queue-unique action ID from the enqueue time plus a
// random suffix
func newActionID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
