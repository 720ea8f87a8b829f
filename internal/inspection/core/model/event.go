package model

import "time"

// EventType names a lifecycle event published after commit.
type EventType string

const (
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
)

// InspectionEvent is the payload sent to subscribers of a center.
type InspectionEvent struct {
	Type       EventType      `json:"type"`
	RegnNo     string         `json:"regnNo"`
	BookingID  string         `json:"bookingId"`
	CenterID   string         `json:"centerId"`
	InstanceID string         `json:"instanceId"`
	Cycle      int            `json:"cycle"`
	Status     InstanceStatus `json:"status"`
	Inspector  Inspector      `json:"inspector"`
	OccurredAt time.Time      `json:"occurredAt"`
}
