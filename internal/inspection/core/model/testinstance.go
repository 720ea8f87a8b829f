package model

import "time"

// InstanceStatus is the lifecycle state of a test instance.
type InstanceStatus string

const (
	InstanceInProgress InstanceStatus = "IN_PROGRESS"
	InstanceCompleted  InstanceStatus = "COMPLETED"
)

// TestInstance is the overall inspection record of one cycle of a vehicle.
type TestInstance struct {
	ID           string         `json:"id"`
	BookingID    string         `json:"bookingId"`
	VehicleID    string         `json:"vehicleId"`
	VisualID     string         `json:"visualId"`
	FunctionalID string         `json:"functionalId"`
	Status       InstanceStatus `json:"status"`
	SubmittedBy  Inspector      `json:"submittedBy"`

	// Cycle counts the inspections of the vehicle, starting at 1.
	Cycle int `json:"cycle"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Open reports whether the instance still accepts completion.
func (t *TestInstance) Open() bool {
	return t.Status == InstanceInProgress
}

// Clone returns a deep copy.
func (t *TestInstance) Clone() *TestInstance {
	if t == nil {
		return nil
	}
	out := *t
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		out.CompletedAt = &c
	}
	return &out
}
