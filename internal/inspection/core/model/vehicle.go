package model

import "time"

// VehicleStatus is the inspection progress of a vehicle.
type VehicleStatus string

const (
	VehicleRegistered VehicleStatus = "REGISTERED"
	VehicleInProgress VehicleStatus = "IN_PROGRESS"
	VehicleCompleted  VehicleStatus = "COMPLETED"
)

// Vehicle represents a vehicle booked for inspection at a testing station.
type Vehicle struct {
	// ID is the internal identifier.
	ID string `json:"id"`

	// RegnNo is the registration number, unique across the store.
	RegnNo string `json:"regnNo"`

	BookingID string `json:"bookingId"`

	// CenterID is the testing station the vehicle is booked at.
	CenterID string `json:"centerId"`

	EngineNo  string `json:"engineNo,omitempty"`
	ChassisNo string `json:"chassisNo,omitempty"`

	Status VehicleStatus `json:"status"`

	// LaneExitTime is stamped when the inspection completes.
	LaneExitTime *time.Time `json:"laneExitTime,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (v *Vehicle) Clone() *Vehicle {
	if v == nil {
		return nil
	}
	out := *v
	if v.LaneExitTime != nil {
		t := *v.LaneExitTime
		out.LaneExitTime = &t
	}
	return &out
}
