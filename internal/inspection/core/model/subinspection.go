package model

import (
	"maps"
	"time"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
)

// SubInspection is the result set of one category of rule checks.
type SubInspection struct {
	ID        string           `json:"id"`
	Category  catalog.Category `json:"category"`
	BookingID string           `json:"bookingId"`
	VehicleID string           `json:"vehicleId"`

	// Cycle ties the record to a test instance of the same cycle.
	Cycle int `json:"cycle"`

	Results     map[string]catalog.Value `json:"results"`
	IsCompleted bool                     `json:"isCompleted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSubInspection returns a record with every catalog rule NotAssessed.
func NewSubInspection(id string, c catalog.Category, v *Vehicle, cycle int, now time.Time) *SubInspection {
	return &SubInspection{
		ID:        id,
		Category:  c,
		BookingID: v.BookingID,
		VehicleID: v.ID,
		Cycle:     cycle,
		Results:   catalog.Blank(c),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Set overwrites one rule result.
func (s *SubInspection) Set(ruleID string, v catalog.Value) {
	if s.Results == nil {
		s.Results = map[string]catalog.Value{}
	}
	s.Results[ruleID] = v
}

// Pending reports whether ruleID has not been assessed. A rule missing from
// the result set counts as not assessed.
func (s *SubInspection) Pending(ruleID string) bool {
	v, ok := s.Results[ruleID]
	return !ok || v == catalog.NotAssessed
}

// RefreshFunctionalCompletion recomputes IsCompleted from the functional
// rule identifiers: the record is complete once none of them is pending.
func (s *SubInspection) RefreshFunctionalCompletion() {
	for _, id := range catalog.FunctionalRules() {
		if s.Pending(id) {
			s.IsCompleted = false
			return
		}
	}
	s.IsCompleted = true
}

// Clone returns a deep copy.
func (s *SubInspection) Clone() *SubInspection {
	if s == nil {
		return nil
	}
	out := *s
	out.Results = maps.Clone(s.Results)
	return &out
}
