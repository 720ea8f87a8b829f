package topic

import (
	"strings"
)

// Topic segments of the inspection event namespace.
// Subscribers depend on these values.
const (
	SegmentCenters  = "centers"
	SegmentVehicles = "vehicles"
	SegmentEvents   = "events"

	// Wildcard is the single-level wildcard "+".
	Wildcard = "+"
)

// TopicBuilder encapsulates the logic for constructing MQTT topic strings.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "ats/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.TrimSuffix(root, "/")}
}

// InspectionEvents returns the topic carrying lifecycle events of one vehicle.
// Pattern: {root}/centers/{centerID}/vehicles/{regnNo}/events
func (b *TopicBuilder) InspectionEvents(centerID, regnNo string) string {
	return b.build(SegmentCenters, escape(centerID), SegmentVehicles, escape(regnNo), SegmentEvents)
}

// CenterEventsWildcard returns the filter matching every vehicle of a center.
// Result: {root}/centers/{centerID}/vehicles/+/events
func (b *TopicBuilder) CenterEventsWildcard(centerID string) string {
	return b.build(SegmentCenters, escape(centerID), SegmentVehicles, Wildcard, SegmentEvents)
}

func (b *TopicBuilder) build(parts ...string) string {
	return b.root + "/" + strings.Join(parts, "/")
}

var escaper = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// escape keeps identifiers from introducing extra levels or wildcards.
func escape(s string) string {
	return escaper.Replace(s)
}
