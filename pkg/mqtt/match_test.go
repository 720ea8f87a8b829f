package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"ats/v1/centers/C1/vehicles/+/events", "ats/v1/centers/C1/vehicles/REG-1/events", true},
		{"ats/v1/centers/C1/vehicles/+/events", "ats/v1/centers/C2/vehicles/REG-1/events", false},
		{"ats/v1/centers/C1/vehicles/+/events", "ats/v1/centers/C1/vehicles/REG-1/events/extra", false},
		{"ats/v1/centers/+/vehicles/+/events", "ats/v1/centers/C1/vehicles/REG-1/events", true},
		{"ats/v1/#", "ats/v1/centers/C1/vehicles/REG-1/events", true},
		{"ats/v1/centers/C1", "ats/v1/centers/C1", true},
		{"ats/v1/centers/C1", "ats/v1/centers/C2", false},
		{"$share/watchers/ats/v1/centers/+/vehicles/+/events", "ats/v1/centers/C9/vehicles/X/events", true},
		{"ats/+/centers", "ats/v1", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TopicMatches(tt.filter, tt.topic), "%s ~ %s", tt.filter, tt.topic)
	}
}
