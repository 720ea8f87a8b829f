package core

import (
	"context"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
)

// EventNotifier publishes lifecycle events after they are committed.
// In production this is implemented by the MQTT outbound adapter.
type EventNotifier interface {
	Notify(ctx context.Context, event *model.InspectionEvent) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *model.InspectionEvent) error { return nil }
