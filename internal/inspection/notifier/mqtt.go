package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	pkgmqtt "github.com/autopeer-io/atsinspect/pkg/mqtt"
	"github.com/autopeer-io/atsinspect/pkg/mqtt/topic"
)

var _ core.EventNotifier = (*MQTTNotifier)(nil)

// MQTTNotifier publishes inspection events on a per-vehicle topic:
// {root}/centers/{centerID}/vehicles/{regnNo}/events
type MQTTNotifier struct {
	client pkgmqtt.Publisher
	topics *topic.TopicBuilder
	qos    int
}

// NewMQTTNotifier wraps a started publisher.
func NewMQTTNotifier(client pkgmqtt.Publisher, topicRoot string, qos int) *MQTTNotifier {
	return &MQTTNotifier{
		client: client,
		topics: topic.NewTopicBuilder(topicRoot),
		qos:    qos,
	}
}

func (n *MQTTNotifier) Notify(ctx context.Context, event *model.InspectionEvent) error {
	if !n.client.IsConnected() {
		return fmt.Errorf("publish %s event for %s: %w", event.Type, event.RegnNo, ErrDisconnected)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	t := n.topics.InspectionEvents(event.CenterID, event.RegnNo)
	if err := n.client.Publish(ctx, t, n.qos, false, payload); err != nil {
		return fmt.Errorf("publish %s event to %s: %w", event.Type, t, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (n *MQTTNotifier) Close(ctx context.Context) {
	n.client.Disconnect(ctx)
}
