package atsctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/pkg/mqtt"
	"github.com/autopeer-io/atsinspect/pkg/mqtt/topic"
)

type watchOptions struct {
	broker    string
	username  string
	password  string
	topicRoot string
	qos       int
}

// newMQTTClient is replaced in tests.
var newMQTTClient = mqtt.NewClient

func newWatchCommand(o *globalOptions) *cobra.Command {
	wo := &watchOptions{
		broker:    "tcp://localhost:1883",
		topicRoot: "ats/v1",
		qos:       1,
	}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream the inspection events of your center from the MQTT broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			center := o.v.GetString("center")
			if center == "" {
				return fmt.Errorf("--center is required")
			}
			return watch(cmd.Context(), o.out, wo, center)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&wo.broker, "broker", wo.broker, "The URL of the MQTT broker.")
	fs.StringVar(&wo.username, "mqtt-username", wo.username, "The username for MQTT authentication.")
	fs.StringVar(&wo.password, "mqtt-password", wo.password, "The password for MQTT authentication.")
	fs.StringVar(&wo.topicRoot, "topic-root", wo.topicRoot, "Topic prefix of inspection events.")
	fs.IntVar(&wo.qos, "qos", wo.qos, "Subscription QoS.")
	return cmd
}

func watch(ctx context.Context, out io.Writer, wo *watchOptions, center string) error {
	client, err := newMQTTClient(&mqtt.ClientConfig{
		BrokerURL:      wo.broker,
		ClientID:       "atsctl-watch-" + uuid.NewString()[:8],
		Username:       wo.username,
		Password:       wo.password,
		KeepAlive:      30,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	})
	if err != nil {
		return err
	}

	if err := client.Start(ctx); err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client.Disconnect(dctx)
	}()

	if err := client.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", wo.broker, err)
	}

	var mu sync.Mutex
	filter := topic.NewTopicBuilder(wo.topicRoot).CenterEventsWildcard(center)
	err = client.Subscribe(ctx, filter, wo.qos, func(_ context.Context, t string, payload []byte) {
		var e model.InspectionEvent
		line := ""
		if err := json.Unmarshal(payload, &e); err != nil {
			line = fmt.Sprintf("undecodable event on %s: %v", t, err)
		} else {
			line = formatEvent(&e)
		}

		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, line)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Watching %s\n", filter)
	<-ctx.Done()
	return nil
}

func formatEvent(e *model.InspectionEvent) string {
	return fmt.Sprintf("%s  %-9s  %-12s  instance=%s cycle=%d status=%s inspector=%s",
		e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.RegnNo, e.InstanceID, e.Cycle, e.Status, e.Inspector.Name)
}
