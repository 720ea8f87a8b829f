package atsctl

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/pkg/mqtt"
)

type fakeClient struct {
	mqtt.Client
	payloads [][]byte
	filter   string
	stop     context.CancelFunc
}

func (f *fakeClient) Start(context.Context) error           { return nil }
func (f *fakeClient) AwaitConnection(context.Context) error { return nil }
func (f *fakeClient) Disconnect(context.Context)            {}

func (f *fakeClient) Subscribe(ctx context.Context, topic string, _ int, h mqtt.MessageHandler) error {
	f.filter = topic
	for _, p := range f.payloads {
		h(ctx, "ats/v1/centers/C1/vehicles/REG-001/events", p)
	}
	f.stop()
	return nil
}

func TestWatchPrintsCenterEvents(t *testing.T) {
	payload, err := json.Marshal(&model.InspectionEvent{
		Type:       model.EventCompleted,
		RegnNo:     "REG-001",
		InstanceID: "t1",
		Cycle:      1,
		Status:     model.InstanceCompleted,
		Inspector:  model.Inspector{Name: "Ravi"},
		OccurredAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakeClient{payloads: [][]byte{payload, []byte("{")}, stop: cancel}
	orig := newMQTTClient
	newMQTTClient = func(*mqtt.ClientConfig) (mqtt.Client, error) { return fake, nil }
	t.Cleanup(func() { newMQTTClient = orig })

	var out bytes.Buffer
	cmd := NewCommand(&out)
	cmd.SetArgs([]string{"--center", "C1", "watch", "--topic-root", "ats/v1"})
	require.NoError(t, Execute(ctx, cmd))

	assert.Equal(t, "ats/v1/centers/C1/vehicles/+/events", fake.filter)
	assert.Contains(t, out.String(), "2026-03-14T09:30:00Z  completed  REG-001")
	assert.Contains(t, out.String(), "inspector=Ravi")
	assert.Contains(t, out.String(), "undecodable event")
}

func TestWatchNeedsCenter(t *testing.T) {
	cmd := NewCommand(&bytes.Buffer{})
	cmd.SetArgs([]string{"watch"})
	assert.ErrorContains(t, Execute(context.Background(), cmd), "--center")
}
