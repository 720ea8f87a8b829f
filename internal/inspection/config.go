package inspection

import (
	"context"
	"fmt"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/service"
	"github.com/autopeer-io/atsinspect/internal/inspection/notifier"
	"github.com/autopeer-io/atsinspect/internal/inspection/server"
	"github.com/autopeer-io/atsinspect/internal/inspection/store/memory"
	"github.com/autopeer-io/atsinspect/internal/inspection/store/postgres"
	"github.com/autopeer-io/atsinspect/pkg/log"
	"github.com/autopeer-io/atsinspect/pkg/mqtt"
	"github.com/autopeer-io/atsinspect/pkg/options"
)

type Config struct {
	HttpOptions     *options.HttpOptions
	MqttOptions     *options.MqttOptions
	PostgresOptions *options.PostgresOptions
	StoreOptions    *options.StoreOptions
}

// NewInspectionServer wires the record store, the event notifier and the
// inspection service behind the HTTP API.
func (cfg *Config) NewInspectionServer(ctx context.Context) (*InspectionServer, error) {
	// 1. Infrastructure: record store (Secondary Adapter)
	store, err := cfg.newStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	// 2. Infrastructure: event notifier (Secondary Adapter)
	var (
		eventNotifier core.EventNotifier = core.NopNotifier{}
		publisher     mqtt.Publisher
	)
	if cfg.MqttOptions.Enabled {
		publisher, err = mqtt.NewPublisher(cfg.MqttOptions.ToClientConfig())
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
		eventNotifier = notifier.NewMQTTNotifier(publisher, cfg.MqttOptions.TopicRoot, cfg.MqttOptions.QoS)
	} else {
		log.Info("MQTT event publishing disabled")
	}

	// 3. Core domain service
	svc := service.New(store, eventNotifier)

	// 4. Ingress servers (Primary Adapters)
	srvManager := server.NewManager(&server.Config{HttpOptions: cfg.HttpOptions}, svc)

	return &InspectionServer{
		serverManager: srvManager,
		store:         store,
		publisher:     publisher,
	}, nil
}

func (cfg *Config) newStore(ctx context.Context) (core.Store, error) {
	switch cfg.StoreOptions.Backend {
	case options.StorePostgres:
		return postgres.Open(ctx, cfg.PostgresOptions, nil)
	case options.StoreMemory:
		log.Warn("Using the in-memory record store, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreOptions.Backend)
	}
}
