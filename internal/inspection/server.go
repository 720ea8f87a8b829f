package inspection

import (
	"context"
	"time"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/server"
	"github.com/autopeer-io/atsinspect/pkg/log"
	"github.com/autopeer-io/atsinspect/pkg/mqtt"
)

// InspectionServer runs the API until its context is canceled.
type InspectionServer struct {
	serverManager *server.Manager
	store         core.Store
	// publisher is nil when event publishing is disabled.
	publisher mqtt.Publisher
}

func (s *InspectionServer) Run(ctx context.Context) error {
	defer s.close()

	if s.publisher != nil {
		// The connection is retried in the background; events raised while
		// it is down are dropped and counted.
		if err := s.publisher.Start(ctx); err != nil {
			return err
		}
	}

	return s.serverManager.Start(ctx)
}

func (s *InspectionServer) close() {
	if s.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.publisher.Disconnect(ctx)
	}
	if err := s.store.Close(); err != nil {
		log.Error(err, "Failed to close record store")
	}
	log.Info("Inspection server stopped")
}
