package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/atsinspect/internal/inspection/server/http"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

// Server defines the common interface for all sub-servers.
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates a new server manager and initializes all sub-servers.
func NewManager(cfg *Config, svc http.InspectionService) *Manager {
	return &Manager{
		servers: []Server{http.NewServer(cfg.HttpOptions, svc)},
	}
}

// Add registers an extra server run alongside the protocol servers.
func (m *Manager) Add(s Server) {
	m.servers = append(m.servers, s)
}

// Start launches all servers in parallel and waits for termination. The
// first failing server stops the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
