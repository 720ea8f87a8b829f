package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/metrics"
	"github.com/autopeer-io/atsinspect/pkg/log"
	"github.com/autopeer-io/atsinspect/pkg/options"
)

type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

func NewServer(opts *options.HttpOptions, svc InspectionService) *Server {
	return &Server{
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      NewRouter(svc),
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		options: opts,
	}
}

// NewRouter builds the API routes, the probes and the metrics endpoint.
func NewRouter(svc InspectionService) *mux.Router {
	h := &handlers{svc: svc}

	r := mux.NewRouter()
	r.Use(requestID, accessLog)

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ready(r.Context()); err != nil {
			log.C(r.Context()).Warn("Readiness check failed", "error", err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	anyone := authenticate()
	technician := authenticate(model.RoleTechnician)
	registrar := authenticate(model.RoleTechnician, model.RoleAdmin)

	route := func(path, method string, mw mux.MiddlewareFunc, fn http.HandlerFunc) {
		api.Handle(path, mw(fn)).Methods(method)
	}

	route("/vehicles", http.MethodPost, registrar, h.registerVehicle)
	route("/vehicles/{regnNo}", http.MethodGet, anyone, h.getVehicle)
	route("/rules/{category}", http.MethodGet, anyone, h.rules)

	route("/tests/start", http.MethodPost, technician, h.start)
	route("/tests/visual/pending", http.MethodGet, anyone, h.pendingVisual)
	route("/tests/visual/submit", http.MethodPost, technician, h.submitVisual)
	route("/tests/functional/pending/{rule}", http.MethodGet, anyone, h.pendingFunctional)
	route("/tests/functional/submit", http.MethodPost, technician, h.submitFunctional)
	route("/tests/center/all", http.MethodGet, anyone, h.listByCenter)
	route("/tests/complete", http.MethodPost, technician, h.complete)
	route("/tests/{regnNo}/status", http.MethodGet, anyone, h.status)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP Server", "timeout", s.options.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
