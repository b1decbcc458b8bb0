// Package http exposes the orchestrator's REST API: the device-facing poll
// protocol (heartbeat, sensor reports, command poll/ack) and the
// operator-facing actuator control surface.
package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/growhub-io/growhub/internal/orchestrator/feed"
	"github.com/growhub-io/growhub/internal/orchestrator/liveness"
	"github.com/growhub-io/growhub/internal/orchestrator/queue"
	"github.com/growhub-io/growhub/internal/orchestrator/registry"
	"github.com/growhub-io/growhub/internal/orchestrator/store"
	"github.com/growhub-io/growhub/pkg/log"
	genericoptions "github.com/growhub-io/growhub/pkg/options"
)

// Server is the orchestrator HTTP server.
type Server struct {
	server  *http.Server
	options *genericoptions.HTTPOptions

	registry *registry.Registry
	queue    *queue.Queue
	monitor  *liveness.Monitor
	feed     *feed.Store
	store    *store.Store

	logger log.Logger
}

// NewServer wires the API routes over the engine components.
func NewServer(opts *genericoptions.HTTPOptions, reg *registry.Registry, q *queue.Queue, mon *liveness.Monitor, snaps *feed.Store, st *store.Store) *Server {
	s := &Server{
		options:  opts,
		registry: reg,
		queue:    q,
		monitor:  mon,
		feed:     snaps,
		store:    st,
		logger:   log.WithName("http"),
	}

	r := mux.NewRouter()

	// Probes and telemetry.
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Operator surface.
	api.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.handleGetDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/audit", s.handleAuditTrail).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/actuators/{kind}/state", s.handleSetState).Methods(http.MethodPut)
	api.HandleFunc("/devices/{id}/actuators/{kind}/mode", s.handleSetMode).Methods(http.MethodPut)

	// Device surface (poll protocol).
	api.HandleFunc("/devices/{id}/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/sensors", s.handleSensorReport).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/commands", s.handlePollCommands).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/commands/{cid}/ack", s.handleAcknowledge).Methods(http.MethodPost)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return s
}

// Start serves until the context is cancelled, then drains gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	// Ready once the device catalog is loaded; a dead database fails the
	// next write loudly rather than flapping readiness.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
