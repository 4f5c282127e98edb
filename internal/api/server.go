package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/almue/almue-core/internal/audit"
	"github.com/almue/almue-core/internal/device"
	"github.com/almue/almue-core/internal/infrastructure/config"
	"github.com/almue/almue-core/internal/infrastructure/logging"
	"github.com/almue/almue-core/internal/protocol"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Dispatcher executes commands. *controller.Controller satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd protocol.Command, source string) error
}

// HistoryReader reads device state history.
type HistoryReader interface {
	GetHistory(ctx context.Context, deviceID string, limit int) ([]device.StateHistoryEntry, error)
}

// AuditLister lists command audit entries.
type AuditLister interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// HealthChecker is implemented by the infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Site     config.SiteConfig
	Logger   *logging.Logger
	Registry *device.Registry

	// Dispatcher is required for command ingress; without it the command
	// endpoint answers 503.
	Dispatcher Dispatcher

	// Optional stores. Their endpoints answer 503 when nil.
	History HistoryReader
	Audit   AuditLister

	// Checks are reported by the health endpoint under their map key.
	Checks map[string]HealthChecker

	// Broker and Jobs add their sections to the metrics endpoint.
	Broker BrokerStats
	Jobs   JobCounter

	// Hub is used instead of creating one, so configsync can be wired
	// to it before the server starts.
	Hub *Hub

	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	site       config.SiteConfig
	logger     *logging.Logger
	registry   *device.Registry
	dispatcher Dispatcher
	history    HistoryReader
	audit      AuditLister
	checks     map[string]HealthChecker
	broker     BrokerStats
	jobs       JobCounter
	version    string
	startTime  time.Time
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		site:       deps.Site,
		logger:     deps.Logger,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		history:    deps.History,
		audit:      deps.Audit,
		checks:     deps.Checks,
		broker:     deps.Broker,
		jobs:       deps.Jobs,
		version:    deps.Version,
		startTime:  time.Now(),
		hub:        deps.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	s.hub.SetSnapshot(func() []DeviceView { return s.deviceViews("", "") })
	return s, nil
}

// Start launches the HTTP listener in a background goroutine.
// ctx bounds the hub; the listener runs until Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
