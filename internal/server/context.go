package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/tickmcp/internal/instrumentation"
	"github.com/teemow/tickmcp/internal/logging"
	"github.com/teemow/tickmcp/internal/ticktick"
)

// ErrShutdown is returned by Client once the context has been shut down.
var ErrShutdown = errors.New("server is shutting down")

// TaskClient is the part of the TickTick client the tools and resources use.
type TaskClient interface {
	GetProjects(ctx context.Context) ([]ticktick.Project, error)
	GetTasks(ctx context.Context) ([]ticktick.Task, error)
	CreateTask(ctx context.Context, input ticktick.TaskInput) (*ticktick.Task, error)
	CompleteTask(ctx context.Context, taskID, projectID string) (any, error)
	DeleteTask(ctx context.Context, taskID, projectID string) (any, error)
}

// ClientFactory creates the TaskClient on first use.
type ClientFactory func() (TaskClient, error)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	factory     ClientFactory
	client      TaskClient
	version     string
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	mu          sync.RWMutex
	shutdown    bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics sets the metrics recorder handed to tools.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger sets the audit logger for tool invocations.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithVersion sets the version reported by the server.
func WithVersion(version string) Option {
	return func(sc *ServerContext) {
		sc.version = version
	}
}

// NewServerContext creates a new server context. No client is created until
// a tool or resource asks for one.
func NewServerContext(ctx context.Context, factory ClientFactory, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		factory: factory,
		version: "dev",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the TickTick client, creating it on the first call. A failed
// creation is not remembered, so a token stored later is picked up.
func (sc *ServerContext) Client() (TaskClient, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.client != nil {
		return sc.client, nil
	}
	if sc.factory == nil {
		return nil, ticktick.ErrNoToken
	}

	client, err := sc.factory()
	if err != nil {
		sc.logger.Warn("failed to create TickTick client", logging.Err(err))
		return nil, err
	}

	sc.logger.Debug("created TickTick client")
	sc.client = client
	return client, nil
}

// HasClient reports whether the client has been created.
func (sc *ServerContext) HasClient() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.client != nil
}

// Version returns the server version.
func (sc *ServerContext) Version() string {
	return sc.version
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
