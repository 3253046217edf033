package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/tickmcp/internal/auth"
	"github.com/teemow/tickmcp/internal/config"
	"github.com/teemow/tickmcp/internal/instrumentation"
	"github.com/teemow/tickmcp/internal/logging"
	"github.com/teemow/tickmcp/internal/resources"
	"github.com/teemow/tickmcp/internal/rpc"
	"github.com/teemow/tickmcp/internal/server"
	"github.com/teemow/tickmcp/internal/ticktick"
	"github.com/teemow/tickmcp/internal/tools/tasks_tools"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server on standard input/output.

Requests are read one JSON object per line from stdin and responses are
written one per line to stdout. Logs go to stderr. The server stops cleanly
when stdin is closed.

Access token resolution (first non-empty wins):
  --access-token or TICKMCP_ACCESS_TOKEN
  the token file written by 'tickmcp auth' (--token-file or TICKMCP_TOKEN_FILE)

Without a token the server still starts; tools report the missing token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().String("access-token", "", "TickTick access token. Can also use TICKMCP_ACCESS_TOKEN env var.")
	cmd.Flags().String("token-file", "", "Token file written by 'tickmcp auth' (default: user cache dir). Can also use TICKMCP_TOKEN_FILE env var.")
	cmd.Flags().String("base-url", "", "TickTick Open API base URL (default "+ticktick.DefaultBaseURL+"). Can also use TICKMCP_BASE_URL env var.")
	cmd.Flags().Bool("metrics", false, "Serve Prometheus metrics and health endpoints. Can also use TICKMCP_METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", "", "Metrics server address (default "+config.DefaultMetricsAddr+"). Can also use TICKMCP_METRICS_ADDR env var.")

	return cmd
}

// runServe runs the JSON-RPC loop until in is exhausted or ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer) error {
	logger, err := logging.New(cfg.LogLevel, errOut)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	provider, instrConfig, err := newInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	store, err := auth.NewFileTokenStore(cfg.TokenFile)
	if err != nil {
		return err
	}
	tokens := auth.Chain{auth.StaticToken(cfg.AccessToken), store}

	if token, err := tokens.LoadToken(); err != nil {
		logger.Warn("stored token is unreadable", slog.String("path", store.Path()), logging.Err(err))
	} else if token == "" {
		logger.Warn("no TickTick access token available; run 'tickmcp auth' or set TICKMCP_ACCESS_TOKEN")
	}

	metrics := provider.Metrics()
	factory := func() (server.TaskClient, error) {
		client, err := ticktick.NewClient("",
			ticktick.WithTokenLoader(tokens),
			ticktick.WithBaseURL(cfg.BaseURL),
			ticktick.WithMetrics(metrics),
			ticktick.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	auditLogger := instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	serverContext := server.NewServerContext(ctx, factory,
		server.WithVersion(version),
		server.WithMetrics(metrics),
		server.WithAuditLogger(auditLogger),
		server.WithLogger(logger),
	)
	defer func() {
		_ = serverContext.Shutdown()
	}()

	registry, err := buildRegistry(serverContext)
	if err != nil {
		return err
	}

	health := server.NewHealthChecker(serverContext,
		server.WithUpstream(cfg.BaseURL),
		server.WithTokenSources(
			server.TokenSource{Name: "access_token", Loader: auth.StaticToken(cfg.AccessToken)},
			server.TokenSource{Name: "token_file", Loader: store},
		),
	)
	if cfg.MetricsEnabled {
		metricsServer, err := startMetricsServer(cfg.MetricsAddr, provider, health, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	dispatcher := rpc.NewDispatcher(registry, version,
		rpc.WithMetrics(metrics),
		rpc.WithLogger(logger),
	)

	logger.Info("tickmcp MCP server started",
		slog.String("version", version),
		slog.String("base_url", cfg.BaseURL),
		slog.String("token_file", store.Path()),
	)

	// A blocked read on stdin cannot be interrupted, so a signal stops the
	// server without waiting for the loop.
	done := make(chan error, 1)
	go func() {
		done <- dispatcher.Serve(ctx, in, out)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = nil
	}
	health.SetReady(false)

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	logger.Info("tickmcp MCP server stopped")
	return nil
}

// buildRegistry registers every tool and resource in the order they are
// listed to hosts.
func buildRegistry(sc *server.ServerContext) (*rpc.Registry, error) {
	registry := rpc.NewRegistry()
	if err := tasks_tools.RegisterTasksTools(registry, sc); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := resources.RegisterResources(registry, sc); err != nil {
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}
	return registry, nil
}

// newInstrumentation creates the OpenTelemetry provider from the
// environment.
func newInstrumentation(ctx context.Context) (*instrumentation.Provider, instrumentation.Config, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, instrConfig, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, instrConfig, nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, health *server.HealthChecker, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
		HealthChecker:           health,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	return metricsServer, nil
}
