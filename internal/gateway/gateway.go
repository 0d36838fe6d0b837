// ABOUTME: Gateway orchestrator that wires the chat runner behind an HTTP server
// ABOUTME: Manages the FPL client, tool registry, metrics and server lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curphey/fpl-sub000/internal/agent"
	"github.com/curphey/fpl-sub000/internal/analytics"
	"github.com/curphey/fpl-sub000/internal/auth"
	"github.com/curphey/fpl-sub000/internal/builtins"
	"github.com/curphey/fpl-sub000/internal/config"
	"github.com/curphey/fpl-sub000/internal/fpl"
	"github.com/curphey/fpl-sub000/internal/mcp"
	"github.com/curphey/fpl-sub000/internal/packs"
)

// DefaultKeepAlive is how often an idle chat stream gets a comment frame.
const DefaultKeepAlive = 15 * time.Second

// Gateway serves the chat API.
type Gateway struct {
	config     *config.Config
	runner     *agent.Runner
	registry   *packs.Registry
	mcp        *mcp.Server
	metrics    *metrics
	prom       *prometheus.Registry
	httpServer *http.Server
	logger     *slog.Logger

	// keepAlive is the comment interval on open streams; zero disables it.
	keepAlive time.Duration

	// closers release components owned by the gateway, in order.
	closers []func()
}

// Deps are the collaborators a Gateway is assembled from. New builds them
// from configuration; tests supply their own.
type Deps struct {
	Model     agent.Model
	Data      agent.DataSource
	Fetcher   builtins.Fetcher
	Analytics builtins.Analytics
}

// New creates a Gateway backed by the live FPL API and the Anthropic model.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	fplClient := fpl.NewClient(fpl.ClientConfig{
		BaseURL:           cfg.FPL.BaseURL,
		RequestsPerSecond: cfg.FPL.RequestsPerSecond,
		Burst:             cfg.FPL.Burst,
		CacheTTL:          cfg.FPL.CacheTTL,
		Logger:            logger,
	})

	model := agent.NewAnthropicModel(agent.AnthropicConfig{
		APIKey:         cfg.Anthropic.APIKey,
		BaseURL:        cfg.Anthropic.BaseURL,
		Model:          cfg.Anthropic.Model,
		MaxTokens:      cfg.Anthropic.MaxTokens,
		ThinkingBudget: cfg.Anthropic.ThinkingBudget,
		MaxRetries:     cfg.Anthropic.MaxRetries,
		Logger:         logger,
	})
	if cfg.Anthropic.APIKey == "" {
		logger.Warn("no anthropic api key configured - requests must carry their own apiKey")
	}

	gw, err := NewWithDeps(cfg, Deps{
		Model:     model,
		Data:      fpl.NewSnapshotProvider(fplClient, cfg.FPL.BootstrapTTL, logger),
		Fetcher:   fplClient,
		Analytics: analytics.New(),
	}, logger)
	if err != nil {
		fplClient.Close()
		return nil, err
	}
	gw.closers = append(gw.closers, fplClient.Close)
	return gw, nil
}

// NewWithDeps creates a Gateway from explicit collaborators.
func NewWithDeps(cfg *config.Config, deps Deps, logger *slog.Logger) (*Gateway, error) {
	if deps.Model == nil {
		return nil, errors.New("gateway: model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	prom := prometheus.NewRegistry()
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := packs.NewRegistry(logger.With("component", "pack-registry"))
	if err := builtins.RegisterAll(registry, deps.Analytics, deps.Fetcher); err != nil {
		return nil, fmt.Errorf("registering builtin packs: %w", err)
	}

	dispatcher := packs.NewDispatcher(packs.DispatcherConfig{
		Registry:    registry,
		Logger:      logger.With("component", "dispatcher"),
		Timeout:     cfg.Tools.Timeout,
		Concurrency: cfg.Tools.Concurrency,
		Metrics:     packs.NewMetrics(prom),
	})

	runner := agent.NewRunner(agent.RunnerConfig{
		Model:      deps.Model,
		Registry:   registry,
		Dispatcher: dispatcher,
		Data:       deps.Data,
		System:     cfg.Anthropic.SystemPrompt,
		MaxTurns:   cfg.Anthropic.MaxTurns,
		Logger:     logger,
	})

	gw := &Gateway{
		config:    cfg,
		runner:    runner,
		registry:  registry,
		metrics:   newMetrics(prom),
		prom:      prom,
		logger:    logger.With("component", "gateway"),
		keepAlive: DefaultKeepAlive,
	}

	if cfg.MCP.Enabled {
		var verifier auth.TokenVerifier
		if secret := cfg.Auth.JWTSecret; secret != "" {
			verifier = auth.NewJWTVerifier([]byte(secret))
		}
		mcpServer, err := mcp.NewServer(mcp.Config{
			Registry:      registry,
			Dispatcher:    dispatcher,
			Data:          deps.Data,
			Logger:        logger.With("component", "mcp"),
			TokenVerifier: verifier,
			RequireAuth:   cfg.Auth.Required,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		gw.mcp = mcpServer
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// routes builds the HTTP mux.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	// Health endpoint - no auth required
	mux.HandleFunc("/health", g.handleHealth)

	chat := http.Handler(http.HandlerFunc(g.handleChat))
	if secret := g.config.Auth.JWTSecret; secret != "" {
		verifier := auth.NewJWTVerifier([]byte(secret))
		if g.config.Auth.Required {
			chat = auth.HTTPAuthMiddleware(verifier)(chat)
			g.logger.Info("HTTP auth middleware enabled")
		} else {
			chat = auth.OptionalAuthMiddleware(verifier)(chat)
			g.logger.Info("HTTP auth optional - tokens supply manager ids")
		}
	} else {
		g.logger.Warn("HTTP auth disabled - no jwt_secret configured")
	}
	mux.Handle("/api/chat", chat)
	mux.HandleFunc("/api/tools", g.handleListTools)

	if g.mcp != nil {
		g.mcp.RegisterRoutes(mux)
		g.logger.Info("MCP endpoint enabled", "path", "/mcp")
	}

	if g.config.Metrics.Enabled {
		mux.Handle(g.config.Metrics.Path, promhttp.HandlerFor(g.prom, promhttp.HandlerOpts{}))
	}

	return mux
}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Registry returns the tool registry.
func (g *Gateway) Registry() *packs.Registry {
	return g.registry
}

// startServer starts the HTTP server in a goroutine, returning an error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	for _, closeFn := range g.closers {
		closeFn()
	}
	g.closers = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
