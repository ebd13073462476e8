package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const implementationName = "Databricks MCP Server"

type Server struct {
	log      *slog.Logger
	cfg      Config
	mcp      *mcp.Server
	registry *Registry
	http     *http.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    implementationName,
		Version: cfg.Version,
	}, nil)

	registry := NewRegistry()
	for _, tool := range []Tool{
		NewGetTableSchemaTool(cfg),
		NewExecuteSQLQueryTool(cfg),
		NewListTablesTool(cfg),
	} {
		if err := registry.Add(tool); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterAll(mcpServer); err != nil {
		return nil, err
	}

	s := &Server{
		log:      cfg.Logger,
		cfg:      cfg,
		mcp:      mcpServer,
		registry: registry,
	}

	if cfg.Transport == TransportHTTP {
		s.http = &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           s.Handler(),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			// Long enough for slow warehouse queries.
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   5 * time.Minute,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
	}

	return s, nil
}

// Tools returns the names of the registered tools.
func (s *Server) Tools() []string {
	return s.registry.Names()
}

// Handler serves the MCP streamable HTTP endpoint at "/" and a health check at
// "/healthz".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})

	var root http.Handler = s.metricsMiddleware(handler)
	if len(s.cfg.AllowedTokens) > 0 {
		root = s.authMiddleware(root)
	}
	mux.Handle("/", root)

	mux.Handle("/healthz", s.metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			s.log.Error("failed to write healthz response", "error", err)
		}
	})))
	return mux
}

// Run serves until ctx is canceled or the transport fails.
func (s *Server) Run(ctx context.Context) error {
	switch s.cfg.Transport {
	case TransportHTTP:
		return s.runHTTP(ctx)
	default:
		return s.runStdio(ctx)
	}
}

func (s *Server) runStdio(ctx context.Context) error {
	s.log.Info("server: mcp serving on stdio", "tools", s.Tools())
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	s.log.Info("server: stdio session ended")
	return nil
}

func (s *Server) runHTTP(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server: http server error", "error", err)
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.log.Info("server: mcp streamable http listening",
		"listenAddr", s.cfg.ListenAddr,
		"auth", len(s.cfg.AllowedTokens) > 0,
		"tools", s.Tools(),
	)

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping",
			"reason", ctx.Err(),
			"listenAddr", s.cfg.ListenAddr,
		)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		s.log.Info("server: HTTP server shutdown complete")
		return nil
	case err := <-serveErrCh:
		return err
	}
}
