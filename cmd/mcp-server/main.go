package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/databricks-mcp/config"
	"github.com/malbeclabs/databricks-mcp/internal/metrics"
	"github.com/malbeclabs/databricks-mcp/internal/server"
	"github.com/malbeclabs/databricks-mcp/internal/warehouse"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultTransport   = string(server.TransportStdio)
	defaultListenAddr  = "0.0.0.0:8010"
	defaultMetricsAddr = ""

	envAllowedTokens = "MCP_ALLOWED_TOKENS"
	envAuthDisabled  = "MCP_AUTH_DISABLED"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	transportFlag := flag.String("transport", defaultTransport, "MCP transport (stdio, http)")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP server listen address (http transport only)")
	envFileFlag := flag.String("env-file", config.DefaultEnvFile, "Path to a .env file with DATABRICKS_* variables; existing environment variables take precedence")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics (empty disables)")
	enablePprofFlag := flag.Bool("enable-pprof", false, "enable pprof server")
	flag.Parse()

	// stdout carries the stdio transport, so logs go to stderr.
	log := newLogger(*verboseFlag)

	if err := config.LoadEnvFile(*envFileFlag, flag.CommandLine.Changed("env-file")); err != nil {
		return err
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log.Info("config: databricks connection", "config", cfg.Redacted())

	ctx, cancel := signalContext()
	defer cancel()

	if *enablePprofFlag {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			err := http.ListenAndServe("localhost:6060", nil)
			if err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	var metricsServerErrCh = make(chan error, 1)
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				metricsServerErrCh <- err
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			if err := http.Serve(listener, newMetricsMux()); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
				metricsServerErrCh <- err
				return
			}
		}()
	}

	wh, err := warehouse.New(warehouse.Config{
		Logger:         log,
		Open:           warehouse.DatabricksOpener(cfg),
		DefaultCatalog: cfg.DefaultCatalog,
	})
	if err != nil {
		return fmt.Errorf("failed to create warehouse: %w", err)
	}
	defer func() {
		if err := wh.Close(); err != nil {
			log.Error("failed to close warehouse", "error", err)
		}
	}()

	transport := server.Transport(*transportFlag)
	var allowedTokens []string
	if transport == server.TransportHTTP {
		allowedTokens = allowedTokensFromEnv(log)
	}

	srv, err := server.New(server.Config{
		Logger:         log,
		Clock:          clockwork.NewRealClock(),
		Warehouse:      wh,
		Version:        version,
		DefaultCatalog: cfg.DefaultCatalog,
		DefaultSchema:  cfg.DefaultSchema,
		Transport:      transport,
		ListenAddr:     *listenAddrFlag,
		AllowedTokens:  allowedTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("server: shutting down", "reason", ctx.Err())
		// Let the transport finish its own shutdown.
		return <-serverErrCh
	case err := <-serverErrCh:
		if err != nil {
			log.Error("server: server error causing shutdown", "error", err)
		}
		return err
	case err := <-metricsServerErrCh:
		log.Error("server: metrics server error causing shutdown", "error", err)
		return err
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newMetricsMux serves /metrics only. pprof registers itself on
// http.DefaultServeMux, which is reserved for --enable-pprof.
func newMetricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// allowedTokensFromEnv parses the comma separated bearer tokens accepted by
// the http transport. Auth can be explicitly disabled with
// MCP_AUTH_DISABLED=true.
func allowedTokensFromEnv(log *slog.Logger) []string {
	if os.Getenv(envAuthDisabled) == "true" {
		log.Info("mcp server: authentication explicitly disabled")
		return nil
	}

	var tokens []string
	for token := range strings.SplitSeq(os.Getenv(envAllowedTokens), ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) > 0 {
		log.Info("mcp server: token authentication enabled", "token_count", len(tokens))
	} else {
		log.Warn("mcp server: authentication disabled (no tokens configured)")
	}
	return tokens
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
