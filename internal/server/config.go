package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/databricks-mcp/internal/warehouse"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Warehouse is the subset of *warehouse.Warehouse used by the tools.
type Warehouse interface {
	DescribeTable(ctx context.Context, ref warehouse.TableRef) ([]warehouse.Column, error)
	Query(ctx context.Context, query string, maxRows int) (*warehouse.QueryResult, error)
	ListTables(ctx context.Context, catalog, schema string) ([]warehouse.Table, error)
}

type Config struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Warehouse Warehouse

	Version string

	// Fallbacks for tools called without catalog or schema.
	DefaultCatalog string
	DefaultSchema  string

	Transport         Transport
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	AllowedTokens     []string // Bearer tokens accepted by the HTTP transport; empty disables auth
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Warehouse == nil {
		return fmt.Errorf("warehouse is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	switch c.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.ListenAddr == "" {
			return fmt.Errorf("listen address is required for the http transport")
		}
	default:
		return fmt.Errorf("unsupported transport %q (want %q or %q)", c.Transport, TransportStdio, TransportHTTP)
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return nil
}
