package warehouse

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/malbeclabs/databricks-mcp/internal/metrics"
)

const (
	DefaultMaxRows = 1000
)

// Opener creates the connection pool. It is called on first use.
type Opener func() (*sql.DB, error)

type Config struct {
	Logger *slog.Logger
	Open   Opener

	// DefaultCatalog is only used to build corrective hints for failed
	// queries; statements are never rewritten.
	DefaultCatalog string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Open == nil {
		return fmt.Errorf("opener is required")
	}
	return nil
}

// Warehouse owns the single connection pool shared by all tool calls. The pool
// is opened lazily and is safe for concurrent use; database/sql multiplexes
// calls over its connections.
type Warehouse struct {
	log *slog.Logger
	cfg Config

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

func New(cfg Config) (*Warehouse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate warehouse config: %w", err)
	}
	return &Warehouse{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// conn returns the shared pool, opening it on first use. A failed open is not
// cached so a later call can try again.
func (w *Warehouse) conn() (*sql.DB, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, &Error{Kind: KindConnection, Message: "warehouse connection unavailable", Err: ErrClosed}
	}
	if w.db != nil {
		return w.db, nil
	}

	w.log.Debug("warehouse: opening connection")
	db, err := w.cfg.Open()
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: "failed to open warehouse connection", Err: err}
	}
	metrics.WarehouseConnectionsOpened.Inc()
	w.db = db
	w.log.Info("warehouse: connection opened")
	return db, nil
}

// Opened reports whether the pool has been created.
func (w *Warehouse) Opened() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db != nil
}

func (w *Warehouse) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	if err != nil {
		return fmt.Errorf("failed to close warehouse connection: %w", err)
	}
	w.log.Info("warehouse: connection closed")
	return nil
}
