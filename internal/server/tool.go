package server

import (
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/databricks-mcp/config"
	"github.com/malbeclabs/databricks-mcp/internal/metrics"
	"github.com/malbeclabs/databricks-mcp/internal/warehouse"
)

// toolEnv is shared by every tool.
type toolEnv struct {
	log   *slog.Logger
	clock clockwork.Clock
	wh    Warehouse

	defaultCatalog string
	defaultSchema  string
}

func newToolEnv(cfg Config) toolEnv {
	return toolEnv{
		log:            cfg.Logger,
		clock:          cfg.Clock,
		wh:             cfg.Warehouse,
		defaultCatalog: cfg.DefaultCatalog,
		defaultSchema:  cfg.DefaultSchema,
	}
}

// namespace resolves catalog and schema arguments against the configured
// defaults.
func (e toolEnv) namespace(catalog, schema string) (string, string, error) {
	catalog = strings.TrimSpace(catalog)
	if catalog == "" {
		catalog = e.defaultCatalog
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = e.defaultSchema
	}

	var missing []string
	if catalog == "" {
		missing = append(missing, config.EnvCatalog)
	}
	if schema == "" {
		missing = append(missing, config.EnvSchema)
	}
	if len(missing) > 0 {
		return "", "", warehouse.Errorf(warehouse.KindConfiguration,
			"no catalog or schema given and no default configured; pass them explicitly or set %s", strings.Join(missing, ", "))
	}
	return catalog, schema, nil
}

// observe records the outcome of a tool call. Failures are labelled with
// their error kind.
func (e toolEnv) observe(tool string, start time.Time, err error) {
	duration := e.clock.Since(start)
	status := "success"
	if err != nil {
		status = string(warehouse.KindOf(err))
		e.log.Warn("mcp/tool: call failed", "tool", tool, "kind", status, "duration", duration, "error", err)
	} else {
		e.log.Debug("mcp/tool: call completed", "tool", tool, "duration", duration)
	}
	metrics.ToolCallsTotal.WithLabelValues(tool, status).Inc()
	metrics.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}
