package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "databricks_mcp_build_info",
			Help: "Build information of the Databricks MCP server",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databricks_mcp_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "databricks_mcp_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 0.01s to ~41s
		},
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databricks_mcp_auth_failures_total",
			Help: "Total number of authentication failures",
		},
		[]string{"reason"},
	)

	// ToolCallsTotal is labelled with "success" or the error kind.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databricks_mcp_tool_calls_total",
			Help: "Total number of tool calls",
		},
		[]string{"tool_name", "status"},
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "databricks_mcp_tool_call_duration_seconds",
			Help:    "Duration of tool calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 0.01s to ~164s
		},
		[]string{"tool_name"},
	)

	QueryRowsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "databricks_mcp_query_rows_returned",
			Help:    "Number of rows returned per query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16384
		},
	)

	QueriesTruncatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "databricks_mcp_queries_truncated_total",
			Help: "Total number of query results truncated at max_rows",
		},
	)

	WarehouseConnectionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "databricks_mcp_warehouse_connections_opened_total",
			Help: "Total number of warehouse connection pools opened",
		},
	)
)
