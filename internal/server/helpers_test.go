package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/databricks-mcp/internal/warehouse"
)

// fakeWarehouse serves canned catalog metadata and query results.
type fakeWarehouse struct {
	mu      sync.Mutex
	columns map[string][]warehouse.Column // keyed by catalog.schema.table
	tables  map[string][]warehouse.Table  // keyed by catalog.schema
	results map[string]*warehouse.QueryResult
	queries []string
	maxRows []int
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		columns: map[string][]warehouse.Column{
			"main.default.users": {
				{Name: "id", Type: "bigint", Comment: "primary key"},
				{Name: "name", Type: "string"},
				{Name: "email", Type: "string"},
			},
		},
		tables: map[string][]warehouse.Table{
			"main.default": {
				{Name: "users"},
				{Name: "scratch", IsTemporary: true},
			},
			"main.empty": {},
		},
		results: map[string]*warehouse.QueryResult{
			"SELECT * FROM main.default.users LIMIT 10": {
				Columns: []string{"id", "name", "email"},
				Rows: []warehouse.Row{
					{"id": 1, "name": "Ada", "email": "ada@example.com"},
					{"id": 2, "name": "Grace", "email": "grace@example.com"},
				},
			},
		},
	}
}

func (f *fakeWarehouse) DescribeTable(_ context.Context, ref warehouse.TableRef) ([]warehouse.Column, error) {
	columns, ok := f.columns[ref.FullName()]
	if !ok {
		return nil, warehouse.Errorf(warehouse.KindNotFound, "table %s does not exist or is not visible to the current user", ref.FullName())
	}
	return columns, nil
}

func (f *fakeWarehouse) Query(_ context.Context, query string, maxRows int) (*warehouse.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.maxRows = append(f.maxRows, maxRows)
	f.mu.Unlock()

	result, ok := f.results[query]
	if !ok {
		return nil, &warehouse.Error{
			Kind:    warehouse.KindQuery,
			Message: "failed to execute query",
			Hint:    warehouse.NamingHint(query, "main", true),
			Err:     fmt.Errorf("[TABLE_OR_VIEW_NOT_FOUND] cannot be found"),
		}
	}
	if len(result.Rows) > maxRows {
		return &warehouse.QueryResult{Columns: result.Columns, Rows: result.Rows[:maxRows], Truncated: true}, nil
	}
	return result, nil
}

func (f *fakeWarehouse) ListTables(_ context.Context, catalog, schema string) ([]warehouse.Table, error) {
	tables, ok := f.tables[catalog+"."+schema]
	if !ok {
		return nil, warehouse.Errorf(warehouse.KindNotFound, "schema %s.%s does not exist or is not visible to the current user", catalog, schema)
	}
	return tables, nil
}

func (f *fakeWarehouse) lastMaxRows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.maxRows) == 0 {
		return 0
	}
	return f.maxRows[len(f.maxRows)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig(wh Warehouse) Config {
	return Config{
		Logger:         testLogger(),
		Clock:          clockwork.NewFakeClock(),
		Warehouse:      wh,
		Version:        "test",
		DefaultCatalog: "main",
		DefaultSchema:  "default",
	}
}

func testServer(t *testing.T, cfg Config) *Server {
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

// connect opens an in-memory client session to s.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	ctx := t.Context()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func decodeStructured[T any](t *testing.T, res *mcp.CallToolResult) T {
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}
