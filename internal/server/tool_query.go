package server

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/malbeclabs/databricks-mcp/internal/warehouse"
)

const executeSQLQueryToolName = "execute_sql_query"

type ExecuteSQLQueryInput struct {
	Query   string `json:"query" jsonschema:"SQL statement to execute; use three-part table names (catalog.schema.table)"`
	MaxRows int    `json:"max_rows,omitempty" jsonschema:"Maximum number of rows to return; defaults to 1000"`
}

type QueryRow map[string]any

type ExecuteSQLQueryOutput struct {
	Query     string     `json:"query"`
	Columns   []string   `json:"columns"`
	Rows      []QueryRow `json:"rows"`
	RowCount  int        `json:"row_count"`
	Truncated bool       `json:"truncated"`
}

type ExecuteSQLQueryTool struct {
	env toolEnv
}

func NewExecuteSQLQueryTool(cfg Config) *ExecuteSQLQueryTool {
	return &ExecuteSQLQueryTool{env: newToolEnv(cfg)}
}

func (t *ExecuteSQLQueryTool) Name() string {
	return executeSQLQueryToolName
}

func (t *ExecuteSQLQueryTool) Register(server *mcp.Server) error {
	req, err := jsonschema.For[ExecuteSQLQueryInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s input schema: %w", executeSQLQueryToolName, err)
	}
	res, err := jsonschema.For[ExecuteSQLQueryOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s output schema: %w", executeSQLQueryToolName, err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: executeSQLQueryToolName,
		Description: `
			PURPOSE:
			Execute a Databricks SQL statement on the configured SQL warehouse and return the rows.

			USAGE RULES:
			- Always use three-part table names: catalog.schema.table. Two-part names fail under Unity Catalog.
			- Use get_table_schema before writing SQL. Do not guess column names.
			- Aggregate with GROUP BY and apply LIMIT to keep results small.
			- At most max_rows rows are returned (default 1000); truncated is true when more existed.
		`,
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ExecuteSQLQueryInput) (*mcp.CallToolResult, ExecuteSQLQueryOutput, error) {
		start := t.env.clock.Now()
		out, err := t.handle(ctx, in)
		t.env.observe(executeSQLQueryToolName, start, err)
		if err != nil {
			return nil, ExecuteSQLQueryOutput{}, err
		}
		return nil, out, nil
	})
	return nil
}

func (t *ExecuteSQLQueryTool) handle(ctx context.Context, in ExecuteSQLQueryInput) (ExecuteSQLQueryOutput, error) {
	maxRows := in.MaxRows
	if maxRows < 0 {
		return ExecuteSQLQueryOutput{}, warehouse.Errorf(warehouse.KindInvalidArgument, "max_rows must not be negative, got %d", maxRows)
	}
	if maxRows == 0 {
		maxRows = warehouse.DefaultMaxRows
	}

	t.env.log.Debug("mcp/tool: handling execute_sql_query", "query", in.Query, "maxRows", maxRows)

	result, err := t.env.wh.Query(ctx, in.Query, maxRows)
	if err != nil {
		return ExecuteSQLQueryOutput{}, err
	}

	rows := make([]QueryRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, QueryRow(row))
	}
	columns := result.Columns
	if columns == nil {
		columns = []string{}
	}

	return ExecuteSQLQueryOutput{
		Query:     in.Query,
		Columns:   columns,
		Rows:      rows,
		RowCount:  len(rows),
		Truncated: result.Truncated,
	}, nil
}
