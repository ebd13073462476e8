package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/malbeclabs/databricks-mcp/internal/warehouse"
)

const getTableSchemaToolName = "get_table_schema"

type GetTableSchemaInput struct {
	Table   string `json:"table" jsonschema:"Table name without catalog or schema"`
	Catalog string `json:"catalog,omitempty" jsonschema:"Unity Catalog catalog; defaults to DATABRICKS_CATALOG"`
	Schema  string `json:"schema,omitempty" jsonschema:"Schema within the catalog; defaults to DATABRICKS_SCHEMA"`
}

type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

type GetTableSchemaOutput struct {
	Catalog  string       `json:"catalog"`
	Schema   string       `json:"schema"`
	Table    string       `json:"table"`
	FullName string       `json:"full_name"`
	Columns  []ColumnInfo `json:"columns"`
}

type GetTableSchemaTool struct {
	env toolEnv
}

func NewGetTableSchemaTool(cfg Config) *GetTableSchemaTool {
	return &GetTableSchemaTool{env: newToolEnv(cfg)}
}

func (t *GetTableSchemaTool) Name() string {
	return getTableSchemaToolName
}

func (t *GetTableSchemaTool) Register(server *mcp.Server) error {
	req, err := jsonschema.For[GetTableSchemaInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s input schema: %w", getTableSchemaToolName, err)
	}
	res, err := jsonschema.For[GetTableSchemaOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s output schema: %w", getTableSchemaToolName, err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: getTableSchemaToolName,
		Description: `
			PURPOSE:
			Return the columns (name, type, comment) of a Unity Catalog table.

			USAGE RULES:
			- Call this before writing SQL against a table. Do not guess column names.
			- Pass the bare table name; catalog and schema default to the server configuration.
			- The returned full_name is the three-part name to use in execute_sql_query.
		`,
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in GetTableSchemaInput) (*mcp.CallToolResult, GetTableSchemaOutput, error) {
		start := t.env.clock.Now()
		out, err := t.handle(ctx, in)
		t.env.observe(getTableSchemaToolName, start, err)
		if err != nil {
			return nil, GetTableSchemaOutput{}, err
		}
		return nil, out, nil
	})
	return nil
}

func (t *GetTableSchemaTool) handle(ctx context.Context, in GetTableSchemaInput) (GetTableSchemaOutput, error) {
	table := strings.TrimSpace(in.Table)
	if table == "" {
		return GetTableSchemaOutput{}, warehouse.Errorf(warehouse.KindInvalidArgument, "table is required")
	}
	catalog, schema, err := t.env.namespace(in.Catalog, in.Schema)
	if err != nil {
		return GetTableSchemaOutput{}, err
	}

	ref := warehouse.TableRef{Catalog: catalog, Schema: schema, Table: table}
	t.env.log.Debug("mcp/tool: handling get_table_schema", "table", ref.FullName())

	columns, err := t.env.wh.DescribeTable(ctx, ref)
	if err != nil {
		return GetTableSchemaOutput{}, err
	}

	out := GetTableSchemaOutput{
		Catalog:  catalog,
		Schema:   schema,
		Table:    table,
		FullName: ref.FullName(),
		Columns:  make([]ColumnInfo, 0, len(columns)),
	}
	for _, col := range columns {
		out.Columns = append(out.Columns, ColumnInfo{
			Name:    col.Name,
			Type:    col.Type,
			Comment: col.Comment,
		})
	}
	return out, nil
}
