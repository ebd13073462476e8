package server

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const listTablesToolName = "list_tables"

type ListTablesInput struct {
	Catalog string `json:"catalog,omitempty" jsonschema:"Unity Catalog catalog; defaults to DATABRICKS_CATALOG"`
	Schema  string `json:"schema,omitempty" jsonschema:"Schema within the catalog; defaults to DATABRICKS_SCHEMA"`
}

type TableInfo struct {
	Name        string `json:"name"`
	IsTemporary bool   `json:"is_temporary"`
}

type ListTablesOutput struct {
	Catalog    string      `json:"catalog"`
	Schema     string      `json:"schema"`
	Tables     []TableInfo `json:"tables"`
	TableCount int         `json:"table_count"`
	UsageHint  string      `json:"usage_hint"`
}

type ListTablesTool struct {
	env toolEnv
}

func NewListTablesTool(cfg Config) *ListTablesTool {
	return &ListTablesTool{env: newToolEnv(cfg)}
}

func (t *ListTablesTool) Name() string {
	return listTablesToolName
}

func (t *ListTablesTool) Register(server *mcp.Server) error {
	req, err := jsonschema.For[ListTablesInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s input schema: %w", listTablesToolName, err)
	}
	res, err := jsonschema.For[ListTablesOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s output schema: %w", listTablesToolName, err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         listTablesToolName,
		Description:  `List the tables in a Unity Catalog schema. Catalog and schema default to the server configuration. Use this to discover tables before calling get_table_schema or execute_sql_query.`,
		InputSchema:  req,
		OutputSchema: res,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ListTablesInput) (*mcp.CallToolResult, ListTablesOutput, error) {
		start := t.env.clock.Now()
		out, err := t.handle(ctx, in)
		t.env.observe(listTablesToolName, start, err)
		if err != nil {
			return nil, ListTablesOutput{}, err
		}
		return nil, out, nil
	})
	return nil
}

func (t *ListTablesTool) handle(ctx context.Context, in ListTablesInput) (ListTablesOutput, error) {
	catalog, schema, err := t.env.namespace(in.Catalog, in.Schema)
	if err != nil {
		return ListTablesOutput{}, err
	}

	t.env.log.Debug("mcp/tool: handling list_tables", "catalog", catalog, "schema", schema)

	tables, err := t.env.wh.ListTables(ctx, catalog, schema)
	if err != nil {
		return ListTablesOutput{}, err
	}

	infos := make([]TableInfo, 0, len(tables))
	for _, table := range tables {
		infos = append(infos, TableInfo{
			Name:        table.Name,
			IsTemporary: table.IsTemporary,
		})
	}

	return ListTablesOutput{
		Catalog:    catalog,
		Schema:     schema,
		Tables:     infos,
		TableCount: len(infos),
		UsageHint:  fmt.Sprintf("To query these tables, use the full name: %s.%s.<table_name>", catalog, schema),
	}, nil
}
