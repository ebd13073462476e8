package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// TableRef is a Unity Catalog three-part table name.
type TableRef struct {
	Catalog string
	Schema  string
	Table   string
}

func (r TableRef) FullName() string {
	return r.Catalog + "." + r.Schema + "." + r.Table
}

func (r TableRef) Validate() error {
	var missing []string
	if r.Catalog == "" {
		missing = append(missing, "catalog")
	}
	if r.Schema == "" {
		missing = append(missing, "schema")
	}
	if r.Table == "" {
		missing = append(missing, "table")
	}
	if len(missing) > 0 {
		return Errorf(KindInvalidArgument, "table reference requires non-empty %s", strings.Join(missing, ", "))
	}
	return nil
}

func (r TableRef) quoted() string {
	return QuoteIdentifier(r.Catalog) + "." + QuoteIdentifier(r.Schema) + "." + QuoteIdentifier(r.Table)
}

type Column struct {
	Name    string
	Type    string
	Comment string
}

type Table struct {
	Name        string
	IsTemporary bool
}

// DescribeTable returns the columns of the table in declaration order.
func (w *Warehouse) DescribeTable(ctx context.Context, ref TableRef) ([]Column, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	db, err := w.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "DESCRIBE TABLE "+ref.quoted())
	if err != nil {
		return nil, lookupError(fmt.Sprintf("table %s", ref.FullName()), err)
	}
	defer rows.Close()

	columns, err := scanColumns(rows)
	if err != nil {
		return nil, lookupError(fmt.Sprintf("table %s", ref.FullName()), err)
	}
	if len(columns) == 0 {
		return nil, Errorf(KindNotFound, "table %s does not exist or has no columns", ref.FullName())
	}
	return columns, nil
}

// ListTables returns the tables of catalog.schema in the order reported by the
// warehouse. An empty schema yields an empty, non-nil slice.
func (w *Warehouse) ListTables(ctx context.Context, catalog, schema string) ([]Table, error) {
	if catalog == "" || schema == "" {
		return nil, Errorf(KindInvalidArgument, "catalog and schema are required")
	}

	db, err := w.conn()
	if err != nil {
		return nil, err
	}

	target := catalog + "." + schema
	rows, err := db.QueryContext(ctx, "SHOW TABLES IN "+QuoteIdentifier(catalog)+"."+QuoteIdentifier(schema))
	if err != nil {
		return nil, lookupError(fmt.Sprintf("schema %s", target), err)
	}
	defer rows.Close()

	tables, err := scanTables(rows)
	if err != nil {
		return nil, lookupError(fmt.Sprintf("schema %s", target), err)
	}
	return tables, nil
}

func lookupError(target string, err error) error {
	kind := Classify(err)
	switch kind {
	case KindNotFound:
		return &Error{Kind: kind, Message: fmt.Sprintf("%s does not exist or is not visible to the current user", target), Err: err}
	case KindPermission:
		return &Error{Kind: kind, Message: fmt.Sprintf("permission denied on %s", target), Err: err}
	case KindConnection:
		return &Error{Kind: kind, Message: fmt.Sprintf("warehouse unavailable while looking up %s", target), Err: err}
	}
	return &Error{Kind: KindQuery, Message: fmt.Sprintf("failed to look up %s", target), Err: err}
}

// scanColumns parses DESCRIBE TABLE output: col_name, data_type, comment.
// Blank rows and "#" section headers are skipped, and partition columns that
// are listed a second time under "# Partition Information" are dropped.
func scanColumns(rows *sql.Rows) ([]Column, error) {
	values, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	columns := make([]Column, 0, len(values))
	seen := make(map[string]struct{})
	for _, vals := range values {
		if len(vals) < 2 {
			return nil, fmt.Errorf("unexpected DESCRIBE output with %d columns", len(vals))
		}
		name := strings.TrimSpace(asString(vals[0]))
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		col := Column{
			Name: name,
			Type: asString(vals[1]),
		}
		if len(vals) > 2 {
			col.Comment = asString(vals[2])
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// scanTables parses SHOW TABLES output: database, tableName, isTemporary.
// Older runtimes omit isTemporary.
func scanTables(rows *sql.Rows) ([]Table, error) {
	values, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(values))
	for _, vals := range values {
		var table Table
		switch len(vals) {
		case 0:
			return nil, fmt.Errorf("unexpected SHOW TABLES output with no columns")
		case 1:
			table.Name = asString(vals[0])
		case 2:
			table.Name = asString(vals[1])
		default:
			table.Name = asString(vals[1])
			table.IsTemporary = asBool(vals[2])
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func scanAll(rows *sql.Rows) ([][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string, []byte:
		parsed, err := strconv.ParseBool(strings.TrimSpace(asString(b)))
		return err == nil && parsed
	default:
		return false
	}
}
