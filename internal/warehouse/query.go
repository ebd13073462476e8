package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/malbeclabs/databricks-mcp/internal/metrics"
)

type Row map[string]any

type QueryResult struct {
	Columns   []string
	Rows      []Row
	Truncated bool
}

// Query runs the statement verbatim and returns at most maxRows rows. One
// extra row is read, and discarded, to decide whether the result was
// truncated.
func (w *Warehouse) Query(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, Errorf(KindInvalidArgument, "query is required")
	}
	if maxRows < 1 {
		return nil, Errorf(KindInvalidArgument, "max_rows must be at least 1, got %d", maxRows)
	}

	db, err := w.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, w.queryError(query, err)
	}
	defer rows.Close()

	result, err := scanRows(rows, maxRows)
	if err != nil {
		return nil, w.queryError(query, err)
	}

	metrics.QueryRowsReturned.Observe(float64(len(result.Rows)))
	if result.Truncated {
		metrics.QueriesTruncatedTotal.Inc()
	}
	return result, nil
}

// queryError classifies a failed query. Missing objects are reported as query
// errors since the statement, not a lookup target, is at fault.
func (w *Warehouse) queryError(query string, err error) error {
	kind := Classify(err)
	switch kind {
	case KindPermission:
		return &Error{Kind: kind, Message: "permission denied while executing query", Err: err}
	case KindConnection:
		return &Error{Kind: kind, Message: "warehouse unavailable while executing query", Err: err}
	}
	return &Error{
		Kind:    KindQuery,
		Message: "failed to execute query",
		Hint:    NamingHint(query, w.cfg.DefaultCatalog, kind == KindNotFound),
		Err:     err,
	}
}

func scanRows(rows *sql.Rows, maxRows int) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if columns == nil {
		columns = []string{}
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    make([]Row, 0),
	}
	for rows.Next() {
		if len(result.Rows) == maxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// normalizeValue makes driver values safe for JSON encoding.
func normalizeValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
		return v
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 32)
		}
		return v
	default:
		return val
	}
}
