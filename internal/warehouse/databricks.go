package warehouse

import (
	"database/sql"
	"fmt"
	"time"

	dbsql "github.com/databricks/databricks-sql-go"

	"github.com/malbeclabs/databricks-mcp/config"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxIdleTime = 10 * time.Minute
	userAgentEntry         = "databricks-mcp"
)

// DatabricksOpener returns an Opener for the SQL warehouse described by cfg.
// Driver retries are disabled: a stopped warehouse is reported to the caller
// instead of being resumed behind its back.
func DatabricksOpener(cfg *config.Config) Opener {
	return func() (*sql.DB, error) {
		connector, err := dbsql.NewConnector(
			dbsql.WithServerHostname(cfg.Host),
			dbsql.WithPort(cfg.Port),
			dbsql.WithHTTPPath(cfg.HTTPPath),
			dbsql.WithAccessToken(cfg.Token),
			dbsql.WithUserAgentEntry(userAgentEntry),
			dbsql.WithRetries(-1, 0, 0),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create databricks connector: %w", err)
		}

		db := sql.OpenDB(connector)
		db.SetMaxOpenConns(defaultMaxOpenConns)
		db.SetMaxIdleConns(defaultMaxIdleConns)
		db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
		return db, nil
	}
}
