package warehouse

import (
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func duckOpener(t *testing.T) Opener {
	return func() (*sql.DB, error) {
		return sql.Open("duckdb", "")
	}
}

func testWarehouse(t *testing.T, defaultCatalog string) *Warehouse {
	w, err := New(Config{
		Logger:         testLogger(t),
		Open:           duckOpener(t),
		DefaultCatalog: defaultCatalog,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		w.Close()
	})
	return w
}

func TestWarehouse_New(t *testing.T) {
	t.Parallel()

	t.Run("missing logger", func(t *testing.T) {
		t.Parallel()
		w, err := New(Config{Open: duckOpener(t)})
		require.Error(t, err)
		require.Nil(t, w)
		require.Contains(t, err.Error(), "logger is required")
	})

	t.Run("missing opener", func(t *testing.T) {
		t.Parallel()
		w, err := New(Config{Logger: testLogger(t)})
		require.Error(t, err)
		require.Nil(t, w)
		require.Contains(t, err.Error(), "opener is required")
	})
}

func TestWarehouse_LazyConnection(t *testing.T) {
	t.Parallel()

	t.Run("opens once under concurrent use", func(t *testing.T) {
		t.Parallel()

		var opens atomic.Int32
		w, err := New(Config{
			Logger: testLogger(t),
			Open: func() (*sql.DB, error) {
				opens.Add(1)
				return sql.Open("duckdb", "")
			},
		})
		require.NoError(t, err)
		defer w.Close()
		require.False(t, w.Opened())

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := w.Query(t.Context(), "SELECT 1 AS one", 10)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		require.True(t, w.Opened())
		require.Equal(t, int32(1), opens.Load())
	})

	t.Run("failed open is not cached", func(t *testing.T) {
		t.Parallel()

		var opens atomic.Int32
		w, err := New(Config{
			Logger: testLogger(t),
			Open: func() (*sql.DB, error) {
				if opens.Add(1) == 1 {
					return nil, errors.New("warehouse is stopped")
				}
				return sql.Open("duckdb", "")
			},
		})
		require.NoError(t, err)
		defer w.Close()

		_, err = w.Query(t.Context(), "SELECT 1", 10)
		require.Error(t, err)
		require.Equal(t, KindConnection, KindOf(err))
		require.False(t, w.Opened())

		res, err := w.Query(t.Context(), "SELECT 1 AS one", 10)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		require.Equal(t, int32(2), opens.Load())
	})

	t.Run("closed warehouse rejects calls", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		_, err := w.Query(t.Context(), "SELECT 1", 10)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = w.Query(t.Context(), "SELECT 1", 10)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrClosed)
		require.Equal(t, KindConnection, KindOf(err))

		_, err = w.ListTables(t.Context(), "main", "default")
		require.ErrorIs(t, err, ErrClosed)
	})
}

func TestWarehouse_Query(t *testing.T) {
	t.Parallel()

	t.Run("truncates at max rows", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		tests := []struct {
			name          string
			maxRows       int
			wantRows      int
			wantTruncated bool
		}{
			{name: "fewer rows than limit", maxRows: 10, wantRows: 5, wantTruncated: false},
			{name: "exactly the limit", maxRows: 5, wantRows: 5, wantTruncated: false},
			{name: "more rows than limit", maxRows: 3, wantRows: 3, wantTruncated: true},
			{name: "limit of one", maxRows: 1, wantRows: 1, wantTruncated: true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res, err := w.Query(t.Context(), "SELECT range AS n FROM range(5) ORDER BY n", tt.maxRows)
				require.NoError(t, err)
				require.Len(t, res.Rows, tt.wantRows)
				require.Equal(t, tt.wantTruncated, res.Truncated)
				require.LessOrEqual(t, len(res.Rows), tt.maxRows)
				require.Equal(t, int64(0), res.Rows[0]["n"])
			})
		}
	})

	t.Run("preserves engine column order", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		res, err := w.Query(t.Context(), "SELECT 3 AS c, 1 AS a, 2 AS b", 10)
		require.NoError(t, err)
		require.Equal(t, []string{"c", "a", "b"}, res.Columns)
	})

	t.Run("handles empty result set", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		res, err := w.Query(t.Context(), "SELECT range AS n FROM range(5) WHERE range > 100", 10)
		require.NoError(t, err)
		require.Equal(t, []string{"n"}, res.Columns)
		require.NotNil(t, res.Rows)
		require.Empty(t, res.Rows)
		require.False(t, res.Truncated)
	})

	t.Run("normalizes values", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		res, err := w.Query(t.Context(), "SELECT 'abc'::BLOB AS b, NULL::VARCHAR AS n, 'x' AS s, 'NaN'::DOUBLE AS f", 10)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		require.Equal(t, "abc", res.Rows[0]["b"])
		require.Nil(t, res.Rows[0]["n"])
		require.Equal(t, "x", res.Rows[0]["s"])
		require.Equal(t, "NaN", res.Rows[0]["f"])
	})

	t.Run("rejects invalid arguments", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		_, err := w.Query(t.Context(), "   ", 10)
		require.Equal(t, KindInvalidArgument, KindOf(err))

		_, err = w.Query(t.Context(), "SELECT 1", 0)
		require.Equal(t, KindInvalidArgument, KindOf(err))
		require.False(t, w.Opened())
	})

	t.Run("returns query error on invalid SQL", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		_, err := w.Query(t.Context(), "SELEC nonsense", 10)
		require.Error(t, err)
		require.Equal(t, KindQuery, KindOf(err))
		require.Contains(t, err.Error(), "failed to execute query")
	})

	t.Run("hints three-part names for two-part references", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "main")
		_, err := w.Query(t.Context(), "SELECT * FROM missing_schema.users LIMIT 10", 10)
		require.Error(t, err)
		require.Equal(t, KindQuery, KindOf(err))

		var werr *Error
		require.ErrorAs(t, err, &werr)
		require.Contains(t, werr.Hint, "three-part")
		require.Contains(t, werr.Hint, "main.missing_schema.users")
		require.Contains(t, err.Error(), "three-part")
	})

	t.Run("reuses connection after a failed call", func(t *testing.T) {
		t.Parallel()

		w := testWarehouse(t, "")
		_, err := w.Query(t.Context(), "SELECT * FROM nonexistent_table", 10)
		require.Error(t, err)

		res, err := w.Query(t.Context(), "SELECT 42 AS answer", 10)
		require.NoError(t, err)
		require.Equal(t, int32(42), res.Rows[0]["answer"])
	})
}
