package warehouse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTwoPartReferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "simple select",
			query: "SELECT * FROM sales.orders",
			want:  []string{"sales.orders"},
		},
		{
			name:  "three-part names are fine",
			query: "SELECT * FROM main.sales.orders o JOIN main.sales.customers c ON o.cid = c.id",
			want:  nil,
		},
		{
			name:  "single-part names are ignored",
			query: "SELECT * FROM orders",
			want:  nil,
		},
		{
			name:  "join and dedupe",
			query: "select * from sales.orders o join sales.customers c on o.cid = c.id join sales.orders x on true",
			want:  []string{"sales.orders", "sales.customers"},
		},
		{
			name:  "backticks and whitespace around dots",
			query: "SELECT * FROM `sales` . `order items`",
			want:  []string{"`sales`.`order items`"},
		},
		{
			name:  "insert and update",
			query: "INSERT INTO staging.events SELECT 1; UPDATE staging.users SET x = 1",
			want:  []string{"staging.events", "staging.users"},
		},
		{
			name:  "comma separated from list",
			query: "SELECT * FROM sales.orders o, sales.customers c WHERE o.cid = c.id",
			want:  []string{"sales.orders", "sales.customers"},
		},
		{
			name:  "comma list mixing three-part and two-part names",
			query: "SELECT * FROM main.sales.orders o, sales.customers c",
			want:  []string{"sales.customers"},
		},
		{
			name:  "comma list with AS aliases",
			query: "SELECT * FROM sales.orders AS o, sales.customers",
			want:  []string{"sales.orders", "sales.customers"},
		},
		{
			name:  "update assignments are not table names",
			query: "UPDATE main.staging.users SET a.b = 1, c.d = 2",
			want:  nil,
		},
		{
			name:  "string literals are ignored",
			query: "SELECT 'FROM sales.orders' AS s FROM main.sales.orders",
			want:  nil,
		},
		{
			name:  "comments are ignored",
			query: "-- FROM sales.orders\nSELECT 1 /* JOIN sales.customers */",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, TwoPartReferences(tt.query))
		})
	}
}

func TestNamingHint(t *testing.T) {
	t.Parallel()

	t.Run("suggests default catalog", func(t *testing.T) {
		t.Parallel()
		hint := NamingHint("SELECT * FROM sales.orders", "main", false)
		require.Contains(t, hint, "three-part")
		require.Contains(t, hint, "try main.sales.orders")
	})

	t.Run("uses placeholder without default catalog", func(t *testing.T) {
		t.Parallel()
		hint := NamingHint("SELECT * FROM sales.orders", "", false)
		require.Contains(t, hint, "try <catalog>.sales.orders")
	})

	t.Run("covers every item of a from list", func(t *testing.T) {
		t.Parallel()
		hint := NamingHint("SELECT * FROM main.sales.orders o, sales.customers c", "main", false)
		require.Contains(t, hint, "try main.sales.customers")
		require.NotContains(t, hint, "main.main")
	})

	t.Run("generic hint for missing objects", func(t *testing.T) {
		t.Parallel()
		hint := NamingHint("SELECT * FROM orders", "main", true)
		require.Contains(t, hint, "catalog.schema.table")
	})

	t.Run("no hint otherwise", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, NamingHint("SELECT * FROM main.sales.orders", "main", false))
	})
}

func TestQuoteIdentifier(t *testing.T) {
	t.Parallel()

	require.Equal(t, "`orders`", QuoteIdentifier("orders"))
	require.Equal(t, "`order items`", QuoteIdentifier("order items"))
	require.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
}
