// Package duck adapts the embedded analytical store. The engine only needs
// three operations from it: list tables, describe a table, run a SELECT.
package duck

import "context"

// ColumnInfo is one row of DESCRIBE <table>.
type ColumnInfo struct {
	Name string
	Type string
}

// Result is a tabular query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool { return r.RowCount() == 0 }

// ScalarFloat returns the first cell coerced to float64, for aggregate
// queries that produce a single value. Missing or NULL cells yield 0.
func (r *Result) ScalarFloat() float64 {
	if r.Empty() || len(r.Rows[0]) == 0 {
		return 0
	}
	return toFloat(r.Rows[0][0])
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return 0
}

// Catalog is the live SQL catalog interface. The DuckDB implementation backs
// production; tests use the in-memory Fake.
type Catalog interface {
	// ListTables returns the table names present in the store.
	ListTables(ctx context.Context) ([]string, error)

	// Describe returns the column names and types of a table.
	Describe(ctx context.Context, table string) ([]ColumnInfo, error)

	// Query executes a single SELECT and materializes the result.
	Query(ctx context.Context, sql string) (*Result, error)
}
