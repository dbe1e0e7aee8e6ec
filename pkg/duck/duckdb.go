package duck

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// DB is the DuckDB-backed Catalog.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) a DuckDB database at path; empty path means
// in-memory.
func Open(path string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	return &DB{db: db, logger: logger.Named("duckdb")}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error { return d.db.Close() }

// ListTables returns the table names in the main schema.
func (d *DB) ListTables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Describe runs DESCRIBE on the table and returns name/type pairs.
func (d *DB) Describe(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`DESCRIBE %s`, QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}

	var infos []ColumnInfo
	scan := make([]any, len(cols))
	for i := range scan {
		scan[i] = new(sql.NullString)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		// DESCRIBE yields column_name, column_type, null, key, default, extra.
		name := scan[0].(*sql.NullString).String
		ctype := ""
		if len(scan) > 1 {
			ctype = scan[1].(*sql.NullString).String
		}
		infos = append(infos, ColumnInfo{Name: name, Type: ctype})
	}
	return infos, rows.Err()
}

// Query executes a SELECT and materializes every row.
func (d *DB) Query(ctx context.Context, sqlText string) (*Result, error) {
	d.logger.Debug("executing SQL", zap.String("sql", sqlText))

	rows, err := d.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// Ensure DB implements Catalog.
var _ Catalog = (*DB)(nil)
