package duck

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Fake is an in-memory Catalog for tests. Tables are declared up front;
// query behavior is scripted either per-SQL or through QueryFunc.
type Fake struct {
	mu      sync.Mutex
	tables  map[string][]ColumnInfo
	results map[string]*Result
	errs    map[string]error

	// QueryFunc, when set, handles any SQL without a scripted result.
	QueryFunc func(sql string) (*Result, error)

	// Executed records every SQL statement passed to Query, in order.
	Executed []string
}

// NewFake creates an empty fake catalog.
func NewFake() *Fake {
	return &Fake{
		tables:  map[string][]ColumnInfo{},
		results: map[string]*Result{},
		errs:    map[string]error{},
	}
}

// AddTable declares a table with its columns.
func (f *Fake) AddTable(name string, cols ...ColumnInfo) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = cols
	return f
}

// StubResult scripts the result for an exact SQL string.
func (f *Fake) StubResult(sql string, result *Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[sql] = result
	return f
}

// StubError scripts a failure for an exact SQL string.
func (f *Fake) StubError(sql string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[sql] = err
	return f
}

// ListTables returns the declared table names, sorted.
func (f *Fake) ListTables(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Describe returns the declared columns of a table.
func (f *Fake) Describe(_ context.Context, table string) ([]ColumnInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cols, ok := f.tables[table]
	if !ok {
		return nil, fmt.Errorf("Catalog Error: Table with name %s does not exist", table)
	}
	return cols, nil
}

// Query returns the scripted result for the SQL, consults QueryFunc, or
// returns an empty result.
func (f *Fake) Query(_ context.Context, sql string) (*Result, error) {
	f.mu.Lock()
	f.Executed = append(f.Executed, sql)
	err, hasErr := f.errs[sql]
	res, hasRes := f.results[sql]
	fn := f.QueryFunc
	f.mu.Unlock()

	if hasErr {
		return nil, err
	}
	if hasRes {
		return res, nil
	}
	if fn != nil {
		return fn(sql)
	}
	return &Result{}, nil
}

// Ensure Fake implements Catalog.
var _ Catalog = (*Fake)(nil)
