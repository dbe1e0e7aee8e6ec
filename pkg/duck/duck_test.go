package duck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"Sales_Amount"`, QuoteIdentifier("Sales_Amount"))
	assert.Equal(t, `"weird""name"`, QuoteIdentifier(`weird"name`))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'september'`, QuoteLiteral("september"))
	assert.Equal(t, `'O''Brien'`, QuoteLiteral("O'Brien"))
}

func TestResultScalarFloat(t *testing.T) {
	r := &Result{Columns: []string{"total"}, Rows: [][]any{{int64(42)}}}
	assert.Equal(t, 42.0, r.ScalarFloat())

	assert.Equal(t, 0.0, (&Result{}).ScalarFloat())
	assert.Equal(t, 0.0, (&Result{Columns: []string{"v"}, Rows: [][]any{{nil}}}).ScalarFloat())

	var nilResult *Result
	assert.Equal(t, 0, nilResult.RowCount())
	assert.True(t, nilResult.Empty())
}

func TestFakeCatalog(t *testing.T) {
	fake := NewFake()
	fake.AddTable("Pincode_Sales",
		ColumnInfo{Name: "Date", Type: "DATE"},
		ColumnInfo{Name: "Sales_Amount", Type: "DOUBLE"})

	ctx := context.Background()
	tables, err := fake.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pincode_Sales"}, tables)

	cols, err := fake.Describe(ctx, "Pincode_Sales")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "Date", cols[0].Name)

	_, err = fake.Describe(ctx, "No_Such_Table")
	assert.Error(t, err)
}

func TestFakeStubbedQueries(t *testing.T) {
	fake := NewFake()
	fake.StubResult("SELECT 1", &Result{Columns: []string{"v"}, Rows: [][]any{{int64(1)}}})
	fake.StubError("SELECT boom", errors.New("Binder Error: column not found"))

	ctx := context.Background()
	r, err := fake.Query(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.ScalarFloat())

	_, err = fake.Query(ctx, "SELECT boom")
	assert.Error(t, err)

	assert.Equal(t, []string{"SELECT 1", "SELECT boom"}, fake.Executed)
}
