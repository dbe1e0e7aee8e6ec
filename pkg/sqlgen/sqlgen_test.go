package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

func intPtr(n int) *int { return &n }

func TestCompileMetric(t *testing.T) {
	p := &models.QueryPlan{
		QueryType: models.QueryMetric,
		Table:     "Pincode_Sales",
		Metrics:   []string{"Sales_Amount"},
		Filters: []models.Filter{
			{Column: "Month", Operator: "=", Value: "september"},
		},
		Limit: intPtr(100),
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT SUM("Sales_Amount") AS "sum_sales_amount" FROM "Pincode_Sales" WHERE "Month" = 'september' LIMIT 100`,
		sql)
}

func TestCompileSameColumnOrCrossColumnAnd(t *testing.T) {
	p := &models.QueryPlan{
		QueryType: models.QueryFilter,
		Table:     "T",
		Filters: []models.Filter{
			{Column: "Category", Operator: "=", Value: "Electronics"},
			{Column: "Category", Operator: "=", Value: "Groceries"},
			{Column: "Month", Operator: "=", Value: "september"},
		},
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, sql,
		`("Category" = 'Electronics' OR "Category" = 'Groceries') AND "Month" = 'september'`)
}

func TestCompileGroupByWithDatePart(t *testing.T) {
	p := &models.QueryPlan{
		QueryType:    models.QueryMetric,
		Table:        "Sales",
		Metrics:      []string{"Amount"},
		GroupBy:      []string{"Date"},
		DateGrouping: "MONTH",
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, sql, `EXTRACT(MONTH FROM "Date")`)
	assert.Contains(t, sql, `GROUP BY EXTRACT(MONTH FROM "Date")`)
}

func TestCompileCountDistinct(t *testing.T) {
	p := &models.QueryPlan{
		QueryType:           models.QueryMetric,
		Table:               "Sales",
		Metrics:             []string{"Product"},
		AggregationFunction: "COUNT_DISTINCT",
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, sql, `COUNT(DISTINCT "Product")`)
}

func TestCompileRankOrderLimit(t *testing.T) {
	p := &models.QueryPlan{
		QueryType:     models.QueryRank,
		Table:         "Sales",
		SelectColumns: []string{"Category", "Amount"},
		OrderBy:       []models.OrderBy{{Column: "Amount", Direction: "DESC"}},
		Limit:         intPtr(5),
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "Category", "Amount" FROM "Sales" ORDER BY "Amount" DESC LIMIT 5`, sql)
}

func TestCompileSubsetSubquery(t *testing.T) {
	p := &models.QueryPlan{
		QueryType:           models.QueryAggregationOnSubset,
		Table:               "Sales",
		AggregationFunction: "AVG",
		AggregationColumn:   "Amount",
		SubsetFilters:       []models.Filter{{Column: "Month", Operator: "=", Value: "september"}},
		SubsetOrderBy:       []models.OrderBy{{Column: "Amount", Direction: "DESC"}},
		SubsetLimit:         10,
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT AVG("Amount") AS "avg_amount" FROM (SELECT * FROM "Sales" WHERE "Month" = 'september' ORDER BY "Amount" DESC LIMIT 10) AS subset`,
		sql)
}

func TestCompileListSelectStar(t *testing.T) {
	p := &models.QueryPlan{QueryType: models.QueryList, Table: "Sales", Limit: intPtr(100)}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Sales" LIMIT 100`, sql)
}

func TestCompileRejectsAdvancedTypes(t *testing.T) {
	for _, qt := range []models.QueryType{models.QueryComparison, models.QueryPercentage, models.QueryTrend} {
		_, err := Compile(&models.QueryPlan{QueryType: qt, Table: "T"})
		assert.Error(t, err, string(qt))
	}
}

func TestQuotingEscapesInjection(t *testing.T) {
	p := &models.QueryPlan{
		QueryType: models.QueryFilter,
		Table:     `T`,
		Filters: []models.Filter{
			{Column: "Name", Operator: "=", Value: "O'Brien; DROP TABLE x"},
		},
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, sql, `'O''Brien; DROP TABLE x'`)
}

func TestRenderNumericValues(t *testing.T) {
	p := &models.QueryPlan{
		QueryType: models.QueryFilter,
		Table:     "T",
		Filters: []models.Filter{
			{Column: "Amount", Operator: ">", Value: float64(1000)},
			{Column: "Ratio", Operator: "<", Value: 0.5},
		},
	}
	sql, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, sql, `"Amount" > 1000`)
	assert.Contains(t, sql, `"Ratio" < 0.5`)
}

func TestAggregateSQL(t *testing.T) {
	sql := AggregateSQL("Sales", models.AggBlock{
		Label:       "september",
		Column:      "Amount",
		Aggregation: "SUM",
		Filters:     []models.Filter{{Column: "Month", Operator: "=", Value: "september"}},
	})
	assert.Equal(t,
		`SELECT SUM("Amount") AS "sum_amount" FROM "Sales" WHERE "Month" = 'september'`, sql)
}

func TestPercentagePartSQLWithSubquery(t *testing.T) {
	sql := PercentagePartSQL("Sales", models.PercentagePart{
		Column:      "Amount",
		Aggregation: "SUM",
		OrderBy:     []models.OrderBy{{Column: "Amount", Direction: "DESC"}},
		Limit:       5,
	})
	assert.Equal(t,
		`SELECT SUM("Amount") AS "sum_amount" FROM (SELECT * FROM "Sales" ORDER BY "Amount" DESC LIMIT 5) AS subset`,
		sql)
}

func TestTrendSQL(t *testing.T) {
	sql := TrendSQL("Sales", &models.TrendSpec{
		DateColumn:  "Date",
		ValueColumn: "Amount",
		Aggregation: "SUM",
	}, []models.Filter{{Column: "Region", Operator: "=", Value: "South"}})
	assert.Equal(t,
		`SELECT "Date", SUM("Amount") AS "sum_amount" FROM "Sales" WHERE "Region" = 'South' GROUP BY "Date" ORDER BY "Date"`,
		sql)
}
