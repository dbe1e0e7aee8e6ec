package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

func testCatalog() *duck.Fake {
	fake := duck.NewFake()
	fake.AddTable("Pincode_Sales",
		duck.ColumnInfo{Name: "Date", Type: "DATE"},
		duck.ColumnInfo{Name: "Category", Type: "VARCHAR"},
		duck.ColumnInfo{Name: "Sales_Amount", Type: "DOUBLE"},
		duck.ColumnInfo{Name: "Order_Count", Type: "BIGINT"},
	)
	return fake
}

func testTableProfile() *models.TableProfile {
	return &models.TableProfile{
		TableName: "Pincode_Sales",
		Columns: map[string]*models.ColumnProfile{
			"Date":         {Name: "Date", Role: models.RoleDate},
			"Category":     {Name: "Category", Role: models.RoleDimension},
			"Sales_Amount": {Name: "Sales_Amount", Role: models.RoleMetric},
			"Order_Count":  {Name: "Order_Count", Role: models.RoleMetric},
		},
		SynonymMap: map[string][]string{
			"sales":  {"Sales_Amount"},
			"orders": {"Order_Count"},
		},
	}
}

func newTestValidator() *Validator {
	return NewValidator(testCatalog(), zap.NewNop())
}

func intPtr(n int) *int { return &n }

func TestNormalizeDefaults(t *testing.T) {
	p := &models.QueryPlan{QueryType: models.QueryMetric, Table: "T"}
	Normalize(p)
	assert.Equal(t, 100, p.LimitValue())
	assert.NotNil(t, p.Filters)
	assert.NotNil(t, p.SelectColumns)

	p = &models.QueryPlan{QueryType: models.QueryLookup, Table: "T"}
	Normalize(p)
	assert.Equal(t, 1, p.LimitValue())
}

func TestNormalizeMovesMetricsForRowQueries(t *testing.T) {
	p := &models.QueryPlan{
		QueryType: models.QueryList,
		Table:     "T",
		Metrics:   []string{"Sales_Amount"},
	}
	Normalize(p)
	assert.Empty(t, p.Metrics)
	assert.Equal(t, []string{"Sales_Amount"}, p.SelectColumns)
}

func TestNormalizeDateRewriteIdempotent(t *testing.T) {
	p := &models.QueryPlan{
		QueryType: models.QueryFilter,
		Table:     "T",
		Filters: []models.Filter{
			{Column: "Date", Operator: "=", Value: "14/09/2025"},
			{Column: "Date", Operator: "LIKE", Value: "%14/09/2025%"},
			{Column: "Date", Operator: "=", Value: "2025-09-14"},
		},
	}
	Normalize(p)
	assert.Equal(t, "2025-09-14", p.Filters[0].Value)
	assert.Equal(t, "%2025-09-14%", p.Filters[1].Value)
	assert.Equal(t, "2025-09-14", p.Filters[2].Value)

	// A second pass changes nothing.
	Normalize(p)
	assert.Equal(t, "2025-09-14", p.Filters[0].Value)
	assert.Equal(t, "%2025-09-14%", p.Filters[1].Value)
}

func TestValidateShapeRejectsUnknownKeys(t *testing.T) {
	err := ValidateShape([]byte(`{"query_type": "list", "table": "T", "bogus_key": 1}`))
	require.Error(t, err)

	err = ValidateShape([]byte(`{"query_type": "list", "table": "T"}`))
	assert.NoError(t, err)
}

func TestValidateShapeRejectsBadOperator(t *testing.T) {
	err := ValidateShape([]byte(`{
		"query_type": "filter", "table": "T",
		"filters": [{"column": "c", "operator": "CONTAINS", "value": "x"}]
	}`))
	require.Error(t, err)
}

func TestValidateBindsColumnsCaseInsensitive(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType:     models.QueryList,
		Table:         "pincode_sales",
		SelectColumns: []string{"category", "sales_amount"},
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, "Pincode_Sales", p.Table)
	assert.Equal(t, []string{"Category", "Sales_Amount"}, p.SelectColumns)
}

func TestValidateFuzzyColumnResolution(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType:     models.QueryList,
		Table:         "Pincode_Sales",
		SelectColumns: []string{"Sales_Amont"}, // typo, similarity ≥0.8
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, []string{"Sales_Amount"}, p.SelectColumns)
}

func TestValidateUnknownColumnFails(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType:     models.QueryList,
		Table:         "Pincode_Sales",
		SelectColumns: []string{"Warehouse_Zone"},
	}
	err := v.Validate(context.Background(), p, testTableProfile())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPlanInvalid, apperrors.KindOf(err))
}

func TestValidateUnknownTableFails(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{QueryType: models.QueryList, Table: "Nope"}
	err := v.Validate(context.Background(), p, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPlanInvalid, apperrors.KindOf(err))
}

func TestValidateLikeRequiresString(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType: models.QueryFilter,
		Table:     "Pincode_Sales",
		Filters:   []models.Filter{{Column: "Category", Operator: "LIKE", Value: float64(5)}},
	}
	err := v.Validate(context.Background(), p, testTableProfile())
	require.Error(t, err)
}

func TestValidateNumericColumnNeedsNumericValue(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType: models.QueryFilter,
		Table:     "Pincode_Sales",
		Filters:   []models.Filter{{Column: "Sales_Amount", Operator: ">", Value: "plenty"}},
	}
	err := v.Validate(context.Background(), p, testTableProfile())
	require.Error(t, err)

	// Numeric strings coerce.
	p.Filters[0].Value = "1000"
	assert.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
}

func TestMetricPlanResolvesSynonym(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType: models.QueryMetric,
		Table:     "Pincode_Sales",
		Metrics:   []string{"sales"},
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, models.QueryMetric, p.QueryType)
	assert.Equal(t, []string{"Sales_Amount"}, p.Metrics)
}

func TestMetricPlanDowngradesToList(t *testing.T) {
	v := newTestValidator()
	// Category is a real column but not a registered metric.
	p := &models.QueryPlan{
		QueryType: models.QueryMetric,
		Table:     "Pincode_Sales",
		Metrics:   []string{"Category"},
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, models.QueryList, p.QueryType)
	assert.Empty(t, p.Metrics)
	assert.Contains(t, p.SelectColumns, "Category")
}

func TestLookupForcesLimitOne(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType: models.QueryLookup,
		Table:     "Pincode_Sales",
		Limit:     intPtr(50),
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, 1, p.LimitValue())
}

func TestFilterWithoutFiltersDowngrades(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType: models.QueryFilter,
		Table:     "Pincode_Sales",
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, models.QueryList, p.QueryType)
}

func TestExtremaLookupRequiresOrderBy(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType: models.QueryExtremaLookup,
		Table:     "Pincode_Sales",
	}
	err := v.Validate(context.Background(), p, testTableProfile())
	require.Error(t, err)

	p.OrderBy = []models.OrderBy{{Column: "Sales_Amount", Direction: "DESC"}}
	p.Limit = intPtr(10)
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, 1, p.LimitValue(), "extrema_lookup pins limit to 1")
}

func TestAggregationOnSubsetRules(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{
		QueryType:           models.QueryAggregationOnSubset,
		Table:               "Pincode_Sales",
		AggregationFunction: "AVG",
		AggregationColumn:   "Sales_Amount",
		SubsetOrderBy:       []models.OrderBy{{Column: "Sales_Amount", Direction: "DESC"}},
		SubsetLimit:         5,
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))

	p.AggregationFunction = "COUNT_DISTINCT"
	err := v.Validate(context.Background(), p, testTableProfile())
	require.Error(t, err)
}

func TestComparisonRequiresBlock(t *testing.T) {
	v := newTestValidator()
	p := &models.QueryPlan{QueryType: models.QueryComparison, Table: "Pincode_Sales"}
	err := v.Validate(context.Background(), p, testTableProfile())
	require.Error(t, err)

	p.Comparison = &models.ComparisonSpec{
		PeriodA:     models.AggBlock{Label: "september", Column: "sales_amount", Aggregation: "SUM"},
		PeriodB:     models.AggBlock{Label: "october", Column: "sales_amount", Aggregation: "SUM"},
		CompareType: "percentage_change",
	}
	require.NoError(t, v.Validate(context.Background(), p, testTableProfile()))
	assert.Equal(t, "Sales_Amount", p.Comparison.PeriodA.Column)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Sales Amount", "sales_amount"))
	assert.GreaterOrEqual(t, Similarity("sales_amont", "sales_amount"), 0.8)
	assert.Less(t, Similarity("category", "sales_amount"), 0.5)
}
