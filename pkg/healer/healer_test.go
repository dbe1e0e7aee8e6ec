package healer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/profile"
)

func testStore(t *testing.T) *profile.Store {
	t.Helper()
	store := profile.NewStore(t.TempDir()+"/profiles.json", zap.NewNop())
	store.Set("Pincode_Sales", &models.TableProfile{
		TableName: "Pincode_Sales",
		Columns: map[string]*models.ColumnProfile{
			"Date":         {Name: "Date", Role: models.RoleDate},
			"Category":     {Name: "Category", Role: models.RoleDimension},
			"Sales_Amount": {Name: "Sales_Amount", Role: models.RoleMetric},
		},
		SynonymMap: map[string][]string{"revenue": {"Sales_Amount"}},
	})
	return store
}

func newTestHealer(t *testing.T, fake *duck.Fake) *Healer {
	t.Helper()
	return New(fake, testStore(t), MaxRetries, zap.NewNop())
}

func TestClassifyDBError(t *testing.T) {
	cases := map[string]errorClass{
		`Binder Error: Referenced column "Sales_Amt" not found`:        classColumnNotFound,
		`Catalog Error: Table with name Sale does not exist`:           classTableNotFound,
		`Conversion Error: Could not convert string 'abc' to DOUBLE`:   classTypeMismatch,
		`Parser Error: syntax error at or near "FORM"`:                 classSyntax,
		`Binder Error: Ambiguous reference to column name "Date"`:      classAmbiguous,
		`IO Error: disk full`:                                          classUnknown,
	}
	for msg, want := range cases {
		assert.Equal(t, want, classifyDBError(msg), msg)
	}
}

func TestHealsColumnNotFound(t *testing.T) {
	fake := duck.NewFake()
	fake.AddTable("Pincode_Sales",
		duck.ColumnInfo{Name: "Sales_Amount", Type: "DOUBLE"})
	bad := `SELECT SUM("Sales_Amt") AS "s" FROM "Pincode_Sales"`
	good := `SELECT SUM("Sales_Amount") AS "s" FROM "Pincode_Sales"`
	fake.StubError(bad, errors.New(`Binder Error: Referenced column "Sales_Amt" not found in FROM clause`))
	fake.StubResult(good, &duck.Result{Columns: []string{"s"}, Rows: [][]any{{float64(9000)}}})

	h := newTestHealer(t, fake)
	p := &models.QueryPlan{QueryType: models.QueryMetric, Table: "Pincode_Sales"}
	result, finalSQL, err := h.ExecuteWithHealing(context.Background(), bad, p)
	require.NoError(t, err)
	assert.Equal(t, good, finalSQL)
	assert.Equal(t, float64(9000), result.ScalarFloat())
}

func TestHealsColumnViaSynonym(t *testing.T) {
	fake := duck.NewFake()
	fake.AddTable("Pincode_Sales")
	bad := `SELECT SUM("revenue") AS "s" FROM "Pincode_Sales"`
	fake.StubError(bad, errors.New(`Binder Error: Referenced column "revenue" not found`))
	fake.QueryFunc = func(sql string) (*duck.Result, error) {
		if strings.Contains(sql, "Sales_Amount") {
			return &duck.Result{Columns: []string{"s"}, Rows: [][]any{{1.0}}}, nil
		}
		return nil, errors.New("unexpected sql: " + sql)
	}

	h := newTestHealer(t, fake)
	p := &models.QueryPlan{QueryType: models.QueryMetric, Table: "Pincode_Sales"}
	_, finalSQL, err := h.ExecuteWithHealing(context.Background(), bad, p)
	require.NoError(t, err)
	assert.Contains(t, finalSQL, `"Sales_Amount"`)
}

func TestHealsTableNotFound(t *testing.T) {
	fake := duck.NewFake()
	fake.AddTable("Pincode_Sales")
	bad := `SELECT * FROM "Pincode_Sale" LIMIT 10`
	fake.StubError(bad, errors.New(`Catalog Error: Table with name Pincode_Sale does not exist`))
	fake.StubResult(`SELECT * FROM "Pincode_Sales" LIMIT 10`,
		&duck.Result{Columns: []string{"a"}, Rows: [][]any{{1}}})

	h := newTestHealer(t, fake)
	p := &models.QueryPlan{QueryType: models.QueryList, Table: "Pincode_Sale"}
	_, finalSQL, err := h.ExecuteWithHealing(context.Background(), bad, p)
	require.NoError(t, err)
	assert.Contains(t, finalSQL, `"Pincode_Sales"`)
	assert.Equal(t, "Pincode_Sales", p.Table, "plan table updated alongside the SQL")
}

func TestTypeMismatchStripsQuotesOnMetric(t *testing.T) {
	prof := testStore(t).Get("Pincode_Sales")
	sql := `SELECT * FROM "T" WHERE "Sales_Amount" > '1000'`
	fixed := fixTypeMismatch(sql, prof)
	assert.Equal(t, `SELECT * FROM "T" WHERE "Sales_Amount" > 1000`, fixed)
}

func TestTypeMismatchCastsTextComparison(t *testing.T) {
	prof := testStore(t).Get("Pincode_Sales")
	sql := `SELECT * FROM "T" WHERE "Category" = 'Electronics'`
	fixed := fixTypeMismatch(sql, prof)
	assert.Equal(t, `SELECT * FROM "T" WHERE TRY_CAST("Category" AS VARCHAR) = 'Electronics'`, fixed)
}

func TestSyntaxFixes(t *testing.T) {
	assert.Equal(t,
		`SELECT * FROM "T" WHERE "c" = 'x'`,
		fixSyntaxError(`SELECT * FROM "T" WHERE "c" = "x"`))

	assert.Equal(t,
		`SELECT * FROM "T" WHERE "c" LIKE '%x%'`,
		fixSyntaxError(`SELECT * FROM "T" WHERE "c" = '%x%'`))

	fixed := fixSyntaxError(`SELECT * FROM Pincode Sales WHERE "c" = 'x'`)
	assert.Contains(t, fixed, `FROM "Pincode Sales"`)
}

func TestAmbiguousColumnQualified(t *testing.T) {
	p := &models.QueryPlan{Table: "Sales"}
	fixed := fixAmbiguousColumn(
		`SELECT "Date" FROM "Sales"`,
		`Binder Error: Ambiguous reference to column name "Date"`, p)
	assert.Contains(t, fixed, `"Sales"."Date"`)
}

func TestRelaxFiltersOrder(t *testing.T) {
	prof := testStore(t).Get("Pincode_Sales")

	// 1: limit grows first.
	sql := `SELECT * FROM "T" WHERE "Category" = 'X' LIMIT 10`
	relaxed := RelaxFilters(sql, prof)
	assert.Contains(t, relaxed, "LIMIT 100")

	// 2: LIKE widening once limit is maxed.
	sql = `SELECT * FROM "T" WHERE "Category" LIKE 'Electronics' LIMIT 1000`
	relaxed = RelaxFilters(sql, prof)
	assert.Contains(t, relaxed, `LIKE '%Electronics%'`)

	// 3: exact dimension match becomes contains.
	sql = `SELECT * FROM "T" WHERE "Category" = 'Electronics' LIMIT 1000`
	relaxed = RelaxFilters(sql, prof)
	assert.Contains(t, relaxed, `"Category" LIKE '%Electronics%'`)

	// Date columns keep exact matching.
	sql = `SELECT * FROM "T" WHERE "Date" = '2025-09-14' LIMIT 1000`
	relaxed = RelaxFilters(sql, prof)
	assert.Equal(t, sql, relaxed)
}

func TestRelaxDropsLastAndButNeverOrGroups(t *testing.T) {
	sql := `SELECT * FROM "T" WHERE "A" = 1 AND "B" = 2`
	assert.Equal(t, `SELECT * FROM "T" WHERE "A" = 1`, dropLastAnd(sql))

	// The trailing group is a disjunction; dropping it would change intent.
	sql = `SELECT * FROM "T" WHERE "A" = 1 AND ("B" = 2 OR "B" = 3)`
	assert.Equal(t, sql, dropLastAnd(sql))
}

func TestEmptyLookupTriggersRelaxation(t *testing.T) {
	fake := duck.NewFake()
	fake.AddTable("Pincode_Sales")
	first := `SELECT * FROM "Pincode_Sales" WHERE "Category" = 'Electro' LIMIT 1`
	fake.QueryFunc = func(sql string) (*duck.Result, error) {
		if strings.Contains(sql, "LIKE") {
			return &duck.Result{Columns: []string{"Category"}, Rows: [][]any{{"Electronics"}}}, nil
		}
		return &duck.Result{}, nil
	}

	h := newTestHealer(t, fake)
	p := &models.QueryPlan{
		QueryType: models.QueryLookup,
		Table:     "Pincode_Sales",
		Filters:   []models.Filter{{Column: "Category", Operator: "=", Value: "Electro"}},
	}
	result, finalSQL, err := h.ExecuteWithHealing(context.Background(), first, p)
	require.NoError(t, err)
	assert.False(t, result.Empty())
	assert.Contains(t, finalSQL, "LIKE")
}

func TestTerminalFailureCarriesHistory(t *testing.T) {
	fake := duck.NewFake()
	fake.AddTable("Pincode_Sales")
	fake.QueryFunc = func(sql string) (*duck.Result, error) {
		return nil, errors.New(`Parser Error: syntax error at or near "FORM"`)
	}

	h := newTestHealer(t, fake)
	p := &models.QueryPlan{QueryType: models.QueryList, Table: "Pincode_Sales"}
	_, _, err := h.ExecuteWithHealing(context.Background(), `SELECT * FORM "Pincode_Sales"`, p)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSQLFailed, apperrors.KindOf(err))

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.NotEmpty(t, execErr.Attempts)
	assert.LessOrEqual(t, len(execErr.Attempts), MaxRetries)
	assert.Equal(t, "syntax", execErr.Attempts[0].Class)
}
