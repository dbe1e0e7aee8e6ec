package convo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/extract"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

func TestRingBoundedToTwenty(t *testing.T) {
	c := &Context{SessionID: "s1"}
	for i := 0; i < 25; i++ {
		c.AddTurn(models.ConversationTurn{Question: fmt.Sprintf("q%d", i)})
	}
	require.Len(t, c.Turns, 20)
	assert.Equal(t, "q5", c.Turns[0].Question)
	assert.Equal(t, "q24", c.LastTurn().Question)
}

func TestAddTurnUpdatesActiveState(t *testing.T) {
	c := &Context{SessionID: "s1"}
	ents := models.NewEntities("sales in september")
	ents.Month = "september"
	c.AddTurn(models.ConversationTurn{Question: "sales in september", TableUsed: "Pincode_Sales", Entities: ents})

	assert.Equal(t, "Pincode_Sales", c.ActiveTable)
	require.NotNil(t, c.ActiveEntities)
	assert.Equal(t, "september", c.ActiveEntities.Month)
	assert.NotEmpty(t, c.LastTurn().ID)
	assert.False(t, c.LastTurn().Timestamp.IsZero())

	// A gate-handled turn with no table keeps the previous active table.
	c.AddTurn(models.ConversationTurn{Question: "thanks"})
	assert.Equal(t, "Pincode_Sales", c.ActiveTable)
}

func TestLastResultValuesSkipsTurnsWithout(t *testing.T) {
	c := &Context{SessionID: "s1"}
	c.AddTurn(models.ConversationTurn{Question: "top category", ResultValues: map[string]string{"category": "Sarees"}})
	c.AddTurn(models.ConversationTurn{Question: "thanks"})
	values := c.LastResultValues()
	require.NotNil(t, values)
	assert.Equal(t, "Sarees", values["category"])
}

func TestManagerSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, zap.NewNop())

	c := m.Get("session-a")
	c.AddTurn(models.ConversationTurn{Question: "sales in september", TableUsed: "Pincode_Sales"})
	c.SetPending(&models.PendingClarification{
		OriginalQuestion: "total sales",
		Candidates: []models.ScoredTable{
			{Table: "Pincode_Sales", Score: 55}, {Table: "Monthly_Summary", Score: 52},
		},
	})
	require.NoError(t, m.Save(c))

	reloaded := NewManager(dir, zap.NewNop()).Get("session-a")
	require.Len(t, reloaded.Turns, 1)
	assert.Equal(t, "Pincode_Sales", reloaded.ActiveTable)
	require.NotNil(t, reloaded.Pending)
	require.Len(t, reloaded.Pending.Candidates, 2)
	assert.Equal(t, "Pincode_Sales", reloaded.Pending.Candidates[0].Table)
	assert.False(t, reloaded.Pending.CreatedAt.IsZero())
}

func TestManagerGeneratesSessionID(t *testing.T) {
	m := NewManager("", zap.NewNop())
	c := m.Get("")
	assert.NotEmpty(t, c.SessionID)
}

func TestMatchCandidate(t *testing.T) {
	candidates := []string{"Pincode_Sales", "Monthly_Summary", "September_Top_Products"}

	cases := []struct {
		answer string
		want   int
		ok     bool
	}{
		{"1", 0, true},
		{"the 2nd", 1, true},
		{"first one", 0, true},
		{"முதல்", 0, true},
		{"monthly summary", 1, true},
		{"the pincode one", 0, true},
		{"sep products", 2, true},
		{"neither of those", 0, false},
	}
	for _, tc := range cases {
		got, ok := MatchCandidate(tc.answer, candidates)
		assert.Equal(t, tc.ok, ok, tc.answer)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.answer)
		}
	}
}

func TestMatchPendingClearsState(t *testing.T) {
	ents := models.NewEntities("total sales")
	ents.Metric = "sales"
	c := &Context{SessionID: "s1"}
	c.SetPending(&models.PendingClarification{
		OriginalQuestion: "total sales",
		Candidates: []models.ScoredTable{
			{Table: "Pincode_Sales"}, {Table: "Monthly_Summary"},
		},
		Entities: ents,
	})

	table, got, ok := c.MatchPending("first one")
	require.True(t, ok)
	assert.Equal(t, "Pincode_Sales", table)
	require.NotNil(t, got)
	assert.Equal(t, "sales", got.Metric)
	assert.Nil(t, c.Pending)
}

func TestMatchPendingNonMatchKeepsState(t *testing.T) {
	c := &Context{SessionID: "s1"}
	c.SetPending(&models.PendingClarification{Candidates: []models.ScoredTable{
		{Table: "Pincode_Sales"}, {Table: "Monthly_Summary"},
	}})

	_, _, ok := c.MatchPending("actually show me profit by branch")
	assert.False(t, ok)
	assert.NotNil(t, c.Pending)
}

func TestExtractResultValues(t *testing.T) {
	prof := &models.TableProfile{
		TableName: "Pincode_Sales",
		Columns: map[string]*models.ColumnProfile{
			"Category":     {Name: "Category", Role: models.RoleDimension},
			"Sales_Amount": {Name: "Sales_Amount", Role: models.RoleMetric},
			"Date":         {Name: "Date", Role: models.RoleDate},
		},
	}
	result := &duck.Result{
		Columns: []string{"Category", "Sales_Amount", "Date"},
		Rows: [][]any{
			{"Sarees", float64(45000), "2025-09-14"},
			{"Electronics", float64(30000), "2025-09-14"},
		},
	}

	values := ExtractResultValues(models.QueryRank, result, prof)
	require.NotNil(t, values)
	assert.Equal(t, "Sarees", values["category"])
	assert.Equal(t, "45000", values["sales_amount"])
	assert.NotContains(t, values, "date")
}

func TestExtractResultValuesSkipsNonRowTypes(t *testing.T) {
	result := &duck.Result{Columns: []string{"sum_Sales"}, Rows: [][]any{{float64(1)}}}
	assert.Nil(t, ExtractResultValues(models.QueryMetric, result, nil))
	assert.Nil(t, ExtractResultValues(models.QueryRank, &duck.Result{}, nil))
}

func TestExtractResultValuesWithoutProfile(t *testing.T) {
	result := &duck.Result{
		Columns: []string{"Branch_Name", "sum_Sales_Amount", "internal_flag"},
		Rows:    [][]any{{"Chennai Main", float64(90000), true}},
	}
	values := ExtractResultValues(models.QueryExtremaLookup, result, nil)
	require.NotNil(t, values)
	assert.Equal(t, "Chennai Main", values["location"], "branch columns store under the location key")
	assert.Equal(t, "90000", values["sum_sales_amount"])
	assert.NotContains(t, values, "internal_flag")
}

func TestExtractResultValuesCompoundColumnsResolveReferences(t *testing.T) {
	prof := &models.TableProfile{
		TableName: "Pincode_Sales",
		Columns: map[string]*models.ColumnProfile{
			"Product_Category": {Name: "Product_Category", Role: models.RoleDimension},
			"Area":             {Name: "Area", Role: models.RoleDimension},
			"Sales_Amount":     {Name: "Sales_Amount", Role: models.RoleMetric},
		},
	}
	result := &duck.Result{
		Columns: []string{"Product_Category", "Area", "Sales_Amount"},
		Rows:    [][]any{{"Sarees", "T Nagar", float64(45000)}},
	}

	values := ExtractResultValues(models.QueryRank, result, prof)
	require.NotNil(t, values)
	assert.Equal(t, "Sarees", values["category"])
	assert.Equal(t, "T Nagar", values["location"])

	assert.Equal(t, "sales for Sarees",
		extract.ResolveReferences("sales for that category", values))
	assert.Equal(t, "sales in T Nagar",
		extract.ResolveReferences("sales in that area", values))
}
