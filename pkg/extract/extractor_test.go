package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e := NewExtractor(zap.NewNop())
	e.RefreshFromProfiles(map[string]*models.TableProfile{
		"Pincode_Sales": {
			TableName: "Pincode_Sales",
			Columns: map[string]*models.ColumnProfile{
				"Category": {
					Name: "Category", Role: models.RoleDimension,
					SampleValues: []string{"Electronics", "Groceries", "Home Appliances"},
				},
				"Branch_Location": {
					Name: "Branch_Location", Role: models.RoleDimension,
					SampleValues: []string{"Chennai Main", "Chennai", "Madurai"},
				},
				"Payment_Mode": {
					Name: "Payment_Mode", Role: models.RoleDimension,
					SampleValues: []string{"UPI", "Cash", "Card"},
				},
			},
		},
	})
	return e
}

func TestExtractMonthsEnglish(t *testing.T) {
	e := newTestExtractor(t)

	ents := e.Extract("total sales in September")
	assert.Equal(t, "september", ents.Month)
	assert.Equal(t, []string{"september"}, ents.AllMonths)

	ents = e.Extract("compare october vs september sales")
	assert.Equal(t, []string{"october", "september"}, ents.AllMonths)
	assert.True(t, ents.Comparison)
	assert.True(t, ents.MultiMonthComparison)
}

func TestExtractHyphenatedMonthPair(t *testing.T) {
	e := newTestExtractor(t)
	ents := e.Extract("sales growth september-october")
	assert.Equal(t, []string{"september", "october"}, ents.AllMonths)
	assert.True(t, ents.MultiMonthComparison)
}

func TestExtractTamilMonth(t *testing.T) {
	e := newTestExtractor(t)
	ents := e.Extract("செப்டம்பர் மாத மொத்த விற்பனை")
	assert.Equal(t, "september", ents.Month)
}

func TestSingleMonthComparisonIsMultiMonth(t *testing.T) {
	e := newTestExtractor(t)
	ents := e.Extract("how did september compare to the previous month")
	require.Len(t, ents.AllMonths, 1)
	assert.True(t, ents.Comparison)
	assert.True(t, ents.MultiMonthComparison)
}

func TestExtractAggregation(t *testing.T) {
	e := newTestExtractor(t)

	assert.Equal(t, "AVG", e.Extract("average order value in july").Aggregation)
	assert.Equal(t, "COUNT", e.Extract("how many orders came from madurai").Aggregation)
	assert.Equal(t, "MAX", e.Extract("highest sales day in august").Aggregation)
	assert.Equal(t, "COUNT_DISTINCT", e.Extract("unique products sold").Aggregation)
	// Default when no verb appears.
	assert.Equal(t, "SUM", e.Extract("sales for groceries").Aggregation)
}

func TestMetricNeverBecomesCategory(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	// A data column whose values include the word "sales" must not leak
	// into the category slot.
	e.RefreshFromProfiles(map[string]*models.TableProfile{
		"T": {
			TableName: "T",
			Columns: map[string]*models.ColumnProfile{
				"Type": {
					Name: "Type", Role: models.RoleDimension,
					SampleValues: []string{"sales", "service"},
				},
			},
		},
	})
	ents := e.Extract("total sales in september")
	assert.Equal(t, "sales", ents.Metric)
	assert.Empty(t, ents.Category)
}

func TestLongestLocationMatch(t *testing.T) {
	e := newTestExtractor(t)
	ents := e.Extract("sales in chennai main for october")
	assert.Equal(t, "chennai main", ents.Location)

	ents = e.Extract("sales in chennai for october")
	assert.Equal(t, "chennai", ents.Location)
}

func TestCategoryPrecedenceLongerFirst(t *testing.T) {
	e := newTestExtractor(t)
	ents := e.Extract("home appliances sales in july")
	assert.Equal(t, "home appliances", ents.Category)
}

func TestCustomEntities(t *testing.T) {
	e := newTestExtractor(t)
	ents := e.Extract("how many upi transactions in september")
	assert.Equal(t, []string{"upi"}, ents.CustomEntities["payment_mode"])
}

func TestTimePeriod(t *testing.T) {
	e := newTestExtractor(t)
	assert.Equal(t, "top_5", e.Extract("top 5 categories by sales").TimePeriod)
	assert.Equal(t, "last_3_months", e.Extract("sales for the last 3 months").TimePeriod)
	assert.Equal(t, "today", e.Extract("sales today").TimePeriod)
	assert.Equal(t, "yesterday", e.Extract("நேற்று விற்பனை எவ்வளவு").TimePeriod)
}

func TestExplicitTable(t *testing.T) {
	e := newTestExtractor(t)
	assert.Equal(t, "pincode sales", e.Extract("total revenue from the pincode sales table").ExplicitTable)
	assert.Equal(t, "daily summary", e.Extract("in daily summary, what was the total for july").ExplicitTable)
	// "in september" is a date filter, not a table reference.
	assert.Empty(t, e.Extract("in september, what were total sales").ExplicitTable)
}

func TestDateSpecific(t *testing.T) {
	e := newTestExtractor(t)

	d := e.Extract("sales on 14/09/2025").DateSpecific
	require.NotNil(t, d)
	assert.Equal(t, 14, d.Day)
	assert.Equal(t, "september", d.Month)
	assert.Equal(t, 2025, d.Year)

	d = e.Extract("sales on september 14th").DateSpecific
	require.NotNil(t, d)
	assert.Equal(t, 14, d.Day)
	assert.Equal(t, "september", d.Month)

	d = e.Extract("sales on the fourteenth of september").DateSpecific
	require.NotNil(t, d)
	assert.Equal(t, 14, d.Day)
	assert.Equal(t, "september", d.Month)
}

func TestDateSpecificTamilOrdinal(t *testing.T) {
	e := newTestExtractor(t)
	d := e.Extract("செப்டம்பர் பதினான்கு விற்பனை").DateSpecific
	require.NotNil(t, d)
	assert.Equal(t, 14, d.Day)
	assert.Equal(t, "september", d.Month)
}

func TestIntentFlags(t *testing.T) {
	e := newTestExtractor(t)
	assert.True(t, e.Extract("show the sales trend over time").TrendIntent)
	assert.True(t, e.Extract("give me a summary of august").SummaryIntent)
	assert.True(t, e.Extract("what was the impact of the discount").ImpactIntent)
	assert.True(t, e.Extract("grand total across all tables").CrossTableIntent)
}

func TestMultiDomainQuery(t *testing.T) {
	e := newTestExtractor(t)
	assert.True(t, e.Extract("compare revenue and expense for october").MultiDomainQuery)
	assert.False(t, e.Extract("total revenue for october").MultiDomainQuery)
}

func TestDimensionKeywords(t *testing.T) {
	e := newTestExtractor(t)
	ents := e.Extract("sales by category per branch")
	assert.Contains(t, ents.DimensionKeywords, "category")
	assert.Contains(t, ents.DimensionKeywords, "branch")
}

func TestIsFollowupQuestion(t *testing.T) {
	e := newTestExtractor(t)

	followups := []string{
		"how about october",
		"what about chennai",
		"and for groceries?",
		"same for last month",
		"break that down by category",
		"only the top 3",
	}
	for _, q := range followups {
		assert.True(t, e.IsFollowupQuestion(q), "expected follow-up: %q", q)
	}

	standalone := []string{
		"what were total sales in september",
		"show me the top 5 categories by revenue",
		"how many orders came from madurai last month",
	}
	for _, q := range standalone {
		assert.False(t, e.IsFollowupQuestion(q), "expected standalone: %q", q)
	}
}

func TestResolveReferences(t *testing.T) {
	got := ResolveReferences("show the trend for that category", map[string]string{"category": "Electronics"})
	assert.Equal(t, "show the trend for Electronics", got)

	// Unresolvable references pass through unchanged.
	got = ResolveReferences("show the trend for that category", nil)
	assert.Equal(t, "show the trend for that category", got)
}

func TestTamilNumberWords(t *testing.T) {
	assert.Equal(t, 1, TamilNumber("ஒன்று"))
	assert.Equal(t, 14, TamilNumber("பதினான்கு"))
	assert.Equal(t, 31, TamilNumber("முப்பத்தொன்று"))
	assert.Equal(t, 1, TamilNumber("முதல்"))
	assert.Equal(t, 0, TamilNumber("விற்பனை"))
}

func TestOrdinalNumber(t *testing.T) {
	assert.Equal(t, 2, OrdinalNumber("second"))
	assert.Equal(t, 21, OrdinalNumber("twenty-first"))
	assert.Equal(t, 0, OrdinalNumber("september"))
}
