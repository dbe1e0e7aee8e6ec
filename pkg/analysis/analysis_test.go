package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

type fakeExec struct {
	results map[string]*duck.Result
	fn      func(sql string) (*duck.Result, error)
	queries []string
}

func (f *fakeExec) Execute(_ context.Context, sql string) (*duck.Result, error) {
	f.queries = append(f.queries, sql)
	if f.fn != nil {
		return f.fn(sql)
	}
	if r, ok := f.results[sql]; ok {
		return r, nil
	}
	return &duck.Result{}, nil
}

func scalarResult(v float64) *duck.Result {
	return &duck.Result{Columns: []string{"v"}, Rows: [][]any{{v}}}
}

func TestCompare(t *testing.T) {
	exec := &fakeExec{fn: func(sql string) (*duck.Result, error) {
		if strings.Contains(sql, "'2025-08-%'") {
			return scalarResult(100000), nil
		}
		return scalarResult(125000), nil
	}}
	a := NewAnalyzer(exec, zap.NewNop())

	p := &models.QueryPlan{
		QueryType: models.QueryComparison,
		Table:     "Pincode_Sales",
		Comparison: &models.ComparisonSpec{
			PeriodA: models.AggBlock{
				Label: "August", Column: "Sales_Amount", Aggregation: "SUM",
				Filters: []models.Filter{{Column: "Date", Operator: "LIKE", Value: "2025-08-%"}},
			},
			PeriodB: models.AggBlock{
				Label: "September", Column: "Sales_Amount", Aggregation: "SUM",
				Filters: []models.Filter{{Column: "Date", Operator: "LIKE", Value: "2025-09-%"}},
			},
			CompareType: "percentage_change",
		},
	}

	result, err := a.Compare(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, float64(25000), result.Difference)
	assert.InDelta(t, 25.0, result.PercentageChange, 1e-9)
	assert.Equal(t, "increased", result.Direction)
	assert.Equal(t, "↑", result.DirectionGlyph)
	assert.Len(t, exec.queries, 2)
}

func TestCompareUnchanged(t *testing.T) {
	exec := &fakeExec{fn: func(string) (*duck.Result, error) {
		return scalarResult(500), nil
	}}
	a := NewAnalyzer(exec, zap.NewNop())

	p := &models.QueryPlan{
		Table: "T",
		Comparison: &models.ComparisonSpec{
			PeriodA: models.AggBlock{Column: "c", Aggregation: "SUM"},
			PeriodB: models.AggBlock{Column: "c", Aggregation: "SUM"},
		},
	}
	result, err := a.Compare(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "unchanged", result.Direction)
	assert.Equal(t, "→", result.DirectionGlyph)
	assert.Equal(t, 1.0, result.Ratio)
}

func TestPercentage(t *testing.T) {
	exec := &fakeExec{fn: func(sql string) (*duck.Result, error) {
		if strings.Contains(sql, "'Electronics'") {
			return scalarResult(30000), nil
		}
		return scalarResult(120000), nil
	}}
	a := NewAnalyzer(exec, zap.NewNop())

	p := &models.QueryPlan{
		Table: "Pincode_Sales",
		Percentage: &models.PercentageSpec{
			Numerator: models.PercentagePart{
				Column: "Sales_Amount", Aggregation: "SUM",
				Filters: []models.Filter{{Column: "Category", Operator: "=", Value: "Electronics"}},
			},
			Denominator: models.PercentagePart{Column: "Sales_Amount", Aggregation: "SUM"},
		},
	}
	result, err := a.Percentage(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, result.Percentage, 1e-9)
}

func TestPercentageZeroDenominator(t *testing.T) {
	exec := &fakeExec{fn: func(string) (*duck.Result, error) {
		return scalarResult(0), nil
	}}
	a := NewAnalyzer(exec, zap.NewNop())

	p := &models.QueryPlan{
		Table: "T",
		Percentage: &models.PercentageSpec{
			Numerator:   models.PercentagePart{Column: "c", Aggregation: "SUM"},
			Denominator: models.PercentagePart{Column: "c", Aggregation: "SUM"},
		},
	}
	_, err := a.Percentage(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDataEmpty, apperrors.KindOf(err))
}

func TestTrendIncreasing(t *testing.T) {
	exec := &fakeExec{fn: func(string) (*duck.Result, error) {
		return &duck.Result{
			Columns: []string{"Month", "total"},
			Rows: [][]any{
				{"july", float64(80000)},
				{"august", float64(100000)},
				{"september", float64(125000)},
			},
		}, nil
	}}
	a := NewAnalyzer(exec, zap.NewNop())

	p := &models.QueryPlan{
		QueryType: models.QueryTrend,
		Table:     "Monthly_Summary",
		Trend: &models.TrendSpec{
			DateColumn: "Month", ValueColumn: "Sales_Amount", Aggregation: "SUM",
		},
	}
	trend, err := a.Trend(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "increasing", trend.Direction)
	assert.Equal(t, float64(80000), trend.Start)
	assert.Equal(t, float64(125000), trend.End)
	assert.InDelta(t, 56.25, trend.PercentageChange, 1e-9)
	assert.Equal(t, "high", trend.Confidence)
}

func TestTrendMissingBlock(t *testing.T) {
	a := NewAnalyzer(&fakeExec{}, zap.NewNop())
	_, err := a.Trend(context.Background(), &models.QueryPlan{Table: "T"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPlanInvalid, apperrors.KindOf(err))
}

func TestSortChronologicalQuarters(t *testing.T) {
	points := []models.DataPoint{
		{Period: "Q1 2026", Value: 4},
		{Period: "Q3 2025", Value: 2},
		{Period: "Q2 2025", Value: 1},
		{Period: "Q4 2025", Value: 3},
	}
	SortChronological(points)
	assert.Equal(t, "Q2 2025", points[0].Period)
	assert.Equal(t, "Q1 2026", points[3].Period)
}

func TestSortChronologicalMonths(t *testing.T) {
	points := []models.DataPoint{
		{Period: "September", Value: 3},
		{Period: "july", Value: 1},
		{Period: "August", Value: 2},
	}
	SortChronological(points)
	assert.Equal(t, "july", points[0].Period)
	assert.Equal(t, "September", points[2].Period)
}

func TestSortChronologicalKeepsUnknownLabels(t *testing.T) {
	points := []models.DataPoint{
		{Period: "2025-09-14", Value: 2},
		{Period: "2025-09-13", Value: 1},
	}
	SortChronological(points)
	assert.Equal(t, "2025-09-14", points[0].Period)
}

func TestAnalyzeSeriesConstant(t *testing.T) {
	trend := AnalyzeSeries([]models.DataPoint{
		{Period: "july", Value: 500},
		{Period: "august", Value: 500},
		{Period: "september", Value: 500},
	})
	assert.True(t, trend.IsConstant)
	assert.Equal(t, "stable", trend.Direction)
	assert.Equal(t, "high", trend.Confidence)
}

func TestAnalyzeSeriesStableWithNoise(t *testing.T) {
	trend := AnalyzeSeries([]models.DataPoint{
		{Period: "july", Value: 1000},
		{Period: "august", Value: 1004},
		{Period: "september", Value: 998},
		{Period: "october", Value: 1002},
	})
	assert.Equal(t, "stable", trend.Direction)
	assert.False(t, trend.IsConstant)
}

func TestAnalyzeSeriesDecreasing(t *testing.T) {
	trend := AnalyzeSeries([]models.DataPoint{
		{Period: "july", Value: 1000},
		{Period: "august", Value: 800},
		{Period: "september", Value: 600},
	})
	assert.Equal(t, "decreasing", trend.Direction)
	assert.Equal(t, "high", trend.Confidence)
	assert.Negative(t, trend.Slope)
}

func TestDetectProjection(t *testing.T) {
	req, ok := DetectProjection("If this trend continues, what will sales be next month?")
	require.True(t, ok)
	assert.Equal(t, models.ProjectionContinuation, req.Type)
	assert.Equal(t, "next_month", req.TargetPeriod)
	assert.Equal(t, 1, req.PeriodsAhead)

	req, ok = DetectProjection("Forecast revenue for the next 3 months")
	require.True(t, ok)
	assert.Equal(t, models.ProjectionFutureValue, req.Type)
	assert.Equal(t, "next_3_months", req.TargetPeriod)
	assert.Equal(t, 3, req.PeriodsAhead)

	req, ok = DetectProjection("When will we reach 10 lakhs in sales?")
	require.True(t, ok)
	assert.Equal(t, models.ProjectionGoalBased, req.Type)
	assert.Equal(t, float64(1000000), req.TargetValue)

	req, ok = DetectProjection("Will we beat last quarter next quarter?")
	require.True(t, ok)
	assert.Equal(t, models.ProjectionComparisonBased, req.Type)
	assert.Equal(t, 3, req.PeriodsAhead)

	_, ok = DetectProjection("What were sales in september?")
	assert.False(t, ok)
}

func TestDetectProjectionCrore(t *testing.T) {
	req, ok := DetectProjection("How long until we hit 1.5 crore?")
	require.True(t, ok)
	assert.Equal(t, models.ProjectionGoalBased, req.Type)
	assert.Equal(t, 1.5e7, req.TargetValue)
}

func TestResolvePeriodsAhead(t *testing.T) {
	req := &models.ProjectionRequest{TargetPeriod: "december", PeriodsAhead: 1}
	points := []models.DataPoint{
		{Period: "august", Value: 1},
		{Period: "september", Value: 2},
	}
	ResolvePeriodsAhead(req, points)
	assert.Equal(t, 3, req.PeriodsAhead)

	// Same month as the last data point means a full year out.
	req = &models.ProjectionRequest{TargetPeriod: "september", PeriodsAhead: 1}
	ResolvePeriodsAhead(req, points)
	assert.Equal(t, 12, req.PeriodsAhead)
}

func projectionPoints(values ...float64) []models.DataPoint {
	points := make([]models.DataPoint, len(values))
	for i, v := range values {
		points[i] = models.DataPoint{Period: models.MonthNames[i], Value: v}
	}
	return points
}

func TestProjectMomentumOnShortSeries(t *testing.T) {
	req := &models.ProjectionRequest{Type: models.ProjectionFutureValue, PeriodsAhead: 1}
	result := Project(projectionPoints(100, 120), "low", req)
	assert.Equal(t, "momentum", result.Method)
	assert.Equal(t, float64(140), result.ProjectedValue)
	assert.LessOrEqual(t, result.ConfidenceScore, 0.6)
}

func TestProjectRegressionOnSteadySeries(t *testing.T) {
	req := &models.ProjectionRequest{Type: models.ProjectionFutureValue, PeriodsAhead: 1}
	result := Project(projectionPoints(100, 110, 120, 130), "high", req)
	assert.Equal(t, "linear_regression", result.Method)
	assert.InDelta(t, 140, result.ProjectedValue, 1e-9)
	assert.Greater(t, result.RangeHigh, result.ProjectedValue)
	assert.Less(t, result.RangeLow, result.ProjectedValue)
	assert.Equal(t, "HIGH", result.ConfidenceLevel)
}

func TestProjectSmoothingOnNoisySeries(t *testing.T) {
	req := &models.ProjectionRequest{Type: models.ProjectionFutureValue, PeriodsAhead: 2}
	result := Project(projectionPoints(100, 400, 150, 500, 120, 450), "low", req)
	assert.Equal(t, "exponential_smoothing", result.Method)
	assert.GreaterOrEqual(t, result.ProjectedValue, 0.0)
	assert.GreaterOrEqual(t, result.ConfidenceScore, 0.25)
	assert.LessOrEqual(t, result.ConfidenceScore, 0.95)
}

func TestProjectNeverNegative(t *testing.T) {
	req := &models.ProjectionRequest{Type: models.ProjectionFutureValue, PeriodsAhead: 6}
	result := Project(projectionPoints(300, 200, 100), "high", req)
	assert.GreaterOrEqual(t, result.ProjectedValue, 0.0)
	assert.GreaterOrEqual(t, result.RangeLow, 0.0)
}

func TestProjectGoalReachable(t *testing.T) {
	req := &models.ProjectionRequest{
		Type:         models.ProjectionGoalBased,
		PeriodsAhead: 1,
		TargetValue:  200,
	}
	result := Project(projectionPoints(100, 110, 120, 130), "high", req)
	assert.True(t, result.Reachable)
	assert.Equal(t, 7, result.PeriodsToGoal)
	assert.Equal(t, float64(200), result.TargetValue)
}

func TestProjectGoalUnreachableWhenTrendOpposes(t *testing.T) {
	req := &models.ProjectionRequest{
		Type:         models.ProjectionGoalBased,
		PeriodsAhead: 1,
		TargetValue:  500,
	}
	result := Project(projectionPoints(130, 120, 110, 100), "high", req)
	assert.False(t, result.Reachable)
	assert.Zero(t, result.PeriodsToGoal)
}

func TestLinearRegression(t *testing.T) {
	slope, intercept := linearRegression([]float64{2, 4, 6, 8})
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 2.0, intercept, 1e-9)

	slope, _ = linearRegression([]float64{5, 5, 5})
	assert.Zero(t, slope)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Zero(t, coefficientOfVariation([]float64{100, 100, 100}))
	assert.Greater(t, coefficientOfVariation([]float64{100, 400, 150}), 0.3)
}
