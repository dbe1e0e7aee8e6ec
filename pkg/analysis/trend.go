package analysis

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/models"
	"github.com/tablechat-ai/tablechat/pkg/sqlgen"
)

// quarterPattern matches quarter labels like "Q3 2025" or "q1-2024".
var quarterPattern = regexp.MustCompile(`(?i)^q([1-4])[\s\-_]*(\d{4})$`)

// Trend executes the per-bucket aggregation for a trend plan and analyzes
// the resulting series.
func (a *Analyzer) Trend(ctx context.Context, p *models.QueryPlan) (*models.TrendResult, error) {
	spec := p.Trend
	if spec == nil {
		return nil, apperrors.NewQueryError(apperrors.KindPlanInvalid, "trend block missing", nil)
	}

	result, err := a.exec.Execute(ctx, sqlgen.TrendSQL(p.Table, spec, p.Filters))
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, apperrors.NewQueryError(apperrors.KindDataEmpty, "trend query returned no rows", nil)
	}

	points := make([]models.DataPoint, 0, result.RowCount())
	for _, row := range result.Rows {
		if len(row) < 2 {
			continue
		}
		points = append(points, models.DataPoint{
			Period: fmt.Sprintf("%v", row[0]),
			Value:  toFloat(row[1]),
		})
	}
	SortChronological(points)

	trend := AnalyzeSeries(points)
	a.logger.Info("Trend computed",
		zap.Int("points", len(points)),
		zap.String("direction", trend.Direction),
		zap.String("confidence", trend.Confidence))
	return trend, nil
}

// SortChronological orders a series by time when the period labels are
// quarter strings or month names; otherwise the incoming (SQL) order is
// kept, which is already chronological for real date columns.
func SortChronological(points []models.DataPoint) {
	if len(points) < 2 {
		return
	}

	allQuarters := true
	allMonths := true
	for _, p := range points {
		if !quarterPattern.MatchString(strings.TrimSpace(p.Period)) {
			allQuarters = false
		}
		if _, ok := models.CanonicalMonth(p.Period); !ok {
			allMonths = false
		}
	}

	switch {
	case allQuarters:
		sort.SliceStable(points, func(i, j int) bool {
			yi, qi := parseQuarter(points[i].Period)
			yj, qj := parseQuarter(points[j].Period)
			if yi != yj {
				return yi < yj
			}
			return qi < qj
		})
	case allMonths:
		sort.SliceStable(points, func(i, j int) bool {
			mi, _ := models.CanonicalMonth(points[i].Period)
			mj, _ := models.CanonicalMonth(points[j].Period)
			return models.MonthNumber(mi) < models.MonthNumber(mj)
		})
	}
}

func parseQuarter(s string) (year, quarter int) {
	m := quarterPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0
	}
	quarter, _ = strconv.Atoi(m[1])
	year, _ = strconv.Atoi(m[2])
	return year, quarter
}

// AnalyzeSeries classifies the direction of a (period, value) series via
// simple linear regression.
func AnalyzeSeries(points []models.DataPoint) *models.TrendResult {
	values := seriesValues(points)
	trend := &models.TrendResult{DataPoints: points}
	if len(values) == 0 {
		trend.Direction = "stable"
		trend.Confidence = "low"
		return trend
	}

	trend.Start = values[0]
	trend.End = values[len(values)-1]
	trend.Min = values[0]
	trend.Max = values[0]
	for _, v := range values {
		trend.Min = math.Min(trend.Min, v)
		trend.Max = math.Max(trend.Max, v)
	}
	trend.Avg = mean(values)
	trend.TotalChange = trend.End - trend.Start
	if trend.Start != 0 {
		trend.PercentageChange = trend.TotalChange / trend.Start * 100
	}

	if trend.Min == trend.Max {
		trend.IsConstant = true
		trend.Direction = "stable"
		trend.Confidence = "high"
		return trend
	}

	slope, _ := linearRegression(values)
	trend.Slope = slope
	if trend.Avg != 0 {
		trend.NormalizedSlope = slope / trend.Avg * 100
	}

	abs := math.Abs(trend.NormalizedSlope)
	switch {
	case abs < 1:
		trend.Direction = "stable"
		if abs < 0.5 {
			trend.Confidence = "high"
		} else {
			trend.Confidence = "medium"
		}
	case trend.NormalizedSlope > 0:
		trend.Direction = "increasing"
		trend.Confidence = slopeConfidence(abs)
	default:
		trend.Direction = "decreasing"
		trend.Confidence = slopeConfidence(abs)
	}
	return trend
}

func slopeConfidence(absNormSlope float64) string {
	switch {
	case absNormSlope > 5:
		return "high"
	case absNormSlope > 2:
		return "medium"
	}
	return "low"
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
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}
