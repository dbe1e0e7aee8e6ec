package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Explainer renders a query result as prose. The LLM-backed implementation
// is optional; the template fallback always produces something readable.
type Explainer interface {
	Explain(ctx context.Context, question string, p *models.QueryPlan, result *duck.Result) (string, error)
}

// TemplateExplainer is the deterministic fallback renderer.
type TemplateExplainer struct{}

func (e TemplateExplainer) Explain(_ context.Context, _ string, p *models.QueryPlan, result *duck.Result) (string, error) {
	return e.render(p, result), nil
}

const maxRenderedRows = 10

func (TemplateExplainer) render(p *models.QueryPlan, result *duck.Result) string {
	if result == nil || result.Empty() {
		return "No matching data found."
	}

	// Single aggregate value.
	if result.RowCount() == 1 && len(result.Rows[0]) == 1 {
		return fmt.Sprintf("%s: %s", columnLabel(result.Columns[0]), formatCell(result.Rows[0][0]))
	}

	var b strings.Builder
	switch p.QueryType {
	case models.QueryRank, models.QueryExtremaLookup:
		b.WriteString("Here are the results, best first:\n")
	default:
		fmt.Fprintf(&b, "Found %d rows:\n", result.RowCount())
	}

	rows := result.Rows
	if len(rows) > maxRenderedRows {
		rows = rows[:maxRenderedRows]
	}
	for i, row := range rows {
		parts := make([]string, 0, len(row))
		for j, cell := range row {
			if j >= len(result.Columns) {
				break
			}
			parts = append(parts, fmt.Sprintf("%s=%s", columnLabel(result.Columns[j]), formatCell(cell)))
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(parts, ", "))
	}
	if result.RowCount() > maxRenderedRows {
		fmt.Fprintf(&b, "... and %d more rows", result.RowCount()-maxRenderedRows)
	}
	return strings.TrimRight(b.String(), "\n")
}

// columnLabel makes aggregate aliases readable: "sum_Sales_Amount" becomes
// "total Sales_Amount".
func columnLabel(col string) string {
	for prefix, word := range map[string]string{
		"sum_": "total ", "avg_": "average ", "count_distinct_": "distinct ",
		"count_": "count of ", "max_": "highest ", "min_": "lowest ",
	} {
		if strings.HasPrefix(strings.ToLower(col), prefix) {
			return word + col[len(prefix):]
		}
	}
	return col
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%.2f", x)
	case float32:
		return formatCell(float64(x))
	}
	return fmt.Sprintf("%v", v)
}

func renderTrend(t *models.TrendResult) string {
	if t.IsConstant {
		return fmt.Sprintf("The values are steady at %s across all %d periods.",
			formatCell(t.Start), len(t.DataPoints))
	}
	text := fmt.Sprintf("The trend is %s (%s confidence): from %s to %s",
		t.Direction, t.Confidence, formatCell(t.Start), formatCell(t.End))
	if t.Start != 0 {
		text += fmt.Sprintf(", a %.1f%% change", t.PercentageChange)
	}
	return text + "."
}

func renderProjection(pr *models.ProjectionResult, req *models.ProjectionRequest) string {
	period := strings.ReplaceAll(req.TargetPeriod, "_", " ")
	text := fmt.Sprintf("Projected value for %s: %s (range %s to %s, %s confidence).",
		period, formatCell(pr.ProjectedValue),
		formatCell(pr.RangeLow), formatCell(pr.RangeHigh),
		strings.ToLower(pr.ConfidenceLevel))

	if req.Type == models.ProjectionGoalBased {
		if pr.Reachable {
			text += fmt.Sprintf(" At the current pace you would reach %s in about %d periods.",
				formatCell(pr.TargetValue), pr.PeriodsToGoal)
		} else {
			text += fmt.Sprintf(" The current trend does not reach %s within two years.",
				formatCell(pr.TargetValue))
		}
	}
	return text
}
