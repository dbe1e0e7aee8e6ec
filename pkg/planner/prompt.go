package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

// plannerSystemMessage fixes the output contract: one JSON plan, one of the
// ten query types, nothing else.
const plannerSystemMessage = `You convert a data question about ONE table into a JSON query plan.

Query types:
- "metric": aggregate one or more metric columns (SUM/AVG/COUNT/MAX/MIN), optional filters and group_by.
- "lookup": fetch a single row's values. limit is always 1.
- "filter": return rows matching filters, no aggregation.
- "extrema_lookup": the row with the highest/lowest value. Requires order_by and limit 1.
- "rank": rows ordered by a column, e.g. top 5. Requires order_by.
- "list": plain projection of columns.
- "aggregation_on_subset": aggregate over a top-N subset. Requires aggregation_function, aggregation_column, subset_order_by, subset_limit.
- "comparison": two aggregates compared. Requires the "comparison" block with period_a, period_b, compare_type.
- "percentage": numerator over denominator. Requires the "percentage" block.
- "trend": a metric over time. Requires the "trend" block with date_column, value_column, aggregation, analysis_type.

Rules:
- Use ONLY column names from the schema, exactly as written.
- filters use operators =, >, <, >=, <=, != or LIKE. Use LIKE with % wildcards for partial text matches.
- order_by entries are two-element arrays: ["column", "ASC"] or ["column", "DESC"].
- Dates in filters use YYYY-MM-DD.
- Respond with the JSON plan only. No prose, no markdown.`

// buildPrompt renders the planning prompt: schema, sample values, entities,
// then the question. A worked example pins the output shape.
func buildPrompt(question string, p *models.TableProfile, ents *models.Entities) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: %s (%d rows)\n", p.TableName, p.RowCount)
	sb.WriteString("Schema:\n")

	names := make([]string, 0, len(p.Columns))
	for name := range p.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		col := p.Columns[name]
		fmt.Fprintf(&sb, "- %s (%s, %s)", name, col.DType, col.Role)
		values := col.UniqueValues
		if len(values) == 0 {
			values = col.SampleValues
		}
		if len(values) > 0 {
			if len(values) > 5 {
				values = values[:5]
			}
			fmt.Fprintf(&sb, " values: %s", strings.Join(values, ", "))
		}
		sb.WriteString("\n")
	}

	if ents != nil {
		sb.WriteString("\nExtracted entities:\n")
		if ents.Month != "" {
			fmt.Fprintf(&sb, "- month: %s\n", ents.Month)
		}
		if len(ents.AllMonths) > 1 {
			fmt.Fprintf(&sb, "- months: %s\n", strings.Join(ents.AllMonths, ", "))
		}
		if ents.Metric != "" {
			fmt.Fprintf(&sb, "- metric: %s\n", ents.Metric)
		}
		if ents.Category != "" {
			fmt.Fprintf(&sb, "- category: %s\n", ents.Category)
		}
		if ents.Location != "" {
			fmt.Fprintf(&sb, "- location: %s\n", ents.Location)
		}
		fmt.Fprintf(&sb, "- aggregation: %s\n", ents.Aggregation)
		if ents.TimePeriod != "" {
			fmt.Fprintf(&sb, "- time_period: %s\n", ents.TimePeriod)
		}
		if ents.DateSpecific != nil {
			fmt.Fprintf(&sb, "- date: %s %d\n", ents.DateSpecific.Month, ents.DateSpecific.Day)
		}
	}

	sb.WriteString(`
Example:
Question: total sales in september
Plan: {"query_type": "metric", "table": "Sales", "metrics": ["Sales_Amount"], "filters": [{"column": "Month", "operator": "=", "value": "september"}], "limit": 100}

`)
	fmt.Fprintf(&sb, "Question: %s\nPlan:", question)
	return sb.String()
}
