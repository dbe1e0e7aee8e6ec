package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/llm"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// RuleBasedSummary produces the deterministic two-sentence semantic summary
// ("Contains: ... Use for: ...") for a profile. It is the fallback for the
// LLM path and the default when LLM summaries are disabled.
func RuleBasedSummary(p *models.TableProfile) string {
	metrics := sortedNames(p.MetricColumns())
	dims := sortedNames(p.DimensionColumns())

	var contains []string
	if len(metrics) > 0 {
		contains = append(contains, fmt.Sprintf("metrics %s", strings.Join(head(metrics, 4), ", ")))
	}
	if len(dims) > 0 {
		contains = append(contains, fmt.Sprintf("dimensions %s", strings.Join(head(dims, 4), ", ")))
	}
	if len(p.DateRange.Months) > 0 {
		contains = append(contains, fmt.Sprintf("data for %s", strings.Join(p.DateRange.Months, ", ")))
	}
	if len(contains) == 0 {
		contains = append(contains, fmt.Sprintf("%d columns across %d rows", p.ColumnCount, p.RowCount))
	}

	usage := "general lookups"
	switch p.TableType {
	case models.TableTransactional:
		usage = "row-level questions, counts, and date-filtered aggregations"
	case models.TableSummary:
		usage = "pre-aggregated totals; not suited to row counts"
	case models.TableCategoryBreakdown:
		usage = "per-category comparisons and rankings"
	case models.TablePivot:
		usage = "month-over-month comparisons across pivoted columns"
	case models.TableItemLevel:
		usage = "item and SKU level detail"
	case models.TableLookup:
		usage = "reference lookups"
	}

	return fmt.Sprintf("Contains: %s. Use for: %s.", strings.Join(contains, "; "), usage)
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// summarySystemMessage keeps the model on the fixed two-sentence format.
const summarySystemMessage = `You are a data catalog writer. Given one table's columns, produce exactly two sentences in the form "Contains: ... Use for: ...". Respond with JSON only: {"summary": "..."}`

// LLMSummary asks the model for a semantic summary, falling back to the
// rule-based one on timeout or malformed output.
func LLMSummary(ctx context.Context, client llm.Client, p *models.TableProfile, timeout time.Duration, logger *zap.Logger) string {
	prompt := summaryPrompt(p)
	resp, err := llm.CallJSON[summaryResponse](ctx, client, prompt, summarySystemMessage, 0.2, timeout)
	if err != nil || !isTwoSentences(resp.Summary) {
		logger.Debug("LLM summary fell back to rule-based",
			zap.String("table", p.TableName),
			zap.Error(err))
		return RuleBasedSummary(p)
	}
	return resp.Summary
}

func summaryPrompt(p *models.TableProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: %s (%d rows)\n", p.TableName, p.RowCount)
	fmt.Fprintf(&sb, "Type: %s, granularity: %s\n", p.TableType, p.Granularity)
	sb.WriteString("Columns:\n")

	names := make([]string, 0, len(p.Columns))
	for name := range p.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		col := p.Columns[name]
		fmt.Fprintf(&sb, "- %s (%s, role=%s)", name, col.DType, col.Role)
		if len(col.SampleValues) > 0 {
			fmt.Fprintf(&sb, " e.g. %s", strings.Join(head(col.SampleValues, 3), ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// isTwoSentences enforces the "Contains: ... Use for: ..." contract loosely:
// both markers present and a sane length.
func isTwoSentences(s string) bool {
	return strings.Contains(s, "Contains:") && strings.Contains(s, "Use for:") && len(s) < 600
}

func sortedNames(names []string) []string {
	sort.Strings(names)
	return names
}
