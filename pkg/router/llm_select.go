package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/llm"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// routeResponse is the JSON shape the selection model must return.
type routeResponse struct {
	SelectedTable string  `json:"selected_table"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
	Alternative   string  `json:"alternative,omitempty"`
}

const routeSystemMessage = `You select the single best table to answer a data question.
Rules:
- Tables under "PARTIAL / SUMMARY TABLES" contain pre-aggregated or truncated data. NEVER select them for questions that count rows or transactions.
- Prefer tables whose columns and sample values cover the question's entities.
- Respond with JSON only: {"selected_table": "...", "confidence": 0.0-1.0, "reason": "...", "alternative": "..."}`

// partialTableMarkers flag tables holding derived rather than complete data.
var partialTableMarkers = []string{"top_", "summary", "calculation"}

func isPartialTable(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range partialTableMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// buildTableContext renders the compact catalog description the selection
// prompt embeds, partitioned into complete and partial tables.
func buildTableContext(profiles map[string]*models.TableProfile) string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var complete, partial strings.Builder
	for _, name := range names {
		p := profiles[name]
		target := &complete
		if isPartialTable(name) {
			target = &partial
		}
		fmt.Fprintf(target, "- %s (%d rows)", name, p.RowCount)
		if p.SemanticSummary != "" {
			fmt.Fprintf(target, ": %s", p.SemanticSummary)
		}
		target.WriteString("\n")
		if cols := keyColumns(p); len(cols) > 0 {
			fmt.Fprintf(target, "  columns: %s\n", strings.Join(cols, ", "))
		}
		if samples := sampleDimensionValues(p); samples != "" {
			fmt.Fprintf(target, "  values: %s\n", samples)
		}
	}

	var sb strings.Builder
	sb.WriteString("COMPLETE DATA TABLES:\n")
	sb.WriteString(complete.String())
	if partial.Len() > 0 {
		sb.WriteString("\nPARTIAL / SUMMARY TABLES:\n")
		sb.WriteString(partial.String())
	}
	return sb.String()
}

// keyColumns lists up to eight columns, dates and metrics first.
func keyColumns(p *models.TableProfile) []string {
	var cols []string
	add := func(names []string) {
		sort.Strings(names)
		for _, n := range names {
			if len(cols) < 8 {
				cols = append(cols, n)
			}
		}
	}
	add(p.DateColumns())
	add(p.MetricColumns())
	add(p.DimensionColumns())
	return cols
}

func sampleDimensionValues(p *models.TableProfile) string {
	var parts []string
	names := p.DimensionColumns()
	sort.Strings(names)
	for _, name := range names {
		col := p.Columns[name]
		values := col.UniqueValues
		if len(values) == 0 {
			values = col.SampleValues
		}
		if len(values) == 0 {
			continue
		}
		if len(values) > 4 {
			values = values[:4]
		}
		parts = append(parts, fmt.Sprintf("%s=[%s]", name, strings.Join(values, "|")))
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, " ")
}

// llmSelect asks the model to pick a table. ok is false on timeout,
// malformed output, low confidence, or a table unknown to the catalog.
func (s *service) llmSelect(ctx context.Context, question string, live map[string]string) (*routeResponse, bool) {
	prompt := fmt.Sprintf("Question: %s\n\n%s\nWhich table answers this question?",
		question, buildTableContext(s.store.GetAll()))

	resp, err := llm.CallJSON[routeResponse](ctx, s.llmClient, prompt, routeSystemMessage, 0.1, s.timeout)
	if err != nil {
		s.logger.Warn("LLM table selection failed, falling back to scoring",
			zap.Error(err))
		return nil, false
	}
	if resp.Confidence < 0.6 {
		s.logger.Debug("LLM table selection below confidence bar",
			zap.String("table", resp.SelectedTable),
			zap.Float64("confidence", resp.Confidence))
		return nil, false
	}
	canonical, ok := live[strings.ToLower(resp.SelectedTable)]
	if !ok {
		s.logger.Warn("LLM selected a table missing from the catalog",
			zap.String("table", resp.SelectedTable))
		return nil, false
	}
	resp.SelectedTable = canonical
	return &resp, true
}

// liveTableIndex maps lowercase table names to their canonical catalog names.
func liveTableIndex(ctx context.Context, lister interface {
	ListTables(context.Context) ([]string, error)
}) (map[string]string, error) {
	tables, err := lister.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]string, len(tables))
	for _, t := range tables {
		idx[strings.ToLower(t)] = t
	}
	return idx, nil
}
