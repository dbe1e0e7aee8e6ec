package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

// ddmmyyyy matches DD/MM/YYYY filter values, with optional LIKE wildcards
// around the date.
var ddmmyyyy = regexp.MustCompile(`^(%?)(\d{1,2})/(\d{1,2})/(\d{4})(%?)$`)

// nonAggregatingTypes are the query types that return rows; metric names
// the planner put in `metrics` belong in `select_columns` for these.
var nonAggregatingTypes = map[models.QueryType]bool{
	models.QueryLookup:        true,
	models.QueryFilter:        true,
	models.QueryList:          true,
	models.QueryExtremaLookup: true,
	models.QueryRank:          true,
}

// Normalize repairs the predictable planner sloppiness before validation:
// nils become defaults, misplaced metrics move to select_columns, and
// DD/MM/YYYY filter values are rewritten to ISO. Idempotent.
func Normalize(p *models.QueryPlan) {
	if p.Metrics == nil {
		p.Metrics = []string{}
	}
	if p.SelectColumns == nil {
		p.SelectColumns = []string{}
	}
	if p.Filters == nil {
		p.Filters = []models.Filter{}
	}
	if p.GroupBy == nil {
		p.GroupBy = []string{}
	}
	if p.OrderBy == nil {
		p.OrderBy = []models.OrderBy{}
	}

	if p.Limit == nil {
		switch p.QueryType {
		case models.QueryLookup, models.QueryExtremaLookup:
			p.SetLimit(1)
		default:
			p.SetLimit(100)
		}
	}

	if nonAggregatingTypes[p.QueryType] && len(p.Metrics) > 0 {
		p.SelectColumns = append(p.SelectColumns, p.Metrics...)
		p.Metrics = []string{}
	}

	for i := range p.Filters {
		p.Filters[i].Value = normalizeDateValue(p.Filters[i].Value)
	}
	for i := range p.SubsetFilters {
		p.SubsetFilters[i].Value = normalizeDateValue(p.SubsetFilters[i].Value)
	}

	p.AggregationFunction = strings.ToUpper(p.AggregationFunction)
	p.DateGrouping = strings.ToUpper(p.DateGrouping)
	for i := range p.OrderBy {
		p.OrderBy[i].Direction = normalizeDirection(p.OrderBy[i].Direction)
	}
	for i := range p.SubsetOrderBy {
		p.SubsetOrderBy[i].Direction = normalizeDirection(p.SubsetOrderBy[i].Direction)
	}
}

// normalizeDateValue rewrites DD/MM/YYYY to YYYY-MM-DD, keeping any LIKE
// wildcards. Already-ISO values pass through untouched.
func normalizeDateValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	m := ddmmyyyy.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return v
	}
	day, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%s%s-%02d-%02d%s", m[1], m[4], month, day, m[5])
}

func normalizeDirection(dir string) string {
	if strings.EqualFold(dir, "desc") {
		return "DESC"
	}
	return "ASC"
}
