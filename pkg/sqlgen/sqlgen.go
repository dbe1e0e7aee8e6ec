// Package sqlgen compiles validated plans into single SQL statements. It is
// deliberately small: the validator has already locked every semantic
// choice, so compilation is string assembly with strict quoting.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Compile turns a validated plan into one SQL statement. Advanced types
// (comparison, percentage, trend) are multi-statement and handled by the
// analysis operators, not here.
func Compile(p *models.QueryPlan) (string, error) {
	if p.IsAdvanced() {
		return "", apperrors.NewQueryError(apperrors.KindUnsupportedQuery,
			fmt.Sprintf("%s plans are not single-statement", p.QueryType), nil)
	}
	if p.QueryType == models.QueryAggregationOnSubset {
		return compileSubset(p), nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectClause(p))
	sb.WriteString(" FROM ")
	sb.WriteString(duck.QuoteIdentifier(p.Table))

	if where := WhereClause(p.Filters); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if group := groupClause(p); group != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(group)
	}
	if order := orderClause(p.OrderBy); order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}
	if limit := p.LimitValue(); limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String(), nil
}

func selectClause(p *models.QueryPlan) string {
	if p.IsAggregating() {
		var parts []string
		for _, g := range groupColumns(p) {
			parts = append(parts, g.expr)
		}
		agg := p.AggregationFunction
		if agg == "" {
			agg = "SUM"
		}
		for _, m := range p.Metrics {
			parts = append(parts, aggregateExpr(agg, m))
		}
		return strings.Join(parts, ", ")
	}

	if len(p.SelectColumns) > 0 {
		quoted := make([]string, len(p.SelectColumns))
		for i, c := range p.SelectColumns {
			quoted[i] = duck.QuoteIdentifier(c)
		}
		return strings.Join(quoted, ", ")
	}
	return "*"
}

// aggregateExpr renders one aggregate with a stable alias.
func aggregateExpr(fn, column string) string {
	quoted := duck.QuoteIdentifier(column)
	alias := duck.QuoteIdentifier(strings.ToLower(fn) + "_" + strings.ToLower(column))
	if fn == "COUNT_DISTINCT" {
		return fmt.Sprintf("COUNT(DISTINCT %s) AS %s", quoted, alias)
	}
	return fmt.Sprintf("%s(%s) AS %s", fn, quoted, alias)
}

type groupColumn struct {
	expr string
	key  string
}

// groupColumns renders GROUP BY expressions, replacing a date column with
// its date-part extraction when date_grouping is set.
func groupColumns(p *models.QueryPlan) []groupColumn {
	var out []groupColumn
	for _, g := range p.GroupBy {
		quoted := duck.QuoteIdentifier(g)
		if p.DateGrouping != "" {
			out = append(out, groupColumn{
				expr: fmt.Sprintf("EXTRACT(%s FROM %s)", p.DateGrouping, quoted),
				key:  fmt.Sprintf("EXTRACT(%s FROM %s)", p.DateGrouping, quoted),
			})
			continue
		}
		out = append(out, groupColumn{expr: quoted, key: quoted})
	}
	return out
}

func groupClause(p *models.QueryPlan) string {
	cols := groupColumns(p)
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.key
	}
	return strings.Join(keys, ", ")
}

func orderClause(order []models.OrderBy) string {
	if len(order) == 0 {
		return ""
	}
	parts := make([]string, len(order))
	for i, o := range order {
		dir := "ASC"
		if strings.EqualFold(o.Direction, "DESC") {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", duck.QuoteIdentifier(o.Column), dir)
	}
	return strings.Join(parts, ", ")
}

// WhereClause renders filters with same-column disjunction: conditions on
// the same column are ORed inside parentheses, groups on different columns
// are ANDed. Column group order follows first appearance.
func WhereClause(filters []models.Filter) string {
	if len(filters) == 0 {
		return ""
	}
	grouped := map[string][]string{}
	var order []string
	for _, f := range filters {
		cond := fmt.Sprintf("%s %s %s",
			duck.QuoteIdentifier(f.Column), f.Operator, renderValue(f.Value))
		if _, seen := grouped[f.Column]; !seen {
			order = append(order, f.Column)
		}
		grouped[f.Column] = append(grouped[f.Column], cond)
	}

	var parts []string
	for _, col := range order {
		conds := grouped[col]
		if len(conds) == 1 {
			parts = append(parts, conds[0])
		} else {
			parts = append(parts, "("+strings.Join(conds, " OR ")+")")
		}
	}
	return strings.Join(parts, " AND ")
}

func renderValue(v any) string {
	switch x := v.(type) {
	case string:
		return duck.QuoteLiteral(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case int:
		return fmt.Sprintf("%d", x)
	case int64:
		return fmt.Sprintf("%d", x)
	}
	return duck.QuoteLiteral(fmt.Sprintf("%v", v))
}

// compileSubset renders the "top N then aggregate" shape: an outer
// aggregate over an ordered, limited subquery.
func compileSubset(p *models.QueryPlan) string {
	var inner strings.Builder
	inner.WriteString("SELECT * FROM ")
	inner.WriteString(duck.QuoteIdentifier(p.Table))
	if where := WhereClause(p.SubsetFilters); where != "" {
		inner.WriteString(" WHERE ")
		inner.WriteString(where)
	}
	if order := orderClause(p.SubsetOrderBy); order != "" {
		inner.WriteString(" ORDER BY ")
		inner.WriteString(order)
	}
	if p.SubsetLimit > 0 {
		fmt.Fprintf(&inner, " LIMIT %d", p.SubsetLimit)
	}

	return fmt.Sprintf("SELECT %s FROM (%s) AS subset",
		aggregateExpr(p.AggregationFunction, p.AggregationColumn), inner.String())
}

// AggregateSQL renders a single-aggregate statement for one side of a
// comparison.
func AggregateSQL(table string, blk models.AggBlock) string {
	if blk.Table != "" {
		table = blk.Table
	}
	sql := fmt.Sprintf("SELECT %s FROM %s",
		aggregateExpr(blk.Aggregation, blk.Column), duck.QuoteIdentifier(table))
	if where := WhereClause(blk.Filters); where != "" {
		sql += " WHERE " + where
	}
	return sql
}

// PercentagePartSQL renders one side of a percentage: a plain aggregate, or
// an aggregate over an ordered, limited subquery when the part carries its
// own order_by and limit.
func PercentagePartSQL(table string, part models.PercentagePart) string {
	agg := aggregateExpr(part.Aggregation, part.Column)
	if len(part.OrderBy) == 0 && part.Limit == 0 {
		sql := fmt.Sprintf("SELECT %s FROM %s", agg, duck.QuoteIdentifier(table))
		if where := WhereClause(part.Filters); where != "" {
			sql += " WHERE " + where
		}
		return sql
	}

	var inner strings.Builder
	inner.WriteString("SELECT * FROM ")
	inner.WriteString(duck.QuoteIdentifier(table))
	if where := WhereClause(part.Filters); where != "" {
		inner.WriteString(" WHERE ")
		inner.WriteString(where)
	}
	if order := orderClause(part.OrderBy); order != "" {
		inner.WriteString(" ORDER BY ")
		inner.WriteString(order)
	}
	if part.Limit > 0 {
		fmt.Fprintf(&inner, " LIMIT %d", part.Limit)
	}
	return fmt.Sprintf("SELECT %s FROM (%s) AS subset", agg, inner.String())
}

// TrendSQL renders the per-bucket aggregation feeding trend analysis:
// value per date bucket, chronological.
func TrendSQL(table string, spec *models.TrendSpec, filters []models.Filter) string {
	dateCol := duck.QuoteIdentifier(spec.DateColumn)
	agg := spec.Aggregation
	if agg == "" {
		agg = "SUM"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s, %s FROM %s",
		dateCol, aggregateExpr(agg, spec.ValueColumn), duck.QuoteIdentifier(table))
	if where := WhereClause(filters); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	fmt.Fprintf(&sb, " GROUP BY %s ORDER BY %s", dateCol, dateCol)
	return sb.String()
}
