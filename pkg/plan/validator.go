package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/apperrors"
	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Validator is the authoritative gate between the planner and the SQL
// compiler. It mutates plans in place: defaults filled, columns rebound to
// their catalog spellings, hopeless query types downgraded.
type Validator struct {
	catalog duck.Catalog
	logger  *zap.Logger
}

func NewValidator(catalog duck.Catalog, logger *zap.Logger) *Validator {
	return &Validator{catalog: catalog, logger: logger.Named("plan-validator")}
}

// Validate normalizes the plan, checks its shape against the schema, binds
// every identifier to the live catalog, and applies the per-type rules.
// prof supplies the metric registry for the chosen table.
func (v *Validator) Validate(ctx context.Context, p *models.QueryPlan, prof *models.TableProfile) error {
	Normalize(p)

	raw, err := json.Marshal(p)
	if err != nil {
		return apperrors.NewQueryError(apperrors.KindPlanInvalid, "plan not serializable", err)
	}
	if err := ValidateShape(raw); err != nil {
		return apperrors.NewQueryError(apperrors.KindPlanInvalid, err.Error(), err)
	}

	cols, err := v.bindTable(ctx, p)
	if err != nil {
		return err
	}
	if err := v.bindColumns(p, cols); err != nil {
		return err
	}
	if err := checkFilterTypes(p.Filters, cols); err != nil {
		return err
	}
	if err := checkFilterTypes(p.SubsetFilters, cols); err != nil {
		return err
	}
	return v.applyTypeRules(p, prof, cols)
}

// bindTable verifies the plan's table against the live catalog and fixes its
// casing, returning the table's described columns.
func (v *Validator) bindTable(ctx context.Context, p *models.QueryPlan) (map[string]duck.ColumnInfo, error) {
	tables, err := v.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	canonical := ""
	for _, t := range tables {
		if strings.EqualFold(t, p.Table) {
			canonical = t
			break
		}
	}
	if canonical == "" {
		return nil, apperrors.NewQueryError(apperrors.KindPlanInvalid,
			fmt.Sprintf("table %q does not exist", p.Table), nil)
	}
	p.Table = canonical

	described, err := v.catalog.Describe(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", canonical, err)
	}
	cols := make(map[string]duck.ColumnInfo, len(described))
	for _, c := range described {
		cols[strings.ToLower(c.Name)] = c
	}
	return cols, nil
}

// resolveColumn maps a planner-written column name to the catalog spelling:
// case-insensitive exact, then substring containment, then fuzzy ≥0.8.
func resolveColumn(name string, cols map[string]duck.ColumnInfo) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "", false
	}
	if c, ok := cols[lower]; ok {
		return c.Name, true
	}
	for key, c := range cols {
		if strings.Contains(key, lower) || strings.Contains(lower, key) {
			return c.Name, true
		}
	}
	best := ""
	bestScore := 0.0
	for key, c := range cols {
		if s := Similarity(lower, key); s > bestScore {
			best, bestScore = c.Name, s
		}
	}
	if bestScore >= 0.8 {
		return best, true
	}
	return "", false
}

func (v *Validator) bindColumns(p *models.QueryPlan, cols map[string]duck.ColumnInfo) error {
	bind := func(name *string, where string) error {
		if *name == "" {
			return nil
		}
		resolved, ok := resolveColumn(*name, cols)
		if !ok {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				fmt.Sprintf("unknown column %q in %s", *name, where), nil)
		}
		*name = resolved
		return nil
	}
	bindList := func(names []string, where string) error {
		for i := range names {
			if err := bind(&names[i], where); err != nil {
				return err
			}
		}
		return nil
	}
	bindFilters := func(filters []models.Filter, where string) error {
		for i := range filters {
			if err := bind(&filters[i].Column, where); err != nil {
				return err
			}
		}
		return nil
	}
	bindOrder := func(order []models.OrderBy, where string) error {
		for i := range order {
			if err := bind(&order[i].Column, where); err != nil {
				return err
			}
		}
		return nil
	}

	if err := bindList(p.SelectColumns, "select_columns"); err != nil {
		return err
	}
	if err := bindFilters(p.Filters, "filters"); err != nil {
		return err
	}
	if err := bindList(p.GroupBy, "group_by"); err != nil {
		return err
	}
	if err := bindOrder(p.OrderBy, "order_by"); err != nil {
		return err
	}
	if err := bind(&p.AggregationColumn, "aggregation_column"); err != nil {
		return err
	}
	if err := bindFilters(p.SubsetFilters, "subset_filters"); err != nil {
		return err
	}
	if err := bindOrder(p.SubsetOrderBy, "subset_order_by"); err != nil {
		return err
	}

	if c := p.Comparison; c != nil {
		for _, blk := range []*models.AggBlock{&c.PeriodA, &c.PeriodB} {
			if err := bind(&blk.Column, "comparison"); err != nil {
				return err
			}
			if err := bindFilters(blk.Filters, "comparison filters"); err != nil {
				return err
			}
		}
	}
	if pc := p.Percentage; pc != nil {
		for _, part := range []*models.PercentagePart{&pc.Numerator, &pc.Denominator} {
			if err := bind(&part.Column, "percentage"); err != nil {
				return err
			}
			if err := bindFilters(part.Filters, "percentage filters"); err != nil {
				return err
			}
			if err := bindOrder(part.OrderBy, "percentage order_by"); err != nil {
				return err
			}
		}
	}
	if tr := p.Trend; tr != nil {
		if err := bind(&tr.DateColumn, "trend date_column"); err != nil {
			return err
		}
		if err := bind(&tr.ValueColumn, "trend value_column"); err != nil {
			return err
		}
		if tr.GroupBy != "" {
			if err := bind(&tr.GroupBy, "trend group_by"); err != nil {
				return err
			}
		}
	}
	return nil
}

// numericTypes spots DuckDB numeric column types.
var numericTypes = []string{"INT", "DOUBLE", "FLOAT", "DECIMAL", "NUMERIC", "REAL"}

func isNumericType(dtype string) bool {
	upper := strings.ToUpper(dtype)
	for _, t := range numericTypes {
		if strings.Contains(upper, t) {
			return true
		}
	}
	return false
}

// checkFilterTypes enforces value/operator compatibility: LIKE needs a
// string, numeric columns need numeric-coercible values for every other
// operator.
func checkFilterTypes(filters []models.Filter, cols map[string]duck.ColumnInfo) error {
	for _, f := range filters {
		col, ok := cols[strings.ToLower(f.Column)]
		if !ok {
			continue
		}
		if f.Operator == "LIKE" {
			if _, isString := f.Value.(string); !isString {
				return apperrors.NewQueryError(apperrors.KindPlanInvalid,
					fmt.Sprintf("LIKE on %q requires a string value", f.Column), nil)
			}
			continue
		}
		if isNumericType(col.Type) && !numericCoercible(f.Value) {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				fmt.Sprintf("column %q is numeric but filter value %v is not", f.Column, f.Value), nil)
		}
	}
	return nil
}

func numericCoercible(v any) bool {
	switch x := v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return err == nil
	}
	return false
}

// applyTypeRules enforces the per-query-type contracts, downgrading to list
// where the plan cannot be satisfied as written.
func (v *Validator) applyTypeRules(p *models.QueryPlan, prof *models.TableProfile, cols map[string]duck.ColumnInfo) error {
	switch p.QueryType {
	case models.QueryMetric:
		return v.applyMetricRules(p, prof, cols)

	case models.QueryLookup:
		p.SetLimit(1)

	case models.QueryFilter:
		if len(p.Filters) == 0 {
			v.logger.Debug("Filter plan without filters downgraded to list")
			p.QueryType = models.QueryList
		}

	case models.QueryExtremaLookup:
		if len(p.OrderBy) == 0 {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				"extrema_lookup requires order_by", nil)
		}
		p.SetLimit(1)

	case models.QueryRank:
		if len(p.OrderBy) == 0 {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				"rank requires order_by", nil)
		}

	case models.QueryAggregationOnSubset:
		switch p.AggregationFunction {
		case "AVG", "SUM", "COUNT", "MAX", "MIN":
		default:
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				fmt.Sprintf("aggregation_on_subset does not support %q", p.AggregationFunction), nil)
		}
		if p.AggregationColumn == "" {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				"aggregation_on_subset requires aggregation_column", nil)
		}

	case models.QueryComparison:
		if p.Comparison == nil {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				"comparison plan missing comparison block", nil)
		}

	case models.QueryPercentage:
		if p.Percentage == nil {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				"percentage plan missing percentage block", nil)
		}

	case models.QueryTrend:
		if p.Trend == nil {
			return apperrors.NewQueryError(apperrors.KindPlanInvalid,
				"trend plan missing trend block", nil)
		}
	}
	return nil
}

// applyMetricRules checks every metric against the table's metric registry,
// repairing via synonyms and fuzzy matching, and downgrades the whole plan
// to list when no metric survives.
func (v *Validator) applyMetricRules(p *models.QueryPlan, prof *models.TableProfile, cols map[string]duck.ColumnInfo) error {
	if len(p.Metrics) == 0 {
		return apperrors.NewQueryError(apperrors.KindPlanInvalid,
			"metric plan requires at least one metric", nil)
	}

	registry := map[string]string{}
	if prof != nil {
		for _, name := range prof.MetricColumns() {
			registry[strings.ToLower(name)] = name
		}
	}

	resolved := make([]string, 0, len(p.Metrics))
	for _, m := range p.Metrics {
		lower := strings.ToLower(m)
		if name, ok := registry[lower]; ok {
			resolved = append(resolved, name)
			continue
		}
		if prof != nil {
			if name, ok := prof.ColumnForTerm(lower); ok {
				if reg, isMetric := registry[strings.ToLower(name)]; isMetric {
					resolved = append(resolved, reg)
					continue
				}
			}
		}
		best, bestScore := "", 0.0
		for key, name := range registry {
			if s := Similarity(lower, key); s > bestScore {
				best, bestScore = name, s
			}
		}
		if bestScore >= 0.8 {
			resolved = append(resolved, best)
			continue
		}
		// Not a registered metric. If it is at least a real column, keep
		// the plan alive as a projection instead of failing at execution.
		if name, ok := resolveColumn(m, cols); ok {
			v.logger.Debug("Metric plan downgraded to list",
				zap.String("metric", m),
				zap.String("column", name))
			p.QueryType = models.QueryList
			p.SelectColumns = append(p.SelectColumns, name)
			p.SelectColumns = append(p.SelectColumns, resolved...)
			p.Metrics = []string{}
			return nil
		}
		return apperrors.NewQueryError(apperrors.KindPlanInvalid,
			fmt.Sprintf("unknown metric %q", m), nil)
	}
	p.Metrics = resolved
	return nil
}
