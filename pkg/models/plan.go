package models

import (
	"encoding/json"
	"fmt"
)

// QueryType enumerates the ten supported query modes. The set is closed;
// the validator rejects anything else.
type QueryType string

const (
	QueryMetric              QueryType = "metric"
	QueryLookup              QueryType = "lookup"
	QueryFilter              QueryType = "filter"
	QueryExtremaLookup       QueryType = "extrema_lookup"
	QueryRank                QueryType = "rank"
	QueryList                QueryType = "list"
	QueryAggregationOnSubset QueryType = "aggregation_on_subset"
	QueryComparison          QueryType = "comparison"
	QueryPercentage          QueryType = "percentage"
	QueryTrend               QueryType = "trend"
)

// QueryTypes lists every valid query type.
var QueryTypes = []QueryType{
	QueryMetric, QueryLookup, QueryFilter, QueryExtremaLookup, QueryRank,
	QueryList, QueryAggregationOnSubset, QueryComparison, QueryPercentage,
	QueryTrend,
}

// FilterOperators is the closed operator whitelist for plan filters.
var FilterOperators = []string{"=", ">", "<", ">=", "<=", "!=", "LIKE"}

// AggregationFunctions is the closed set of aggregation functions.
var AggregationFunctions = []string{"AVG", "SUM", "COUNT", "MAX", "MIN", "COUNT_DISTINCT"}

// DateGroupings is the closed set of date-part groupings.
var DateGroupings = []string{"MONTH", "YEAR", "WEEK", "DAY", "QUARTER"}

// Filter is one WHERE condition in a plan.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// OrderBy is one ORDER BY term. On the wire it is the two-element array
// form the planner emits: ["column", "ASC"|"DESC"].
type OrderBy struct {
	Column    string
	Direction string
}

// UnmarshalJSON accepts both ["col","DESC"] and {"column":...,"direction":...}.
func (o *OrderBy) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("order_by entry must have exactly 2 elements, got %d", len(pair))
		}
		o.Column, o.Direction = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Column    string `json:"column"`
		Direction string `json:"direction"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("order_by entry: %w", err)
	}
	o.Column, o.Direction = obj.Column, obj.Direction
	return nil
}

// MarshalJSON emits the array form.
func (o OrderBy) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{o.Column, o.Direction})
}

// AggBlock is one side of a comparison: a single aggregate over a table.
type AggBlock struct {
	Label       string   `json:"label"`
	Table       string   `json:"table,omitempty"`
	Column      string   `json:"column"`
	Filters     []Filter `json:"filters,omitempty"`
	Aggregation string   `json:"aggregation"`
}

// ComparisonSpec configures a two-period comparison plan.
type ComparisonSpec struct {
	PeriodA     AggBlock `json:"period_a"`
	PeriodB     AggBlock `json:"period_b"`
	CompareType string   `json:"compare_type"` // difference | percentage_change | ratio
}

// PercentagePart is the numerator or denominator aggregate of a percentage
// plan. The numerator may carry an inner ORDER BY + LIMIT subquery.
type PercentagePart struct {
	Column      string    `json:"column"`
	Filters     []Filter  `json:"filters,omitempty"`
	Aggregation string    `json:"aggregation"`
	OrderBy     []OrderBy `json:"order_by,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// PercentageSpec configures a percentage plan.
type PercentageSpec struct {
	Numerator   PercentagePart `json:"numerator"`
	Denominator PercentagePart `json:"denominator"`
}

// TrendSpec configures a trend plan.
type TrendSpec struct {
	DateColumn   string `json:"date_column"`
	ValueColumn  string `json:"value_column"`
	Aggregation  string `json:"aggregation"`
	AnalysisType string `json:"analysis_type"` // direction | pattern
	GroupBy      string `json:"group_by,omitempty"`
}

// QueryPlan is the single JSON document the planner emits and the validator
// locks down. Unknown top-level keys are rejected by the schema check.
type QueryPlan struct {
	QueryType     QueryType `json:"query_type"`
	Table         string    `json:"table"`
	Metrics       []string  `json:"metrics,omitempty"`
	SelectColumns []string  `json:"select_columns,omitempty"`
	Filters       []Filter  `json:"filters,omitempty"`
	GroupBy       []string  `json:"group_by,omitempty"`
	OrderBy       []OrderBy `json:"order_by,omitempty"`

	// Limit is a pointer so a planner-emitted null can be repaired to the
	// per-type default (1 for lookup/extrema_lookup, else 100).
	Limit *int `json:"limit,omitempty"`

	AggregationFunction string `json:"aggregation_function,omitempty"`
	AggregationColumn   string `json:"aggregation_column,omitempty"`

	SubsetFilters []Filter  `json:"subset_filters,omitempty"`
	SubsetOrderBy []OrderBy `json:"subset_order_by,omitempty"`
	SubsetLimit   int       `json:"subset_limit,omitempty"`

	Comparison *ComparisonSpec `json:"comparison,omitempty"`
	Percentage *PercentageSpec `json:"percentage,omitempty"`
	Trend      *TrendSpec      `json:"trend,omitempty"`

	DateGrouping string `json:"date_grouping,omitempty"`
}

// IsAdvanced reports whether the plan needs the multi-step operators rather
// than single-statement compilation.
func (p *QueryPlan) IsAdvanced() bool {
	switch p.QueryType {
	case QueryComparison, QueryPercentage, QueryTrend:
		return true
	}
	return false
}

// IsAggregating reports whether the query type aggregates metrics (as
// opposed to returning rows).
func (p *QueryPlan) IsAggregating() bool {
	switch p.QueryType {
	case QueryMetric, QueryAggregationOnSubset, QueryComparison, QueryPercentage, QueryTrend:
		return true
	}
	return false
}

// LimitValue returns the effective limit, or 0 when unset.
func (p *QueryPlan) LimitValue() int {
	if p.Limit == nil {
		return 0
	}
	return *p.Limit
}

// SetLimit replaces the limit.
func (p *QueryPlan) SetLimit(n int) {
	p.Limit = &n
}
