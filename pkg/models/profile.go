// Package models holds the shared typed core: table profiles, entity bags,
// query plans, routing results, and conversation records.
package models

import (
	"strings"
	"time"
)

// ColumnRole classifies what a column is used for in analytical queries.
// A role is assigned once at profiling time from the observed data and does
// not change at query time.
type ColumnRole string

const (
	RoleDate       ColumnRole = "date"
	RoleMetric     ColumnRole = "metric"
	RoleDimension  ColumnRole = "dimension"
	RoleIdentifier ColumnRole = "identifier"
	RoleEmpty      ColumnRole = "empty"
)

// TableType classifies the overall shape of a table.
type TableType string

const (
	TableTransactional     TableType = "transactional"
	TableSummary           TableType = "summary"
	TableCategoryBreakdown TableType = "category_breakdown"
	TablePivot             TableType = "pivot"
	TableItemLevel         TableType = "item_level"
	TableLookup            TableType = "lookup"
	TableUnknown           TableType = "unknown"
)

// Granularity is the finest time bucket present in a table.
type Granularity string

const (
	GranularityDaily        Granularity = "daily"
	GranularityWeekly       Granularity = "weekly"
	GranularityMonthly      Granularity = "monthly"
	GranularityQuarterly    Granularity = "quarterly"
	GranularityYearly       Granularity = "yearly"
	GranularityMonthlyPivot Granularity = "monthly_pivot"
	GranularityUnknown      Granularity = "unknown"
)

// MetricStats holds summary statistics for a metric column.
type MetricStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// ColumnProfile is the per-column record inside a table profile.
type ColumnProfile struct {
	Name         string       `json:"name"`
	Role         ColumnRole   `json:"role"`
	DType        string       `json:"dtype"`
	NullRatio    float64      `json:"null_ratio"`
	SampleValues []string     `json:"sample_values,omitempty"`
	UniqueValues []string     `json:"unique_values,omitempty"` // bounded, up to ~30 for dimensions
	Synonyms     []string     `json:"synonyms,omitempty"`
	Stats        *MetricStats `json:"stats,omitempty"`
}

// DateRange describes the time coverage of a table.
type DateRange struct {
	Min    string   `json:"min,omitempty"`
	Max    string   `json:"max,omitempty"`
	Month  string   `json:"month,omitempty"` // set when the table covers a single month
	Months []string `json:"months,omitempty"`
}

// CoversMonth reports whether the range includes the given lowercase month name.
func (d DateRange) CoversMonth(month string) bool {
	if strings.EqualFold(d.Month, month) {
		return true
	}
	for _, m := range d.Months {
		if strings.EqualFold(m, month) {
			return true
		}
	}
	return false
}

// TableProfile is the persisted semantic profile for one table.
type TableProfile struct {
	TableName        string                    `json:"table_name"`
	TableType        TableType                 `json:"table_type"`
	Granularity      Granularity               `json:"granularity"`
	DateRange        DateRange                 `json:"date_range"`
	Columns          map[string]*ColumnProfile `json:"columns"`
	SynonymMap       map[string][]string       `json:"synonym_map,omitempty"`
	DataQualityScore float64                   `json:"data_quality_score"`
	RowCount         int                       `json:"row_count"`
	ColumnCount      int                       `json:"column_count"`
	Keywords         []string                  `json:"keywords,omitempty"`
	SemanticSummary  string                    `json:"semantic_summary,omitempty"`
	ProfiledAt       time.Time                 `json:"profiled_at"`
}

// ColumnsByRole returns the column names carrying the given role, in no
// particular order.
func (p *TableProfile) ColumnsByRole(role ColumnRole) []string {
	var names []string
	for name, col := range p.Columns {
		if col.Role == role {
			names = append(names, name)
		}
	}
	return names
}

// MetricColumns returns the metric column names.
func (p *TableProfile) MetricColumns() []string { return p.ColumnsByRole(RoleMetric) }

// DimensionColumns returns the dimension column names.
func (p *TableProfile) DimensionColumns() []string { return p.ColumnsByRole(RoleDimension) }

// DateColumns returns the date column names.
func (p *TableProfile) DateColumns() []string { return p.ColumnsByRole(RoleDate) }

// ColumnForTerm resolves a common search term ("sales") to the first column
// of this table registered for it in the synonym map, or the column itself if
// the term names one directly (case-insensitive).
func (p *TableProfile) ColumnForTerm(term string) (string, bool) {
	lower := strings.ToLower(term)
	if cols, ok := p.SynonymMap[lower]; ok && len(cols) > 0 {
		return cols[0], true
	}
	for name := range p.Columns {
		if strings.EqualFold(name, term) {
			return name, true
		}
	}
	return "", false
}

// HasColumn reports whether the table has the named column, case-insensitive.
func (p *TableProfile) HasColumn(name string) bool {
	_, ok := p.ResolveColumn(name)
	return ok
}

// ResolveColumn returns the canonical column name matching the given name
// case-insensitively.
func (p *TableProfile) ResolveColumn(name string) (string, bool) {
	if _, ok := p.Columns[name]; ok {
		return name, true
	}
	for col := range p.Columns {
		if strings.EqualFold(col, name) {
			return col, true
		}
	}
	return "", false
}
