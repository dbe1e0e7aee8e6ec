package profile

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/duck"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// sampleRowLimit bounds how many rows are pulled per table for profiling.
const sampleRowLimit = 1000

// Profiler derives a semantic profile for one table from its observed data.
// Role assignment is a pure function of the sample; it never changes at
// query time.
type Profiler struct {
	catalog     duck.Catalog
	sampleLimit int // unique values kept per dimension column
	logger      *zap.Logger
}

// NewProfiler creates a profiler reading from the given catalog.
func NewProfiler(catalog duck.Catalog, sampleLimit int, logger *zap.Logger) *Profiler {
	if sampleLimit < 1 {
		sampleLimit = 30
	}
	return &Profiler{
		catalog:     catalog,
		sampleLimit: sampleLimit,
		logger:      logger.Named("profiler"),
	}
}

// Name patterns for role heuristics.
var (
	dateNamePattern       = regexp.MustCompile(`(?i)(^|_)(date|day|month|week|quarter|year|time|period)($|_)`)
	identifierNamePattern = regexp.MustCompile(`(?i)(^|_)(id|code|pincode|pin|phone|mobile|emp_id|sku|invoice|order_no|number)($|s?_|$)`)
	numericTypePattern    = regexp.MustCompile(`(?i)^(tinyint|smallint|integer|int|bigint|hugeint|float|real|double|decimal|numeric)`)
	dateTypePattern       = regexp.MustCompile(`(?i)^(date|timestamp|datetime)`)
	quarterValuePattern   = regexp.MustCompile(`(?i)^Q[1-4]\s+\d{4}$`)
)

// metricVocabulary maps common search terms to column-name fragments that
// satisfy them; it seeds each table's synonym map.
var metricVocabulary = map[string][]string{
	"sales":    {"sales", "sale_amount", "revenue", "gross", "net_amount", "amount", "turnover"},
	"revenue":  {"revenue", "sales", "amount", "income", "turnover"},
	"profit":   {"profit", "margin", "net"},
	"orders":   {"orders", "order_count", "order_no", "transactions"},
	"quantity": {"quantity", "qty", "units", "count"},
	"price":    {"price", "rate", "unit_price", "mrp"},
	"discount": {"discount", "rebate", "offer"},
	"salary":   {"salary", "pay", "ctc", "wage"},
}

// dateLayouts are the formats tried when parsing sample date values.
var dateLayouts = []string{
	"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006",
	"2006-01-02 15:04:05", "Jan 2, 2006", "2 Jan 2006",
}

// ProfileTable builds the profile for one table from a bounded row sample.
func (p *Profiler) ProfileTable(ctx context.Context, table string) (*models.TableProfile, error) {
	cols, err := p.catalog.Describe(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns", table)
	}

	countRes, err := p.catalog.Query(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, duck.QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	rowCount := int(countRes.ScalarFloat())

	sample, err := p.catalog.Query(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT %d`, duck.QuoteIdentifier(table), sampleRowLimit))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", table, err)
	}

	profile := &models.TableProfile{
		TableName:   table,
		Columns:     map[string]*models.ColumnProfile{},
		RowCount:    rowCount,
		ColumnCount: len(cols),
		Keywords:    tableKeywords(table),
	}

	byName := sampleColumns(sample, cols)
	for _, ci := range cols {
		profile.Columns[ci.Name] = p.profileColumn(ci, byName[ci.Name])
	}

	profile.DateRange = p.dateRange(profile)
	profile.Granularity = p.granularity(table, profile)
	profile.TableType = p.tableType(table, profile)
	profile.SynonymMap = buildSynonymMap(profile)
	profile.DataQualityScore = qualityScore(profile, len(byName))
	profile.SemanticSummary = RuleBasedSummary(profile)

	p.logger.Debug("Profiled table",
		zap.String("table", table),
		zap.Int("rows", rowCount),
		zap.String("type", string(profile.TableType)),
		zap.Float64("quality", profile.DataQualityScore))

	return profile, nil
}

// sampleColumns pivots the row sample into per-column value slices aligned
// with the DESCRIBE order.
func sampleColumns(sample *duck.Result, cols []duck.ColumnInfo) map[string][]any {
	index := map[string]int{}
	for i, name := range sample.Columns {
		index[name] = i
	}
	byName := make(map[string][]any, len(cols))
	for _, ci := range cols {
		i, ok := index[ci.Name]
		if !ok {
			continue
		}
		values := make([]any, 0, len(sample.Rows))
		for _, row := range sample.Rows {
			if i < len(row) {
				values = append(values, row[i])
			}
		}
		byName[ci.Name] = values
	}
	return byName
}

func (p *Profiler) profileColumn(ci duck.ColumnInfo, values []any) *models.ColumnProfile {
	col := &models.ColumnProfile{Name: ci.Name, DType: ci.Type}

	var nonNull []string
	var numbers []float64
	nulls := 0
	for _, v := range values {
		if v == nil {
			nulls++
			continue
		}
		s := fmt.Sprintf("%v", v)
		nonNull = append(nonNull, s)
		if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
			numbers = append(numbers, f)
		}
	}
	if len(values) > 0 {
		col.NullRatio = float64(nulls) / float64(len(values))
	}

	uniques := uniqueStrings(nonNull, p.sampleLimit)
	col.Role = p.assignRole(ci, nonNull, uniques, numbers)

	switch col.Role {
	case models.RoleMetric:
		if len(numbers) > 0 {
			col.Stats = metricStats(numbers)
		}
		col.SampleValues = head(nonNull, 5)
	case models.RoleDimension:
		col.UniqueValues = uniques
		col.SampleValues = head(uniques, 10)
	default:
		col.SampleValues = head(uniques, 10)
	}

	col.Synonyms = columnSynonyms(ci.Name)
	return col
}

// assignRole decides the column role from name, dtype, cardinality and
// sample values, in that priority order.
func (p *Profiler) assignRole(ci duck.ColumnInfo, nonNull, uniques []string, numbers []float64) models.ColumnRole {
	if len(nonNull) == 0 {
		return models.RoleEmpty
	}

	if dateTypePattern.MatchString(ci.Type) {
		return models.RoleDate
	}
	if dateNamePattern.MatchString(ci.Name) && looksLikeDates(uniques) {
		return models.RoleDate
	}
	// Quarter-string columns ("Q3 2025") behave as dates for trend grouping.
	if allMatch(uniques, quarterValuePattern) {
		return models.RoleDate
	}

	numericType := numericTypePattern.MatchString(ci.Type)
	mostlyNumeric := len(numbers) >= len(nonNull)*9/10

	if identifierNamePattern.MatchString(ci.Name) {
		return models.RoleIdentifier
	}

	if numericType || mostlyNumeric {
		return models.RoleMetric
	}

	// Text column: low cardinality means dimension, high means identifier.
	distinctRatio := float64(len(uniques)) / float64(len(nonNull))
	if len(uniques) <= p.sampleLimit || distinctRatio < 0.5 {
		return models.RoleDimension
	}
	return models.RoleIdentifier
}

func (p *Profiler) dateRange(profile *models.TableProfile) models.DateRange {
	var dr models.DateRange
	monthSet := map[string]bool{}
	var minT, maxT time.Time

	for _, col := range profile.Columns {
		if col.Role != models.RoleDate {
			continue
		}
		values := col.UniqueValues
		if len(values) == 0 {
			values = col.SampleValues
		}
		for _, v := range values {
			if t, ok := parseDate(v); ok {
				if minT.IsZero() || t.Before(minT) {
					minT = t
				}
				if maxT.IsZero() || t.After(maxT) {
					maxT = t
				}
				monthSet[strings.ToLower(t.Month().String())] = true
				continue
			}
			if m, ok := models.CanonicalMonth(v); ok {
				monthSet[m] = true
			}
		}
	}

	// Month names embedded in the table name also count as coverage.
	for _, kw := range profile.Keywords {
		if m, ok := models.CanonicalMonth(kw); ok {
			monthSet[m] = true
		}
	}

	if !minT.IsZero() {
		dr.Min = minT.Format("2006-01-02")
		dr.Max = maxT.Format("2006-01-02")
	}
	for m := range monthSet {
		dr.Months = append(dr.Months, m)
	}
	sort.Slice(dr.Months, func(i, j int) bool {
		return models.MonthNumber(dr.Months[i]) < models.MonthNumber(dr.Months[j])
	})
	if len(dr.Months) == 1 {
		dr.Month = dr.Months[0]
	}
	return dr
}

func (p *Profiler) granularity(table string, profile *models.TableProfile) models.Granularity {
	lower := strings.ToLower(table)
	switch {
	case strings.Contains(lower, "daily") || strings.Contains(lower, "transactions"):
		return models.GranularityDaily
	case strings.Contains(lower, "weekly"):
		return models.GranularityWeekly
	case strings.Contains(lower, "quarterly"):
		return models.GranularityQuarterly
	case strings.Contains(lower, "yearly") || strings.Contains(lower, "annual"):
		return models.GranularityYearly
	}

	// A pivot of month-named columns is a monthly pivot.
	monthCols := 0
	for name := range profile.Columns {
		if _, ok := models.CanonicalMonth(strings.Trim(name, "_ ")); ok {
			monthCols++
		}
	}
	if monthCols >= 2 {
		return models.GranularityMonthlyPivot
	}

	if strings.Contains(lower, "monthly") {
		return models.GranularityMonthly
	}
	// Exact day-level dates imply daily data; bare month coverage is monthly.
	if profile.DateRange.Min != "" {
		return models.GranularityDaily
	}
	if len(profile.DateRange.Months) > 0 {
		return models.GranularityMonthly
	}
	return models.GranularityUnknown
}

func (p *Profiler) tableType(table string, profile *models.TableProfile) models.TableType {
	lower := strings.ToLower(table)
	switch {
	case strings.Contains(lower, "summary") || strings.HasPrefix(lower, "top_") ||
		strings.Contains(lower, "calculation"):
		return models.TableSummary
	case strings.Contains(lower, "pivot") || profile.Granularity == models.GranularityMonthlyPivot:
		return models.TablePivot
	case strings.Contains(lower, "category") || strings.Contains(lower, "by_cat"):
		return models.TableCategoryBreakdown
	case strings.Contains(lower, "item") || strings.Contains(lower, "sku") ||
		strings.Contains(lower, "product_list"):
		return models.TableItemLevel
	}

	hasDate := len(profile.DateColumns()) > 0
	hasMetric := len(profile.MetricColumns()) > 0
	switch {
	case hasDate && hasMetric && profile.RowCount > 50:
		return models.TableTransactional
	case !hasMetric && profile.RowCount <= 200:
		return models.TableLookup
	}
	return models.TableUnknown
}

// buildSynonymMap records, for each vocabulary term, which columns of this
// table satisfy it. Both singular and plural forms of the term are keyed.
func buildSynonymMap(profile *models.TableProfile) map[string][]string {
	synonyms := map[string][]string{}
	for term, fragments := range metricVocabulary {
		var matched []string
		for name := range profile.Columns {
			lower := strings.ToLower(name)
			for _, frag := range fragments {
				if strings.Contains(lower, frag) {
					matched = append(matched, name)
					break
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Strings(matched)
		synonyms[term] = matched
		if singular := inflection.Singular(term); singular != term {
			synonyms[singular] = matched
		}
		if plural := inflection.Plural(term); plural != term {
			synonyms[plural] = matched
		}
	}
	return synonyms
}

// qualityScore is a weighted combination of completeness, row count, type
// consistency and column variety, in [0, 1].
func qualityScore(profile *models.TableProfile, sampledCols int) float64 {
	if len(profile.Columns) == 0 {
		return 0
	}

	var completeness float64
	typed := 0
	roles := map[models.ColumnRole]bool{}
	for _, col := range profile.Columns {
		completeness += 1 - col.NullRatio
		if col.Role != models.RoleEmpty {
			typed++
		}
		roles[col.Role] = true
	}
	completeness /= float64(len(profile.Columns))
	typeConsistency := float64(typed) / float64(len(profile.Columns))

	rowScore := float64(profile.RowCount) / 1000
	if rowScore > 1 {
		rowScore = 1
	}
	variety := float64(len(roles)) / 4
	if variety > 1 {
		variety = 1
	}

	score := 0.4*completeness + 0.2*rowScore + 0.2*typeConsistency + 0.2*variety
	if score > 1 {
		score = 1
	}
	return score
}

func tableKeywords(table string) []string {
	parts := strings.FieldsFunc(strings.ToLower(table), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var keywords []string
	for _, part := range parts {
		if part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}

// columnSynonyms derives search terms for a column from its name tokens,
// including singular/plural variants.
func columnSynonyms(name string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == ' '
	})
	seen := map[string]bool{}
	var synonyms []string
	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		for _, form := range []string{tok, inflection.Singular(tok), inflection.Plural(tok)} {
			if !seen[form] {
				seen[form] = true
				synonyms = append(synonyms, form)
			}
		}
	}
	return synonyms
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func looksLikeDates(values []string) bool {
	if len(values) == 0 {
		return false
	}
	hits := 0
	for _, v := range values {
		if _, ok := parseDate(v); ok {
			hits++
			continue
		}
		if _, ok := models.CanonicalMonth(v); ok {
			hits++
		}
	}
	return hits*2 >= len(values)
}

func allMatch(values []string, re *regexp.Regexp) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !re.MatchString(strings.TrimSpace(v)) {
			return false
		}
	}
	return true
}

func uniqueStrings(values []string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func head(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func metricStats(numbers []float64) *models.MetricStats {
	stats := &models.MetricStats{Min: numbers[0], Max: numbers[0]}
	var sum float64
	for _, n := range numbers {
		if n < stats.Min {
			stats.Min = n
		}
		if n > stats.Max {
			stats.Max = n
		}
		sum += n
	}
	stats.Mean = sum / float64(len(numbers))
	return stats
}
