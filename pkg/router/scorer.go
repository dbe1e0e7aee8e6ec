package router

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/tablechat-ai/tablechat/pkg/extract"
	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Vocabulary for individual scoring signals.
var (
	granularityWords = map[string]models.Granularity{
		"daily": models.GranularityDaily, "day": models.GranularityDaily,
		"weekly": models.GranularityWeekly, "week": models.GranularityWeekly,
		"monthly": models.GranularityMonthly,
		"quarterly": models.GranularityQuarterly, "quarter": models.GranularityQuarterly,
		"yearly": models.GranularityYearly, "annual": models.GranularityYearly,
	}
	hrKeywords = []string{
		"employee", "employees", "salary", "attendance", "staff", "payroll",
		"designation", "department", "joining",
	}
	aggregateColumnWords = []string{"total", "grand", "sum", "overall", "cumulative"}
	amountColumnWords    = []string{"amount", "amt", "total", "value", "price", "revenue", "sales"}
	locationTableWords   = []string{"area", "zone", "pincode", "branch", "region", "city", "location", "district", "state"}
	personColumnWords    = []string{"first", "last", "name", "emp"}
	idTokenPattern       = regexp.MustCompile(`^[a-z]{1,5}[-_]?\d{2,}$`)
)

// scoreTable accumulates the rule-based score of one table for a question.
// Signals are additive; negative signals push clearly wrong shapes (single
// month tables for multi-month questions, summaries for row counts) out of
// contention.
func scoreTable(question string, rawQuestion string, ents *models.Entities, p *models.TableProfile) int {
	score := 0
	nameWords := splitName(p.TableName)
	namePhrase := strings.Join(nameWords, " ")
	tokens := queryTokens(question)

	// Table-name phrase signals.
	if len(nameWords) >= 2 && strings.Contains(question, namePhrase) {
		score += 300
	} else if len(nameWords) >= 2 {
		matched := 0
		for _, w := range nameWords {
			if len(w) >= 3 && strings.Contains(question, w) {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(nameWords))
		if ratio >= 0.6 {
			score += int(200 * ratio)
		}
	}
	nameWordSet := toSet(nameWords)
	for _, tok := range tokens {
		if extract.IsSignificantToken(tok) && nameWordSet[tok] {
			score += 50
		}
	}

	// Column-name signals.
	dimWords := columnWordSet(p, models.RoleDimension)
	idMetricWords := columnWordSet(p, models.RoleIdentifier, models.RoleMetric)
	for _, tok := range tokens {
		if !extract.IsSignificantToken(tok) {
			continue
		}
		if dimWords[tok] {
			score += 100
		} else if idMetricWords[tok] {
			score += 30
		}
	}
	score += compoundMetricScore(tokens, p)

	// Transactional vs summary shape for count/transaction questions.
	if strings.Contains(question, "across all") || strings.Contains(question, "transaction") {
		switch p.TableType {
		case models.TableTransactional:
			if hasColumnWord(p, models.RoleMetric, amountColumnWords) {
				score += 80
			} else {
				score += 30
			}
		case models.TableSummary:
			score -= 40
		}
	}

	// Time granularity.
	for word, g := range granularityWords {
		if !containsToken(tokens, word) {
			continue
		}
		if p.Granularity == g {
			score += 100
		}
		if strings.Contains(namePhrase, word) {
			score += 50
		}
		break
	}
	if dateColumnValueMatch(tokens, p) {
		score += 60
	}

	// Sample-value signals.
	score += sampleValueScore(tokens, rawQuestion, p)

	// Domain synonyms.
	for _, kw := range hrKeywords {
		if strings.Contains(question, kw) {
			if _, ok := p.SynonymMap[kw]; ok {
				score += 60
			}
			break
		}
	}

	score += crossTableScore(ents, p)
	score += monthScore(ents, p, namePhrase)
	score += metricScore(ents, p)
	score += categoryScore(ents, p, namePhrase)
	score += locationScore(ents, p, namePhrase)
	score += personScore(question, p)

	if p.Granularity == models.GranularityDaily {
		score += 5
	}
	score += int(math.Round(p.DataQualityScore * 10))

	return score
}

func splitName(name string) []string {
	lower := strings.ToLower(name)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
}

func queryTokens(question string) []string {
	return strings.FieldsFunc(question, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func containsToken(tokens []string, word string) bool {
	for _, t := range tokens {
		if t == word {
			return true
		}
	}
	return false
}

// columnWordSet collects the lowercase name fragments of columns holding any
// of the given roles.
func columnWordSet(p *models.TableProfile, roles ...models.ColumnRole) map[string]bool {
	set := map[string]bool{}
	for name, col := range p.Columns {
		for _, role := range roles {
			if col.Role == role {
				for _, w := range splitName(name) {
					set[w] = true
				}
			}
		}
	}
	return set
}

func hasColumnWord(p *models.TableProfile, role models.ColumnRole, words []string) bool {
	for name, col := range p.Columns {
		if col.Role != role {
			continue
		}
		lower := strings.ToLower(name)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return false
}

// compoundMetricScore rewards questions whose tokens reassemble a compound
// metric column name ("order value" → Order_Value).
func compoundMetricScore(tokens []string, p *models.TableProfile) int {
	for name, col := range p.Columns {
		if col.Role != models.RoleMetric {
			continue
		}
		parts := splitName(name)
		matched := 0
		for _, part := range parts {
			if len(part) >= 3 && containsToken(tokens, part) {
				matched++
			}
		}
		if matched >= 2 {
			return 120
		}
		if matched == 1 && len(parts) == 1 && len(name) <= 8 {
			return 40
		}
	}
	return 0
}

// dateColumnValueMatch reports whether a significant query token shows up
// inside a date column's sample values (quarter labels, month stamps).
func dateColumnValueMatch(tokens []string, p *models.TableProfile) bool {
	for _, col := range p.Columns {
		if col.Role != models.RoleDate {
			continue
		}
		for _, v := range col.SampleValues {
			lower := strings.ToLower(v)
			for _, tok := range tokens {
				if len(tok) >= 2 && strings.Contains(lower, tok) && !extract.IsStopword(tok) {
					return true
				}
			}
		}
	}
	return false
}

// sampleValueScore matches query tokens against observed cell values:
// ID-like tokens, capitalized proper nouns in identifier columns, and any
// other significant token found verbatim in the data.
func sampleValueScore(tokens []string, rawQuestion string, p *models.TableProfile) int {
	capitalized := map[string]bool{}
	for i, w := range strings.Fields(rawQuestion) {
		trimmed := strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if i > 0 && trimmed != "" && unicode.IsUpper([]rune(trimmed)[0]) {
			capitalized[strings.ToLower(trimmed)] = true
		}
	}

	score := 0
	matchedID, matchedCap, matchedOther := false, false, false
	for _, col := range p.Columns {
		values := col.SampleValues
		if len(col.UniqueValues) > 0 {
			values = col.UniqueValues
		}
		for _, v := range values {
			lower := strings.ToLower(v)
			for _, tok := range tokens {
				if lower != tok && !strings.Contains(lower, tok) {
					continue
				}
				switch {
				case !matchedID && idTokenPattern.MatchString(tok):
					score += 150
					matchedID = true
				case !matchedCap && col.Role == models.RoleIdentifier && capitalized[tok]:
					score += 120
					matchedCap = true
				case !matchedOther && extract.IsSignificantToken(tok) && lower == tok:
					score += 80
					matchedOther = true
				}
			}
		}
	}
	return score
}

func crossTableScore(ents *models.Entities, p *models.TableProfile) int {
	if !ents.CrossTableIntent {
		return 0
	}
	specific := ents.Category != "" || ents.Location != "" || len(ents.DimensionKeywords) > 0
	score := 0
	if hasColumnWord(p, models.RoleMetric, aggregateColumnWords) {
		if specific {
			score += 15
		} else {
			score += 40
		}
	}
	if p.TableType == models.TableSummary {
		if specific {
			score += 10
		} else {
			score += 25
		}
	}
	return score
}

// monthScore handles single- and multi-month time signals.
func monthScore(ents *models.Entities, p *models.TableProfile, namePhrase string) int {
	monthsInName := 0
	for _, m := range models.MonthNames {
		if strings.Contains(namePhrase, m) {
			monthsInName++
		}
	}

	if ents.MultiMonthComparison {
		score := 0
		if monthsInName == 1 {
			score -= 100
		}
		if monthColumnCount(p) >= 2 {
			score += 80
		}
		if len(ents.AllMonths) > 0 && len(p.DateColumns()) > 0 {
			all := true
			for _, m := range ents.AllMonths {
				if !p.DateRange.CoversMonth(m) {
					all = false
					break
				}
			}
			if all {
				score += 100
				if strings.Contains(namePhrase, "daily") || strings.Contains(namePhrase, "transaction") {
					score += 50
				}
			}
		}
		return score
	}

	if ents.Month != "" {
		if strings.Contains(namePhrase, ents.Month) {
			return 30
		}
		if p.DateRange.CoversMonth(ents.Month) {
			return 25
		}
	}
	return 0
}

// monthColumnCount counts columns named after months (pivot shape).
func monthColumnCount(p *models.TableProfile) int {
	count := 0
	for name := range p.Columns {
		lower := strings.ToLower(name)
		for _, m := range models.MonthNames {
			if strings.Contains(lower, m) || strings.HasPrefix(lower, m[:3]) {
				count++
				break
			}
		}
	}
	return count
}

func metricScore(ents *models.Entities, p *models.TableProfile) int {
	if ents.Metric == "" {
		return 0
	}
	for name := range p.Columns {
		if strings.Contains(strings.ToLower(name), ents.Metric) {
			return 20
		}
	}
	if _, ok := p.SynonymMap[ents.Metric]; ok {
		return 15
	}
	return 0
}

func categoryScore(ents *models.Entities, p *models.TableProfile, namePhrase string) int {
	if ents.Category == "" {
		return 0
	}
	score := 0
	for name := range p.Columns {
		if strings.Contains(strings.ToLower(name), ents.Category) {
			score += 60
			break
		}
	}
	if dimensionHasValue(p, ents.Category) {
		score += 15
	}
	if strings.Contains(namePhrase, "category") || strings.Contains(namePhrase, "by cat") {
		score += 50
	}
	return score
}

func locationScore(ents *models.Entities, p *models.TableProfile, namePhrase string) int {
	if ents.Location == "" {
		return 0
	}
	score := 0
	for _, w := range locationTableWords {
		if strings.Contains(namePhrase, w) {
			score += 50
			break
		}
	}
	if dimensionHasValue(p, ents.Location) {
		score += 15
	}
	for name, col := range p.Columns {
		if col.Role != models.RoleDimension {
			continue
		}
		lower := strings.ToLower(name)
		matched := false
		for _, w := range locationTableWords {
			if strings.Contains(lower, w) {
				matched = true
				break
			}
		}
		if matched {
			score += 100
			break
		}
	}
	if p.TableType == models.TableCategoryBreakdown || strings.Contains(namePhrase, "category") {
		score -= 80
	}
	return score
}

func dimensionHasValue(p *models.TableProfile, value string) bool {
	for _, col := range p.Columns {
		if col.Role != models.RoleDimension {
			continue
		}
		for _, v := range col.UniqueValues {
			if strings.EqualFold(v, value) {
				return true
			}
		}
		for _, v := range col.SampleValues {
			if strings.EqualFold(v, value) {
				return true
			}
		}
	}
	return false
}

// personScore handles "who is" and "which employee" questions, which need
// name-bearing tables and are actively hurt by summaries.
func personScore(question string, p *models.TableProfile) int {
	if !strings.Contains(question, "who is") && !strings.Contains(question, "which employee") &&
		!strings.Contains(question, "employee name") {
		return 0
	}
	score := 0
	found := false
	for name := range p.Columns {
		lower := strings.ToLower(name)
		for _, w := range personColumnWords {
			if strings.Contains(lower, w) {
				found = true
			}
		}
	}
	if found {
		score += 150
	} else {
		score -= 100
	}
	if p.TableType == models.TableSummary {
		score -= 80
	}
	return score
}

// ScoreTables runs the rule-based scorer over every profile and returns the
// positively-scored candidates, best first.
func ScoreTables(question string, ents *models.Entities, profiles map[string]*models.TableProfile) []models.ScoredTable {
	lower := strings.ToLower(question)
	var out []models.ScoredTable
	for name, p := range profiles {
		s := scoreTable(lower, question, ents, p)
		if s > 0 {
			out = append(out, models.ScoredTable{Table: name, Score: s})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Table < out[j].Table
	})
	return out
}
