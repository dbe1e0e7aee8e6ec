package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Extractor recognizes entities in questions using static lexicons plus
// dimension values learned from table profiles.
type Extractor struct {
	lexicon *learnedLexicon
	logger  *zap.Logger
}

// NewExtractor creates an extractor with an empty learned lexicon. Call
// RefreshFromProfiles once profiles exist.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		lexicon: newLearnedLexicon(),
		logger:  logger.Named("extract"),
	}
}

// Extract scans the question and returns every recognized entity. It never
// fails; an unrecognized question yields the default bag (SUM aggregation,
// nothing else set).
func (e *Extractor) Extract(question string) *models.Entities {
	ents := models.NewEntities(question)
	lower := strings.ToLower(question)
	// Connectors inside month pairs ("september-october") read as one token
	// otherwise.
	spaced := dehyphenate(lower)
	tokens := tokenize(spaced)

	ents.AllMonths = extractMonths(spaced, tokens)
	if len(ents.AllMonths) > 0 {
		ents.Month = ents.AllMonths[0]
	}

	if agg := extractAggregation(spaced); agg != "" {
		ents.Aggregation = agg
	}

	ents.Metric = matchLongest(spaced, orderedMetricWords)

	e.lexicon.mu.RLock()
	ents.Category = matchLongest(spaced, e.lexicon.categories)
	ents.Location = matchLongest(spaced, e.lexicon.locations)
	if product := matchLongest(spaced, e.lexicon.products); product != "" {
		ents.CustomEntities["product"] = []string{product}
	}
	for col, values := range e.lexicon.custom {
		var found []string
		for _, v := range values {
			if strings.Contains(spaced, v) {
				found = append(found, v)
			}
		}
		if len(found) > 0 {
			ents.CustomEntities[col] = found
		}
	}
	e.lexicon.mu.RUnlock()

	// Metric words never occupy the category slot.
	if metricDenySet[ents.Category] {
		ents.Category = ""
	}

	ents.Comparison = hasAny(lower, comparisonTriggers) ||
		(len(ents.AllMonths) >= 2 && strings.Contains(spaced, "between"))
	ents.MultiMonthComparison = len(ents.AllMonths) >= 2 ||
		(len(ents.AllMonths) == 1 && ents.Comparison)
	ents.CrossTableIntent = hasAny(lower, crossTableTriggers)
	ents.TrendIntent = hasAny(lower, trendTriggers)
	ents.SummaryIntent = hasAny(lower, summaryTriggers)
	ents.ImpactIntent = hasAny(lower, impactTriggers)
	ents.MultiDomainQuery = isMultiDomain(spaced, ents)

	for _, kw := range dimensionKeywords {
		if containsWord(tokens, kw) || containsWord(tokens, kw+"s") {
			ents.DimensionKeywords = append(ents.DimensionKeywords, kw)
		}
	}

	ents.TimePeriod = extractTimePeriod(lower, spaced)
	ents.ExplicitTable = extractExplicitTable(spaced)
	ents.DateSpecific = extractDate(question, spaced, tokens)

	e.logger.Debug("Extracted entities",
		zap.String("month", ents.Month),
		zap.Strings("all_months", ents.AllMonths),
		zap.String("metric", ents.Metric),
		zap.String("category", ents.Category),
		zap.String("location", ents.Location),
		zap.String("aggregation", ents.Aggregation),
		zap.Bool("comparison", ents.Comparison))
	return ents
}

// orderedMetricWords is metricWords sorted longest-first so "quantity"
// beats "qty" style prefixes.
var orderedMetricWords = func() []string {
	set := make(map[string]bool, len(metricWords))
	for _, w := range metricWords {
		set[w] = true
	}
	return sortedLongestFirst(set)
}()

var tokenPattern = regexp.MustCompile(`[a-z0-9]+|[\x{0B80}-\x{0BFF}]+`)

func tokenize(lower string) []string {
	return tokenPattern.FindAllString(lower, -1)
}

// dehyphenate turns connectors between words into spaces so month pairs
// like "september-october" split into two tokens.
func dehyphenate(s string) string {
	return strings.NewReplacer("-", " ", "/", " / ", ",", " , ").Replace(s)
}

func containsWord(tokens []string, word string) bool {
	for _, t := range tokens {
		if t == word {
			return true
		}
	}
	return false
}

func hasAny(text string, triggers []string) bool {
	for _, t := range triggers {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// extractMonths returns the months mentioned, English or Tamil, ordered by
// first appearance and deduplicated.
func extractMonths(spaced string, tokens []string) []string {
	type hit struct {
		month string
		pos   int
	}
	var hits []hit
	seen := map[string]bool{}

	add := func(month string, pos int) {
		if month == "" || seen[month] || pos < 0 {
			return
		}
		seen[month] = true
		hits = append(hits, hit{month, pos})
	}

	for _, tok := range tokens {
		if month, ok := models.CanonicalMonth(tok); ok {
			add(month, strings.Index(spaced, tok))
		}
	}
	for word, month := range tamilMonths {
		// Accept the suffixed locative form ("செப்டம்பரில்") by also
		// matching the stem without the final virama.
		stem := strings.TrimSuffix(word, "்")
		if pos := strings.Index(spaced, word); pos >= 0 {
			add(month, pos)
		} else if pos := strings.Index(spaced, stem); pos >= 0 {
			add(month, pos)
		}
	}

	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	months := make([]string, len(hits))
	for i, h := range hits {
		months[i] = h.month
	}
	return months
}

// extractAggregation returns the function for the earliest aggregation verb
// in the question, or "" when none appears.
func extractAggregation(spaced string) string {
	best := ""
	bestPos := -1
	for verb, fn := range aggregationVerbs {
		pos := indexWord(spaced, verb)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos {
			best, bestPos = fn, pos
		}
	}
	return best
}

// indexWord finds a whole-word occurrence of w (which may be multi-word).
func indexWord(text, w string) int {
	start := 0
	for {
		pos := strings.Index(text[start:], w)
		if pos < 0 {
			return -1
		}
		abs := start + pos
		end := abs + len(w)
		leftOK := abs == 0 || !isWordChar(text[abs-1])
		rightOK := end == len(text) || !isWordChar(text[end])
		if leftOK && rightOK {
			return abs
		}
		start = abs + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func extractTimePeriod(lower, spaced string) string {
	if m := topNPattern.FindStringSubmatch(spaced); m != nil {
		return "top_" + m[1]
	}
	if m := lastNMonthsPat.FindStringSubmatch(spaced); m != nil {
		return "last_" + m[1] + "_months"
	}
	switch {
	case strings.Contains(spaced, "yesterday") || strings.Contains(lower, "நேற்று"):
		return "yesterday"
	case strings.Contains(spaced, "today") || strings.Contains(lower, "இன்று"):
		return "today"
	case strings.Contains(spaced, "this month"):
		return "this_month"
	case strings.Contains(spaced, "last month"):
		return "last_month"
	}
	return ""
}

func extractExplicitTable(spaced string) string {
	for _, pat := range explicitTablePats {
		if m := pat.FindStringSubmatch(spaced); m != nil {
			name := strings.TrimSpace(m[1])
			// A month name is a filter, not a table reference.
			if _, isMonth := models.CanonicalMonth(name); isMonth {
				continue
			}
			return name
		}
	}
	return ""
}

// extractDate finds an exact calendar date: numeric forms (14/09/2025,
// "september 14", "14th september") and spelled-out ordinals in English or
// Tamil ("fourteenth of september", "செப்டம்பர் பதினான்கு").
func extractDate(raw, spaced string, tokens []string) *models.DateSpecific {
	if m := ddmmyyyyPattern.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		day, _ := strconv.Atoi(m[1])
		monthNum, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if day >= 1 && day <= 31 && monthNum >= 1 && monthNum <= 12 {
			return &models.DateSpecific{
				Day:   day,
				Month: models.MonthNames[monthNum-1],
				Year:  year,
				Raw:   m[0],
			}
		}
	}

	if m := dayMonthPattern.FindStringSubmatch(spaced); m != nil {
		if month, ok := models.CanonicalMonth(m[2]); ok {
			if day, _ := strconv.Atoi(m[1]); day >= 1 && day <= 31 {
				return &models.DateSpecific{Day: day, Month: month, Raw: m[0]}
			}
		}
	}
	if m := monthDayPattern.FindStringSubmatch(spaced); m != nil {
		if month, ok := models.CanonicalMonth(m[1]); ok {
			if day, _ := strconv.Atoi(m[2]); day >= 1 && day <= 31 {
				return &models.DateSpecific{Day: day, Month: month, Raw: m[0]}
			}
		}
	}

	// Spelled-out day next to a month, in either order, optionally joined
	// by "of".
	for i, tok := range tokens {
		day := OrdinalNumber(tok)
		if day == 0 {
			day = TamilNumber(tok)
		}
		if day < 1 || day > 31 {
			continue
		}
		for _, j := range neighborIndexes(i, len(tokens)) {
			neighbor := tokens[j]
			if neighbor == "of" {
				continue
			}
			if month, ok := models.CanonicalMonth(neighbor); ok {
				return &models.DateSpecific{Day: day, Month: month, Raw: fmt.Sprintf("%s %s", tok, neighbor)}
			}
			if month, ok := TamilMonth(neighbor); ok {
				return &models.DateSpecific{Day: day, Month: month, Raw: fmt.Sprintf("%s %s", neighbor, tok)}
			}
		}
	}

	// Tamil month followed by a digit day ("செப்டம்பர் 14 அன்று").
	for i, tok := range tokens {
		month, ok := TamilMonth(tok)
		if !ok {
			month, ok = TamilMonth(tok + "்")
		}
		if !ok {
			continue
		}
		for _, j := range neighborIndexes(i, len(tokens)) {
			if day, err := strconv.Atoi(tokens[j]); err == nil && day >= 1 && day <= 31 {
				return &models.DateSpecific{Day: day, Month: month, Raw: raw}
			}
		}
	}
	return nil
}

// neighborIndexes yields token positions within two steps of i, nearest
// first, so "14th of september" bridges the "of".
func neighborIndexes(i, n int) []int {
	var out []int
	for _, d := range []int{1, -1, 2, -2} {
		if j := i + d; j >= 0 && j < n {
			out = append(out, j)
		}
	}
	return out
}

// isMultiDomain reports whether the question spans more than one data
// domain: distinct metric words joined by a conjunction, or learned values
// from two or more custom dimension columns.
func isMultiDomain(spaced string, ents *models.Entities) bool {
	if len(ents.CustomEntities) >= 2 {
		return true
	}
	if !strings.Contains(spaced, " and ") && !strings.Contains(spaced, " vs ") {
		return false
	}
	count := 0
	for _, w := range metricWords {
		if indexWord(spaced, w) >= 0 {
			count++
		}
	}
	return count >= 2
}
