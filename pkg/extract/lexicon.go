// Package extract is the deterministic entity extractor: regex and lexicon
// based, no external calls. It recognizes months (English and Tamil),
// metrics, categories, locations, aggregations, time periods, and
// analytical intent flags.
package extract

import "regexp"

// aggregationVerbs maps trigger words to aggregation functions. Scanning
// order does not matter; the first hit in the question wins by position.
var aggregationVerbs = map[string]string{
	"average": "AVG", "mean": "AVG", "avg": "AVG",
	"total": "SUM", "sum": "SUM", "overall": "SUM",
	"count": "COUNT", "how many": "COUNT", "number of": "COUNT",
	"maximum": "MAX", "highest": "MAX", "max": "MAX",
	"minimum": "MIN", "lowest": "MIN", "min": "MIN", "least": "MIN",
	"unique": "COUNT_DISTINCT", "distinct": "COUNT_DISTINCT",
}

// metricWords is the metric vocabulary. It doubles as the hard deny-list
// that keeps metric words out of the category slot even when the dynamic
// learner has absorbed them from data.
var metricWords = []string{
	"sales", "revenue", "profit", "orders", "amount", "quantity", "qty",
	"price", "discount", "income", "turnover", "margin", "units", "salary",
	"commission", "expense", "cost",
}

// metricDenySet is metricWords as a set, for O(1) category filtering.
var metricDenySet = func() map[string]bool {
	set := make(map[string]bool, len(metricWords))
	for _, w := range metricWords {
		set[w] = true
	}
	return set
}()

// Trigger phrase lists. English plus the Tamil forms the engine accepts.
var (
	comparisonTriggers = []string{
		"compare", " vs ", " versus ", "difference between", "change from",
		"growth", "grew", "increase from", "decrease from", "better month",
		"ஒப்பிடு", "வித்தியாசம்",
	}
	trendTriggers = []string{
		"trend", "over time", "pattern", "trajectory", "month by month",
		"month-wise", "monthly movement", "how has", "how have",
		"போக்கு",
	}
	summaryTriggers = []string{
		"summary", "summarize", "overview", "snapshot", "overall picture",
		"சுருக்கம்",
	}
	impactTriggers = []string{
		"impact", "effect", "influence", "contribution of",
		"தாக்கம்",
	}
	crossTableTriggers = []string{
		"across all", "all months", "entire data", "whole data", "combined",
		"altogether", "grand total", "overall total", "across tables",
	}
	projectionTriggers = []string{
		"if this continues", "projected", "projection", "forecast",
		"next month", "next quarter", "next year", "run rate", "run-rate",
		"will we reach", "when will", "எதிர்பார்க்கலாம்", "அடுத்த மாதம்",
	}
)

// dimensionKeywords are the generic dimension words recognized in questions.
var dimensionKeywords = []string{
	"area", "zone", "pincode", "branch", "category", "state", "city",
	"region", "district", "product", "employee", "department", "location",
	"store", "outlet", "item", "sku", "segment",
}

// Column-name fragments used to classify learned dimension columns.
var (
	locationColumnWords = []string{"location", "city", "state", "area", "zone", "region", "branch", "district", "place", "territory"}
	categoryColumnWords = []string{"category", "segment", "type", "group", "class", "department"}
	productColumnWords  = []string{"product", "item", "sku", "brand", "model"}
)

// Time period patterns.
var (
	topNPattern       = regexp.MustCompile(`\btop\s+(\d+)\b`)
	lastNMonthsPat    = regexp.MustCompile(`\blast\s+(\d+)\s+months?\b`)
	explicitTablePats = []*regexp.Regexp{
		regexp.MustCompile(`(?:in|from)\s+(?:the\s+)?([a-z0-9][a-z0-9 _]+?)\s+(?:table|sheet|data)\b`),
		regexp.MustCompile(`^in\s+([a-z0-9][a-z0-9 _]+?)\s*,`),
	}
	ddmmyyyyPattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dayMonthPattern = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)\b`)
	monthDayPattern = regexp.MustCompile(`\b([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// stopwords excluded from keyword matching against table names.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"what": true, "which": true, "show": true, "give": true, "list": true,
	"how": true, "many": true, "much": true, "was": true, "were": true,
	"are": true, "is": true, "in": true, "of": true, "on": true, "to": true,
	"by": true, "me": true, "all": true, "per": true, "each": true,
	"data": true, "table": true, "sheet": true,
}

// domainShortTokens are short tokens that still count as significant query
// keywords despite being under the 4-character floor.
var domainShortTokens = map[string]bool{
	"sku": true, "upi": true, "gst": true, "hr": true, "pin": true, "emp": true,
}

// IsStopword reports whether a token is excluded from keyword matching.
func IsStopword(tok string) bool { return stopwords[tok] }

// IsSignificantToken reports whether a query token participates in
// table-name keyword scoring: ≥4 chars and not a stopword, or a recognized
// domain short token.
func IsSignificantToken(tok string) bool {
	if domainShortTokens[tok] {
		return true
	}
	return len(tok) >= 4 && !stopwords[tok]
}

// IsMetricWord reports whether a word is in the metric deny-list.
func IsMetricWord(w string) bool { return metricDenySet[w] }

// DimensionKeywords returns the static dimension keyword list.
func DimensionKeywords() []string { return dimensionKeywords }
