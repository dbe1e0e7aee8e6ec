package models

// DateSpecific captures an exact calendar date mentioned in a question,
// e.g. "on September 14th" or the Tamil equivalent.
type DateSpecific struct {
	Day   int    `json:"day"`
	Month string `json:"month"`
	Year  int    `json:"year,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

// Entities is the bag of values the extractor recognizes in a question.
// Every field is optional; zero values mean "not mentioned".
type Entities struct {
	Month     string   `json:"month,omitempty"`
	AllMonths []string `json:"all_months,omitempty"`
	Metric    string   `json:"metric,omitempty"`
	Category  string   `json:"category,omitempty"`
	Location  string   `json:"location,omitempty"`

	// Aggregation defaults to SUM when the question names none.
	Aggregation string `json:"aggregation"`

	Comparison           bool `json:"comparison"`
	MultiMonthComparison bool `json:"multi_month_comparison"`
	CrossTableIntent     bool `json:"cross_table_intent"`

	DimensionKeywords []string `json:"dimension_keywords,omitempty"`

	// TimePeriod holds phrases like "top_5", "last_3_months", "today".
	TimePeriod string `json:"time_period,omitempty"`

	ExplicitTable string        `json:"explicit_table,omitempty"`
	DateSpecific  *DateSpecific `json:"date_specific,omitempty"`

	// CustomEntities maps learned dimension column names to the values of
	// that dimension found in the question.
	CustomEntities map[string][]string `json:"custom_entities,omitempty"`

	TrendIntent      bool `json:"trend_intent"`
	SummaryIntent    bool `json:"summary_intent"`
	ImpactIntent     bool `json:"impact_intent"`
	MultiDomainQuery bool `json:"multi_domain_query"`

	RawQuestion string `json:"raw_question"`
}

// NewEntities returns an entity bag with defaults applied.
func NewEntities(question string) *Entities {
	return &Entities{
		Aggregation:    "SUM",
		CustomEntities: map[string][]string{},
		RawQuestion:    question,
	}
}

// Merge combines a follow-up turn's entities with the previous turn's.
// For month, metric, category, location, aggregation and date_specific the
// new value wins when set, otherwise the prior value is inherited. The
// flags comparison/time_period/explicit_table/raw_question are never
// inherited.
func (e *Entities) Merge(prev *Entities) *Entities {
	if prev == nil {
		return e
	}
	merged := *e
	if merged.Month == "" {
		merged.Month = prev.Month
	}
	if len(merged.AllMonths) == 0 && merged.Month != "" && merged.Month == prev.Month {
		merged.AllMonths = prev.AllMonths
	}
	if merged.Metric == "" {
		merged.Metric = prev.Metric
	}
	if merged.Category == "" {
		merged.Category = prev.Category
	}
	if merged.Location == "" {
		merged.Location = prev.Location
	}
	if merged.Aggregation == "" {
		merged.Aggregation = prev.Aggregation
	}
	if merged.DateSpecific == nil {
		merged.DateSpecific = prev.DateSpecific
	}
	return &merged
}
