package models

// DataPoint is one (period, value) sample of a series.
type DataPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// ComparisonResult is the outcome of a two-period comparison.
type ComparisonResult struct {
	LabelA           string  `json:"label_a"`
	LabelB           string  `json:"label_b"`
	ValueA           float64 `json:"value_a"`
	ValueB           float64 `json:"value_b"`
	Difference       float64 `json:"difference"`
	PercentageChange float64 `json:"percentage_change"`
	Ratio            float64 `json:"ratio"`
	CompareType      string  `json:"compare_type"`
	Direction        string  `json:"direction"` // increased | decreased | unchanged
	DirectionGlyph   string  `json:"direction_glyph"`
}

// PercentageResult is the outcome of a percentage plan.
type PercentageResult struct {
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
	Percentage  float64 `json:"percentage"`
}

// TrendResult is the outcome of a trend analysis over a (date, value) series.
type TrendResult struct {
	DataPoints       []DataPoint `json:"data_points"`
	Direction        string      `json:"direction"` // increasing | decreasing | stable
	Slope            float64     `json:"slope"`
	NormalizedSlope  float64     `json:"normalized_slope"`
	Confidence       string      `json:"confidence"` // high | medium | low
	IsConstant       bool        `json:"is_constant"`
	Start            float64     `json:"start"`
	End              float64     `json:"end"`
	Min              float64     `json:"min"`
	Max              float64     `json:"max"`
	Avg              float64     `json:"avg"`
	TotalChange      float64     `json:"total_change"`
	PercentageChange float64     `json:"percentage_change"`
}

// ProjectionType classifies what kind of forward-looking question was asked.
type ProjectionType string

const (
	ProjectionFutureValue     ProjectionType = "future_value"
	ProjectionContinuation    ProjectionType = "continuation"
	ProjectionGoalBased       ProjectionType = "goal_based"
	ProjectionComparisonBased ProjectionType = "comparison_based"
)

// ProjectionRequest is the detector's reading of a projection question.
type ProjectionRequest struct {
	Type         ProjectionType `json:"type"`
	TargetPeriod string         `json:"target_period"` // month name, next_month, next_quarter, next_year, next_N_months
	PeriodsAhead int            `json:"periods_ahead"`
	TargetValue  float64        `json:"target_value,omitempty"` // goal-based only
}

// ProjectionResult is the calculator's forecast.
type ProjectionResult struct {
	Method          string  `json:"method"` // momentum | linear_regression | moving_average | exponential_smoothing | hybrid
	ProjectedValue  float64 `json:"projected_value"`
	PeriodsAhead    int     `json:"periods_ahead"`
	RangeLow        float64 `json:"range_low"`
	RangeHigh       float64 `json:"range_high"`
	ConfidenceScore float64 `json:"confidence_score"` // clamped [0.25, 0.95]
	ConfidenceLevel string  `json:"confidence_level"` // LOW | MEDIUM | HIGH

	// Goal-based fields.
	TargetValue   float64 `json:"target_value,omitempty"`
	PeriodsToGoal int     `json:"periods_to_goal,omitempty"`
	Reachable     bool    `json:"reachable,omitempty"`
}
