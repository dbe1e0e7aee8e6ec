package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

// Projection trigger vocabulary, English and Tamil.
var (
	projectionTriggers = []string{
		"continues", "at this rate",
		"project", "forecast", "run rate", "run-rate", "extrapolate",
		"what will", "how much will", "will we", "when will", "expect",
		"how long until", "next month", "next quarter", "next year",
		"எதிர்பார்க்கலாம்", "அடுத்த மாதம்", "தொடர்ந்தால்",
	}
	goalTriggers = []string{
		"reach", "hit", "target", "goal", "when will", "how long until",
		"அடைய",
	}
	comparisonBasedTriggers = []string{
		"beat", "exceed", "surpass", "outperform", "better than", "more than last",
	}
	continuationTriggers = []string{
		"continues", "at this rate", "தொடர்ந்தால்",
	}
)

var (
	nextNMonthsPattern = regexp.MustCompile(`next\s+(\d+)\s+months?`)
	// targetValuePattern captures "10 lakhs", "1.5 crore", "50k", "2 million".
	targetValuePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(lakhs?|lacs?|crores?|thousand|million|[km])\b`)
	bareNumberPattern  = regexp.MustCompile(`(?:reach|hit|target of|goal of)\s+(?:rs\.?\s*|₹\s*)?(\d[\d,]*(?:\.\d+)?)`)
)

// magnitudeFor resolves Indian and western magnitude words.
func magnitudeFor(word string) float64 {
	switch {
	case strings.HasPrefix(word, "lakh") || strings.HasPrefix(word, "lac"):
		return 1e5
	case strings.HasPrefix(word, "crore"):
		return 1e7
	case word == "thousand" || word == "k":
		return 1e3
	case word == "million" || word == "m":
		return 1e6
	}
	return 1
}

// DetectProjection reads a question for forward-looking intent. ok is false
// when the question is not a projection ask.
func DetectProjection(question string) (*models.ProjectionRequest, bool) {
	lower := strings.ToLower(question)
	if !containsAny(lower, projectionTriggers) {
		return nil, false
	}

	req := &models.ProjectionRequest{
		Type:         models.ProjectionFutureValue,
		TargetPeriod: "next_month",
		PeriodsAhead: 1,
	}

	if v, ok := parseTargetValue(lower); ok {
		req.Type = models.ProjectionGoalBased
		req.TargetValue = v
	} else if containsAny(lower, comparisonBasedTriggers) {
		req.Type = models.ProjectionComparisonBased
	} else if containsAny(lower, continuationTriggers) {
		req.Type = models.ProjectionContinuation
	}

	switch {
	case nextNMonthsPattern.MatchString(lower):
		m := nextNMonthsPattern.FindStringSubmatch(lower)
		n, _ := strconv.Atoi(m[1])
		req.TargetPeriod = "next_" + m[1] + "_months"
		req.PeriodsAhead = n
	case strings.Contains(lower, "next quarter"):
		req.TargetPeriod = "next_quarter"
		req.PeriodsAhead = 3
	case strings.Contains(lower, "next year"):
		req.TargetPeriod = "next_year"
		req.PeriodsAhead = 12
	default:
		for _, month := range models.MonthNames {
			if strings.Contains(lower, month) {
				req.TargetPeriod = month
				break
			}
		}
	}
	return req, true
}

// parseTargetValue extracts a goal amount, resolving lakh/crore magnitudes.
func parseTargetValue(lower string) (float64, bool) {
	if m := targetValuePattern.FindStringSubmatch(lower); m != nil {
		if !containsAny(lower, goalTriggers) {
			return 0, false
		}
		base, _ := strconv.ParseFloat(m[1], 64)
		return base * magnitudeFor(m[2]), true
	}
	if m := bareNumberPattern.FindStringSubmatch(lower); m != nil {
		base, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		return base, true
	}
	return 0, false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// ResolvePeriodsAhead anchors a month-name target against the last period
// of the series: "december" three data points after september is 3.
func ResolvePeriodsAhead(req *models.ProjectionRequest, points []models.DataPoint) {
	target := models.MonthNumber(req.TargetPeriod)
	if target == 0 || len(points) == 0 {
		return
	}
	last, ok := models.CanonicalMonth(points[len(points)-1].Period)
	if !ok {
		return
	}
	ahead := (target - models.MonthNumber(last) + 12) % 12
	if ahead == 0 {
		ahead = 12
	}
	req.PeriodsAhead = ahead
}

// Project forecasts the series req.PeriodsAhead steps out. The method is
// picked from the data shape: short series get momentum, steady series get
// regression, noisy ones get smoothing.
func Project(points []models.DataPoint, trendConfidence string, req *models.ProjectionRequest) *models.ProjectionResult {
	values := seriesValues(points)
	n := len(values)
	periods := req.PeriodsAhead
	if periods < 1 {
		periods = 1
	}

	cv := coefficientOfVariation(values)
	method, projected := chooseAndRun(values, cv, periods)
	if projected < 0 {
		projected = 0
	}

	margin := methodMargin(method) * math.Sqrt(float64(periods))
	score := confidenceScore(n, cv, trendConfidence, periods, values, method)

	result := &models.ProjectionResult{
		Method:          method,
		ProjectedValue:  projected,
		PeriodsAhead:    periods,
		RangeLow:        math.Max(0, projected*(1-margin)),
		RangeHigh:       projected * (1 + margin),
		ConfidenceScore: score,
		ConfidenceLevel: confidenceLevel(score),
	}

	if req.Type == models.ProjectionGoalBased {
		applyGoal(result, values, req.TargetValue)
	}
	return result
}

func chooseAndRun(values []float64, cv float64, periods int) (string, float64) {
	n := len(values)
	switch {
	case n < 3:
		return "momentum", momentum(values, periods)
	case cv < 0.15:
		return "linear_regression", regressionForecast(values, periods)
	case cv < 0.30:
		return "moving_average", movingAverageForecast(values, periods)
	case n >= 5:
		return "exponential_smoothing", holtForecast(values, periods)
	case n >= 4:
		return "hybrid", (regressionForecast(values, periods) +
			movingAverageForecast(values, periods)) / 2
	}
	return "moving_average", movingAverageForecast(values, periods)
}

// momentum projects the last step change forward.
func momentum(values []float64, periods int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	last := values[n-1]
	if n == 1 {
		return last
	}
	return last + (last-values[n-2])*float64(periods)
}

func regressionForecast(values []float64, periods int) float64 {
	slope, intercept := linearRegression(values)
	x := float64(len(values)-1) + float64(periods)
	return intercept + slope*x
}

// movingAverageForecast blends a 3-period window with average-change
// momentum.
func movingAverageForecast(values []float64, periods int) float64 {
	n := len(values)
	window := values
	if n > 3 {
		window = values[n-3:]
	}
	ma := mean(window)

	avgChange := 0.0
	if n > 1 {
		avgChange = (values[n-1] - values[0]) / float64(n-1)
	}
	return ma + avgChange*float64(periods)
}

// holtForecast is double exponential smoothing with alpha 0.3, beta 0.1.
func holtForecast(values []float64, periods int) float64 {
	const alpha, beta = 0.3, 0.1
	if len(values) < 2 {
		return momentum(values, periods)
	}
	level := values[0]
	trend := values[1] - values[0]
	for _, y := range values[1:] {
		prevLevel := level
		level = alpha*y + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return level + float64(periods)*trend
}

func methodMargin(method string) float64 {
	switch method {
	case "momentum":
		return 0.25
	case "linear_regression":
		return 0.10
	case "moving_average":
		return 0.15
	case "exponential_smoothing":
		return 0.20
	}
	return 0.12
}

// confidenceScore combines data volume, prior trend confidence, projection
// distance, trend strength, and series consistency, then clamps to
// [0.25, 0.95].
func confidenceScore(n int, cv float64, trendConfidence string, periods int, values []float64, method string) float64 {
	score := 0.5

	points := n
	if points > 6 {
		points = 6
	}
	score += float64(points) * 0.04

	switch trendConfidence {
	case "high":
		score += 0.15
	case "medium":
		score += 0.05
	case "low":
		score -= 0.05
	}

	if periods == 1 {
		score += 0.05
	} else if periods > 4 {
		score -= 0.05 * float64(periods-4)
	}

	if len(values) >= 2 {
		slope, _ := linearRegression(values)
		if m := mean(values); m != 0 && math.Abs(slope/m*100) > 5 {
			score += 0.05
		}
	}

	switch {
	case cv < 0.15:
		score += 0.10
	case cv > 0.40:
		score -= 0.10
	}

	if method == "momentum" {
		score -= 0.10
		if score > 0.6 {
			score = 0.6
		}
	}

	if score < 0.25 {
		score = 0.25
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}

func confidenceLevel(score float64) string {
	switch {
	case score < 0.55:
		return "LOW"
	case score < 0.75:
		return "MEDIUM"
	}
	return "HIGH"
}

// applyGoal computes whether and when the series reaches the target value.
func applyGoal(result *models.ProjectionResult, values []float64, target float64) {
	result.TargetValue = target
	if len(values) == 0 {
		return
	}
	slope, _ := linearRegression(values)
	delta := target - values[len(values)-1]

	if slope == 0 || slope*delta <= 0 {
		result.Reachable = false
		return
	}
	periods := int(math.Round(math.Abs(delta / slope)))
	result.PeriodsToGoal = periods
	result.Reachable = periods > 0 && periods < 24
}
