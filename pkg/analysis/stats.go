// Package analysis implements the multi-step operators: comparisons,
// percentages, trend analysis, and projections. Each composes simple
// aggregate SQL through the executor and does its arithmetic here; the
// formulas are closed-form, no external solver.
package analysis

import (
	"math"

	"github.com/tablechat-ai/tablechat/pkg/models"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// coefficientOfVariation is stddev over |mean|; 0 for a zero-mean series.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return stddev(values) / math.Abs(m)
}

// linearRegression fits y = intercept + slope*x over x = 0..n-1.
func linearRegression(values []float64) (slope, intercept float64) {
	n := len(values)
	if n < 2 {
		if n == 1 {
			return 0, values[0]
		}
		return 0, 0
	}
	xMean := float64(n-1) / 2
	yMean := mean(values)

	num, den := 0.0, 0.0
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}
	slope = num / den
	return slope, yMean - slope*xMean
}

func seriesValues(points []models.DataPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}
