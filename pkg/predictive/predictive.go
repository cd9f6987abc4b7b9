// Package predictive provides pure, stateless numeric helpers analyzers use
// when they have an injected historical series: linear-trend forecasting
// and z-score anomaly detection.
package predictive

import "math"

// Point is one (x_index, y_value) sample in a trend series.
type Point struct {
	X float64
	Y float64
}

// Trend is the result of an ordinary-least-squares linear fit.
type Trend struct {
	Slope     float64
	Intercept float64
}

// LinearTrend fits points by ordinary least squares. If fewer than two
// points are given, or the x values are constant (zero denominator), the
// slope is 0 rather than raising — callers treat a flat trend as "no
// movement", not an error.
func LinearTrend(points []Point) Trend {
	n := float64(len(points))
	if n < 2 {
		return Trend{}
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Trend{Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	return Trend{Slope: slope, Intercept: intercept}
}

// TimeToThreshold estimates how many x-units until current reaches
// threshold given the trend's slope. Returns +Inf when the trend is flat
// or moving away from the threshold (slope <= 0), since no finite time
// reaches it.
func TimeToThreshold(trend Trend, current, threshold float64) float64 {
	if trend.Slope <= 0 {
		return math.Inf(1)
	}
	return (threshold - current) / trend.Slope
}

// ZScoreAnomalies returns the indices of values whose population z-score
// magnitude exceeds threshold. Fewer than three values, or a population
// stdev of zero (all values identical), yields no anomalies rather than
// raising.
func ZScoreAnomalies(values []float64, threshold float64) []int {
	if len(values) < 3 {
		return nil
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return nil
	}

	var anomalies []int
	for i, v := range values {
		z := math.Abs(v-mean) / stdev
		if z > threshold {
			anomalies = append(anomalies, i)
		}
	}
	return anomalies
}

// DefaultZScoreThreshold is the standard anomaly threshold (3 sigma) used
// when an analyzer doesn't override it.
const DefaultZScoreThreshold = 3.0

// Confidence labels how much a forecast should be trusted based on how
// much history backs it: >=20 points high, >=10 medium, else low.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceForHistoryLength labels confidence by sample count.
func ConfidenceForHistoryLength(n int) Confidence {
	switch {
	case n >= 20:
		return ConfidenceHigh
	case n >= 10:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
