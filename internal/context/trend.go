package context

import (
	"math"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
)

// AnalyzeTrend fits a simple linear regression over the most recent
// TrendWindowN points of series and classifies its direction (spec
// §4.9.3). High volatility overrides slope-based classification:
// zig-zagging scores are "volatile" even if their net slope is flat.
func AnalyzeTrend(series []float64, cfg config.ContextConfig) models.TrendResult {
	window := series
	if cfg.TrendWindowN > 0 && len(series) > cfg.TrendWindowN {
		window = series[len(series)-cfg.TrendWindowN:]
	}
	if len(window) < 2 {
		return models.TrendResult{Direction: models.TrendStable}
	}

	slope := linearRegressionSlope(window)
	volatility := stddev(window)

	direction := models.TrendStable
	switch {
	case volatility >= cfg.TrendVolatility:
		direction = models.TrendVolatile
	case slope >= cfg.TrendEpsilon:
		direction = models.TrendWorsening
	case slope <= -cfg.TrendEpsilon:
		direction = models.TrendImproving
	}

	smoothed := movingAverage(series, 3)
	return models.TrendResult{
		Direction:        direction,
		Velocity:         slope,
		InflectionPoints: inflectionPoints(smoothed),
	}
}

// linearRegressionSlope fits y = a + b*x by ordinary least squares over
// equally-spaced x = 0..n-1 and returns b.
func linearRegressionSlope(y []float64) float64 {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominator
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// movingAverage returns the centered moving average of series with the
// given window (used both for smoothing the exposed series and for
// finding inflection points); at the edges, where a full window isn't
// available, it averages the points of the window that fall inside the
// series.
func movingAverage(series []float64, window int) []float64 {
	if window < 1 || len(series) == 0 {
		return series
	}
	out := make([]float64, len(series))
	half := window / 2
	for i := range series {
		lo := i - half
		hi := i + half
		if lo < 0 {
			lo = 0
		}
		if hi >= len(series) {
			hi = len(series) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += series[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// inflectionPoints finds indices where the smoothed series changes
// direction (local minima/maxima).
func inflectionPoints(smoothed []float64) []int {
	var points []int
	if len(smoothed) < 3 {
		return points
	}
	for i := 1; i < len(smoothed)-1; i++ {
		prevDelta := smoothed[i] - smoothed[i-1]
		nextDelta := smoothed[i+1] - smoothed[i]
		if prevDelta == 0 || nextDelta == 0 {
			continue
		}
		if (prevDelta > 0) != (nextDelta > 0) {
			points = append(points, i)
		}
	}
	return points
}
