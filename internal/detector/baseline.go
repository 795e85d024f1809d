package detector

import (
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

// CalculateBaseline summarizes a metric's history. Points with fewer than
// baseline.MinDataPoints entries yield baseline.ErrInsufficientData.
// The result does not depend on the order of points.
func CalculateBaseline(customerID string, metric usage.MetricType, points []usage.Point, now time.Time) (*baseline.CustomerBaseline, error) {
	if len(points) < baseline.MinDataPoints {
		return nil, baseline.ErrInsufficientData
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	sorted := sortedCopy(values)

	mean, stdDev := meanStdDev(sorted)
	q1, q3 := quartiles(sorted)

	return &baseline.CustomerBaseline{
		CustomerID:      customerID,
		MetricType:      metric,
		Mean:            mean,
		StdDev:          stdDev,
		Median:          median(sorted),
		Q1:              q1,
		Q3:              q3,
		IQR:             q3 - q1,
		SampleCount:     len(sorted),
		SeasonalFactors: seasonalFactors(points, mean),
		CalculatedAt:    now,
	}, nil
}

// seasonalFactors maps each weekday present in points to its mean relative to the overall mean
func seasonalFactors(points []usage.Point, overallMean float64) map[string]float64 {
	byDay := make(map[time.Weekday][]float64)
	for _, p := range points {
		day := p.Timestamp.UTC().Weekday()
		byDay[day] = append(byDay[day], p.Value)
	}

	factors := make(map[string]float64, len(byDay))
	for day, values := range byDay {
		if overallMean == 0 {
			factors[baseline.WeekdayKey(day)] = 1
			continue
		}
		dayMean, _ := meanStdDev(sortedCopy(values))
		factors[baseline.WeekdayKey(day)] = dayMean / overallMean
	}
	return factors
}
