package detector

import (
	"testing"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyPoints(start time.Time, values ...float64) []usage.Point {
	points := make([]usage.Point, len(values))
	for i, v := range values {
		points[i] = usage.Point{Timestamp: start.AddDate(0, 0, i), Value: v}
	}
	return points
}

// 2026-10-05 is a Monday
var monday = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

func TestCalculateBaseline_InsufficientData(t *testing.T) {
	for n := 0; n < baseline.MinDataPoints; n++ {
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(i + 1)
		}

		b, err := CalculateBaseline("cust-1", usage.MetricDAU, dailyPoints(monday, values...), time.Now())
		assert.ErrorIs(t, err, baseline.ErrInsufficientData, "n=%d", n)
		assert.Nil(t, b)
	}
}

func TestCalculateBaseline_Statistics(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	points := dailyPoints(monday, 2, 4, 4, 4, 5, 5, 7, 9)

	b, err := CalculateBaseline("cust-1", usage.MetricWAU, points, now)
	require.NoError(t, err)

	assert.Equal(t, "cust-1", b.CustomerID)
	assert.Equal(t, usage.MetricWAU, b.MetricType)
	assert.Equal(t, 5.0, b.Mean)
	assert.Equal(t, 2.0, b.StdDev)
	assert.Equal(t, 4.5, b.Median)
	assert.Equal(t, 4.0, b.Q1)
	assert.Equal(t, 6.0, b.Q3)
	assert.Equal(t, 2.0, b.IQR)
	assert.Equal(t, 8, b.SampleCount)
	assert.Equal(t, now, b.CalculatedAt)
}

func TestCalculateBaseline_OrderIndependent(t *testing.T) {
	values := []float64{13.7, 0.1, 99.3, 42.42, 7.77, 18.5, 64.01, 3.3, 27.9}
	reversed := make([]float64, len(values))
	for i, v := range values {
		reversed[len(values)-1-i] = v
	}

	a, err := CalculateBaseline("c", usage.MetricMAU, dailyPoints(monday, values...), monday)
	require.NoError(t, err)
	b, err := CalculateBaseline("c", usage.MetricMAU, dailyPoints(monday, reversed...), monday)
	require.NoError(t, err)

	assert.Equal(t, a.Mean, b.Mean)
	assert.Equal(t, a.StdDev, b.StdDev)
	assert.Equal(t, a.Median, b.Median)
	assert.Equal(t, a.Q1, b.Q1)
	assert.Equal(t, a.Q3, b.Q3)
	assert.Equal(t, a.IQR, b.IQR)
}

func TestCalculateBaseline_SeasonalFactors(t *testing.T) {
	// Two weeks: weekdays at 100, weekends at 40
	var values []float64
	for week := 0; week < 2; week++ {
		values = append(values, 100, 100, 100, 100, 100, 40, 40)
	}

	b, err := CalculateBaseline("c", usage.MetricDAU, dailyPoints(monday, values...), monday)
	require.NoError(t, err)

	require.Len(t, b.SeasonalFactors, 7)
	overall := (5*100.0 + 2*40.0) / 7
	assert.InDelta(t, 100/overall, b.SeasonalFactors["monday"], 1e-9)
	assert.InDelta(t, 40/overall, b.SeasonalFactors["saturday"], 1e-9)
	assert.InDelta(t, 40/overall, b.SeasonalFactors["sunday"], 1e-9)
}

func TestCalculateBaseline_SeasonalFactorsZeroMean(t *testing.T) {
	b, err := CalculateBaseline("c", usage.MetricDAU, dailyPoints(monday, 0, 0, 0, 0, 0, 0, 0), monday)
	require.NoError(t, err)

	assert.Equal(t, 0.0, b.StdDev)
	assert.Equal(t, 0.0, b.IQR)
	for day, f := range b.SeasonalFactors {
		assert.Equal(t, 1.0, f, day)
	}
}
