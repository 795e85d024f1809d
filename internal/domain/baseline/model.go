package baseline

import (
	"errors"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

// CustomerBaseline is the statistical summary of one customer's history for one metric
type CustomerBaseline struct {
	CustomerID      string             `json:"customer_id"`
	MetricType      usage.MetricType   `json:"metric_type"`
	Mean            float64            `json:"mean"`
	StdDev          float64            `json:"std_dev"`
	Median          float64            `json:"median"`
	Q1              float64            `json:"q1"`
	Q3              float64            `json:"q3"`
	IQR             float64            `json:"iqr"`
	SampleCount     int                `json:"sample_count"`
	SeasonalFactors map[string]float64 `json:"seasonal_factors,omitempty"` // weekday name -> factor
	CalculatedAt    time.Time          `json:"calculated_at"`
}

const (
	// MinDataPoints is the smallest history a baseline is computed from
	MinDataPoints = 7

	// DefaultWindowDays is the history window used when none is given
	DefaultWindowDays = 30

	// FreshnessWindow is how long a stored baseline is reused without recomputation
	FreshnessWindow = 7 * 24 * time.Hour
)

// ErrInsufficientData is returned when fewer than MinDataPoints values are available.
// It is not a failure: callers skip the metric.
var ErrInsufficientData = errors.New("insufficient data for baseline")

// IsFresh reports whether the baseline may be reused at time now
func (b *CustomerBaseline) IsFresh(now time.Time) bool {
	return now.Sub(b.CalculatedAt) < FreshnessWindow
}

// SeasonalFactor returns the factor recorded for the weekday of t
func (b *CustomerBaseline) SeasonalFactor(t time.Time) (float64, bool) {
	if len(b.SeasonalFactors) == 0 {
		return 0, false
	}
	f, ok := b.SeasonalFactors[WeekdayKey(t.UTC().Weekday())]
	return f, ok
}

// WeekdayKey is the map key used for seasonal factors
func WeekdayKey(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	default:
		return "saturday"
	}
}
