package usage

import "time"

// MetricType identifies a scalar usage metric carried by a snapshot
type MetricType string

// Metric types
const (
	MetricDAU             MetricType = "dau"
	MetricWAU             MetricType = "wau"
	MetricMAU             MetricType = "mau"
	MetricTotalEvents     MetricType = "total_events"
	MetricAPICalls        MetricType = "api_calls"
	MetricSessionDuration MetricType = "session_duration"

	// MetricFeatureUsage tags anomalies derived from the per-feature breakdown
	MetricFeatureUsage MetricType = "feature_usage"
)

// TrackedMetrics are the metrics evaluated on every scan, in evaluation order
var TrackedMetrics = []MetricType{MetricDAU, MetricWAU, MetricMAU, MetricTotalEvents}

// IsValid reports whether m names a scalar snapshot metric
func (m MetricType) IsValid() bool {
	switch m {
	case MetricDAU, MetricWAU, MetricMAU, MetricTotalEvents, MetricAPICalls, MetricSessionDuration:
		return true
	}
	return false
}

// Snapshot is one customer's usage metrics at a point in time.
// Nil metric fields mean the value was not recorded.
type Snapshot struct {
	CustomerID      string             `json:"customer_id"`
	Timestamp       time.Time          `json:"timestamp"`
	DAU             *float64           `json:"dau,omitempty"`
	WAU             *float64           `json:"wau,omitempty"`
	MAU             *float64           `json:"mau,omitempty"`
	TotalEvents     *float64           `json:"total_events,omitempty"`
	APICalls        *float64           `json:"api_calls,omitempty"`
	SessionDuration *float64           `json:"session_duration,omitempty"`
	FeatureUsage    map[string]float64 `json:"feature_usage,omitempty"`
}

// Value returns the value of the given metric and whether it was recorded
func (s *Snapshot) Value(m MetricType) (float64, bool) {
	var v *float64
	switch m {
	case MetricDAU:
		v = s.DAU
	case MetricWAU:
		v = s.WAU
	case MetricMAU:
		v = s.MAU
	case MetricTotalEvents:
		v = s.TotalEvents
	case MetricAPICalls:
		v = s.APICalls
	case MetricSessionDuration:
		v = s.SessionDuration
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Point is a single (timestamp, value) observation of one metric
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Series extracts the recorded values of metric m from snapshots, dropping nulls.
// Order is preserved.
func Series(snapshots []Snapshot, m MetricType) []Point {
	points := make([]Point, 0, len(snapshots))
	for i := range snapshots {
		if v, ok := snapshots[i].Value(m); ok {
			points = append(points, Point{Timestamp: snapshots[i].Timestamp, Value: v})
		}
	}
	return points
}
