package detector

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

const (
	// FeatureMinCount is the previous-period count below which a feature is ignored as noise
	FeatureMinCount = 10

	abandonedWarningPercent = 80
)

// FeatureDetector flags adopted features whose usage fell sharply between two periods
type FeatureDetector struct {
	dropThreshold float64
	now           func() time.Time
}

// NewFeatureDetector creates a detector flagging drops of at least dropThreshold percent
func NewFeatureDetector(dropThreshold float64) *FeatureDetector {
	return &FeatureDetector{dropThreshold: dropThreshold, now: time.Now}
}

// Detect compares per-feature counts of the previous and current periods.
// Results are ordered by feature name.
func (d *FeatureDetector) Detect(customerID string, previous, current map[string]float64) []*anomaly.UsageAnomaly {
	features := make([]string, 0, len(previous))
	for name := range previous {
		features = append(features, name)
	}
	sort.Strings(features)

	var out []*anomaly.UsageAnomaly
	for _, name := range features {
		prev := previous[name]
		if prev < FeatureMinCount {
			continue
		}
		curr := current[name]

		dropPercent := (prev - curr) / prev * 100
		if dropPercent < d.dropThreshold {
			continue
		}

		severity := anomaly.SeverityInfo
		if dropPercent >= abandonedWarningPercent {
			severity = anomaly.SeverityWarning
		}

		out = append(out, &anomaly.UsageAnomaly{
			ID:               uuid.New().String(),
			CustomerID:       customerID,
			MetricType:       usage.MetricFeatureUsage,
			AnomalyType:      anomaly.TypeFeatureAbandonment,
			Severity:         severity,
			BaselineValue:    prev,
			ActualValue:      curr,
			DeviationPercent: -round2(dropPercent),
			DetectedAt:       d.now(),
			AffectedFeature:  name,
			PossibleCause:    PossibleCause(anomaly.TypeFeatureAbandonment, severity),
			Metadata: map[string]interface{}{
				"previous_count": prev,
				"current_count":  curr,
			},
		})
	}
	return out
}
