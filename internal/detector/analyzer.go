package detector

import (
	"time"

	"github.com/google/uuid"
	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

const (
	// Drop severity tiers, in deviation percent
	criticalDropPercent = -70
	warningDropPercent  = -50

	// Tukey fence multiplier
	fenceMultiplier = 1.5
)

// Analyzer classifies a current metric value against its baseline
type Analyzer struct {
	cfg anomaly.DetectionConfig
	now func() time.Time
}

// NewAnalyzer creates a new analyzer with the given thresholds
func NewAnalyzer(cfg anomaly.DetectionConfig) *Analyzer {
	return &Analyzer{cfg: cfg, now: time.Now}
}

// Observation is one current metric value to classify
type Observation struct {
	CustomerID string
	Metric     usage.MetricType
	Value      float64
	ObservedAt time.Time
}

// Analyze returns the anomaly for obs, or nil when the value is within its baseline.
// Rules are evaluated in order (drop, spike, pattern change) and the first match wins.
func (a *Analyzer) Analyze(obs Observation, b *baseline.CustomerBaseline) *anomaly.UsageAnomaly {
	value := obs.Value
	metadata := map[string]interface{}{
		"std_dev":      round2(b.StdDev),
		"median":       round2(b.Median),
		"sample_count": b.SampleCount,
	}

	if a.cfg.SeasonalAdjustment {
		if factor, ok := b.SeasonalFactor(obs.ObservedAt); ok && factor > 0 {
			value = value / factor
			metadata["seasonal_factor"] = round2(factor)
			metadata["adjusted_value"] = round2(value)
		}
	}

	var zScore float64
	if b.StdDev > 0 {
		zScore = (value - b.Mean) / b.StdDev
	}
	var deviation float64
	if b.Mean > 0 {
		deviation = (value - b.Mean) / b.Mean * 100
	}

	var (
		anomalyType anomaly.Type
		severity    anomaly.Severity
	)

	switch {
	case deviation <= -a.cfg.DropThresholdPercent && zScore <= -a.cfg.ZScoreThreshold:
		anomalyType = anomaly.TypeDrop
		severity = dropSeverity(deviation)
	case deviation >= a.cfg.SpikeThresholdPercent && zScore >= a.cfg.ZScoreThreshold:
		anomalyType = anomaly.TypeSpike
		severity = anomaly.SeverityInfo
	case value < b.Q1-fenceMultiplier*b.IQR || value > b.Q3+fenceMultiplier*b.IQR:
		anomalyType = anomaly.TypePatternChange
		severity = anomaly.SeverityWarning
	default:
		return nil
	}

	z := round2(zScore)
	return &anomaly.UsageAnomaly{
		ID:               uuid.New().String(),
		CustomerID:       obs.CustomerID,
		MetricType:       obs.Metric,
		AnomalyType:      anomalyType,
		Severity:         severity,
		BaselineValue:    round2(b.Mean),
		ActualValue:      obs.Value,
		DeviationPercent: round2(deviation),
		ZScore:           &z,
		DetectedAt:       a.now(),
		PossibleCause:    PossibleCause(anomalyType, severity),
		Metadata:         metadata,
	}
}

// dropSeverity escalates with the size of the drop
func dropSeverity(deviation float64) anomaly.Severity {
	switch {
	case deviation <= criticalDropPercent:
		return anomaly.SeverityCritical
	case deviation <= warningDropPercent:
		return anomaly.SeverityWarning
	default:
		return anomaly.SeverityInfo
	}
}
