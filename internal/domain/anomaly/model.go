package anomaly

import (
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

// Type classifies a detected deviation
type Type string

// Anomaly types
const (
	TypeDrop               Type = "drop"
	TypeSpike              Type = "spike"
	TypePatternChange      Type = "pattern_change"
	TypeFeatureAbandonment Type = "feature_abandonment"
)

// Severity of a detected anomaly
type Severity string

// Severity levels
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities; higher is more urgent
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast returns the severities ranked at or above s
func (s Severity) AtLeast() []Severity {
	var out []Severity
	for _, sev := range []Severity{SeverityCritical, SeverityWarning, SeverityInfo} {
		if sev.Rank() >= s.Rank() {
			out = append(out, sev)
		}
	}
	return out
}

// UsageAnomaly is a detected deviation from a customer's usage baseline
type UsageAnomaly struct {
	ID               string                 `json:"id"`
	CustomerID       string                 `json:"customer_id"`
	MetricType       usage.MetricType       `json:"metric_type"`
	AnomalyType      Type                   `json:"anomaly_type"`
	Severity         Severity               `json:"severity"`
	BaselineValue    float64                `json:"baseline_value"`
	ActualValue      float64                `json:"actual_value"`
	DeviationPercent float64                `json:"deviation_percent"`
	ZScore           *float64               `json:"z_score,omitempty"`
	DetectedAt       time.Time              `json:"detected_at"`
	AffectedFeature  string                 `json:"affected_feature,omitempty"`
	PossibleCause    string                 `json:"possible_cause,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	DismissedAt      *time.Time             `json:"dismissed_at,omitempty"`
	DismissedBy      string                 `json:"dismissed_by,omitempty"`
}

// IsDismissed reports whether a user has dismissed the anomaly
func (a *UsageAnomaly) IsDismissed() bool {
	return a.DismissedAt != nil
}

// Filter contains anomaly listing options
type Filter struct {
	Type             Type             `json:"type,omitempty" validate:"omitempty,anomaly_type"`
	Severity         Severity         `json:"severity,omitempty" validate:"omitempty,severity"`
	MetricType       usage.MetricType `json:"metric_type,omitempty" validate:"omitempty,metric_type"`
	Since            *time.Time       `json:"since,omitempty"`
	IncludeDismissed bool             `json:"include_dismissed,omitempty"`
	Limit            int              `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

// DefaultListLimit caps list results when Filter.Limit is unset
const DefaultListLimit = 50

// DetectionConfig holds the tunable thresholds of a scan
type DetectionConfig struct {
	ZScoreThreshold       float64 `json:"z_score_threshold" validate:"gt=0"`
	DropThresholdPercent  float64 `json:"drop_threshold_percent" validate:"gt=0,lte=100"`
	SpikeThresholdPercent float64 `json:"spike_threshold_percent" validate:"gt=0"`
	FeatureDropThreshold  float64 `json:"feature_drop_threshold" validate:"gt=0,lte=100"`
	CooldownDays          int     `json:"cooldown_days" validate:"gte=0"`
	BaselineWindowDays    int     `json:"baseline_window_days" validate:"gte=7"`
	SeasonalAdjustment    bool    `json:"seasonal_adjustment"`
}

// DefaultDetectionConfig returns the standard thresholds
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		ZScoreThreshold:       2.0,
		DropThresholdPercent:  30,
		SpikeThresholdPercent: 100,
		FeatureDropThreshold:  50,
		CooldownDays:          14,
		BaselineWindowDays:    30,
	}
}

// Skip reasons recorded on a ScanResult
const (
	SkipCustomerNotFound = "customer not found"
	SkipInCooldown       = "within cooldown period"
	SkipNoCurrentData    = "no current usage data"
	SkipTimedOut         = "scan timed out"
	SkipCancelled        = "scan cancelled"
)

// ScanResult is the outcome of scanning one customer
type ScanResult struct {
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	Skipped      bool            `json:"skipped"`
	SkipReason   string          `json:"skip_reason,omitempty"`
	Anomalies    []*UsageAnomaly `json:"anomalies"`
}

// Skip builds a skipped result
func Skip(customerID, reason string) *ScanResult {
	return &ScanResult{
		CustomerID: customerID,
		Skipped:    true,
		SkipReason: reason,
		Anomalies:  []*UsageAnomaly{},
	}
}

// ScanSummary aggregates a portfolio scan
type ScanSummary struct {
	ScannedAt              time.Time        `json:"scanned_at"`
	Duration               time.Duration    `json:"duration"`
	CustomersScanned       int              `json:"customers_scanned"`
	CustomersWithAnomalies int              `json:"customers_with_anomalies"`
	CustomersSkipped       int              `json:"customers_skipped"`
	TotalAnomalies         int              `json:"total_anomalies"`
	ByType                 map[Type]int     `json:"by_type"`
	BySeverity             map[Severity]int `json:"by_severity"`
	Results                []*ScanResult    `json:"results"`
}

// NewScanSummary creates an empty summary with zeroed counters
func NewScanSummary(scannedAt time.Time) *ScanSummary {
	return &ScanSummary{
		ScannedAt: scannedAt,
		ByType: map[Type]int{
			TypeDrop:               0,
			TypeSpike:              0,
			TypePatternChange:      0,
			TypeFeatureAbandonment: 0,
		},
		BySeverity: map[Severity]int{
			SeverityCritical: 0,
			SeverityWarning:  0,
			SeverityInfo:     0,
		},
		Results: []*ScanResult{},
	}
}

// Add folds a customer result into the summary counters.
// Results are not appended; callers place them to preserve portfolio order.
func (s *ScanSummary) Add(r *ScanResult) {
	if r.Skipped {
		s.CustomersSkipped++
		return
	}
	s.CustomersScanned++
	if len(r.Anomalies) > 0 {
		s.CustomersWithAnomalies++
	}
	for _, a := range r.Anomalies {
		s.TotalAnomalies++
		s.ByType[a.AnomalyType]++
		s.BySeverity[a.Severity]++
	}
}
