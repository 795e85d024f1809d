package detector

import (
	"testing"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureDetector_Detect(t *testing.T) {
	tests := []struct {
		name     string
		prev     float64
		curr     *float64
		wantSev  anomaly.Severity
		wantDev  float64
		wantNone bool
	}{
		{name: "below count floor", prev: 9, curr: ptr(0), wantNone: true},
		{name: "sixty percent drop", prev: 100, curr: ptr(40), wantSev: anomaly.SeverityInfo, wantDev: -60},
		{name: "eighty five percent drop", prev: 100, curr: ptr(15), wantSev: anomaly.SeverityWarning, wantDev: -85},
		{name: "exactly eighty percent", prev: 50, curr: ptr(10), wantSev: anomaly.SeverityWarning, wantDev: -80},
		{name: "exactly at threshold", prev: 10, curr: ptr(5), wantSev: anomaly.SeverityInfo, wantDev: -50},
		{name: "just under threshold", prev: 100, curr: ptr(51), wantNone: true},
		{name: "usage grew", prev: 100, curr: ptr(150), wantNone: true},
		{name: "feature missing from current period", prev: 20, curr: nil, wantSev: anomaly.SeverityWarning, wantDev: -100},
	}

	d := NewFeatureDetector(50)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := map[string]float64{}
			if tt.curr != nil {
				current["reports"] = *tt.curr
			}

			got := d.Detect("cust-1", map[string]float64{"reports": tt.prev}, current)
			if tt.wantNone {
				assert.Empty(t, got)
				return
			}

			require.Len(t, got, 1)
			a := got[0]
			assert.Equal(t, anomaly.TypeFeatureAbandonment, a.AnomalyType)
			assert.Equal(t, usage.MetricFeatureUsage, a.MetricType)
			assert.Equal(t, "reports", a.AffectedFeature)
			assert.Equal(t, tt.wantSev, a.Severity)
			assert.Equal(t, tt.wantDev, a.DeviationPercent)
			assert.Equal(t, tt.prev, a.BaselineValue)
			assert.Nil(t, a.ZScore)
		})
	}
}

func TestFeatureDetector_SortedAndIndependent(t *testing.T) {
	d := NewFeatureDetector(50)
	previous := map[string]float64{"zeta": 100, "alpha": 100, "mid": 9, "beta": 100}
	current := map[string]float64{"zeta": 0, "alpha": 10, "beta": 90}

	got := d.Detect("cust-1", previous, current)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].AffectedFeature)
	assert.Equal(t, "zeta", got[1].AffectedFeature)
}

func TestFeatureDetector_NoPreviousPeriod(t *testing.T) {
	d := NewFeatureDetector(50)
	assert.Empty(t, d.Detect("cust-1", nil, map[string]float64{"a": 100}))
}

func ptr(v float64) *float64 { return &v }
