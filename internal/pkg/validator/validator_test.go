package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
)

func TestValidate_DetectionConfig(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		mutate     func(c *anomaly.DetectionConfig)
		wantFields []string
	}{
		{name: "defaults are valid", mutate: func(c *anomaly.DetectionConfig) {}},
		{
			name:       "zero z threshold",
			mutate:     func(c *anomaly.DetectionConfig) { c.ZScoreThreshold = 0 },
			wantFields: []string{"z_score_threshold"},
		},
		{
			name:       "drop above 100 percent",
			mutate:     func(c *anomaly.DetectionConfig) { c.DropThresholdPercent = 120 },
			wantFields: []string{"drop_threshold_percent"},
		},
		{
			name: "short window and negative cooldown",
			mutate: func(c *anomaly.DetectionConfig) {
				c.BaselineWindowDays = 3
				c.CooldownDays = -1
			},
			wantFields: []string{"cooldown_days", "baseline_window_days"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := anomaly.DefaultDetectionConfig()
			tt.mutate(&cfg)

			var fields []string
			for _, e := range v.Validate(cfg) {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidate_Filter(t *testing.T) {
	v := New()

	assert.Empty(t, v.Validate(anomaly.Filter{}))
	assert.Empty(t, v.Validate(anomaly.Filter{Type: anomaly.TypeSpike, Severity: anomaly.SeverityInfo, MetricType: "feature_usage"}))

	errs := v.Validate(anomaly.Filter{Type: "outage", Severity: "urgent", MetricType: "revenue", Limit: -1})
	assert.Len(t, errs, 4)
	assert.Equal(t, "type", errs[0].Field)
	assert.Equal(t, "type must be drop, spike, pattern_change or feature_abandonment", errs[0].Message)
}
