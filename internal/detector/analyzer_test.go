package detector

import (
	"testing"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceBaseline() *baseline.CustomerBaseline {
	return &baseline.CustomerBaseline{
		CustomerID:  "cust-1",
		MetricType:  usage.MetricDAU,
		Mean:        100,
		StdDev:      20,
		Median:      100,
		Q1:          85,
		Q3:          115,
		IQR:         30,
		SampleCount: 30,
	}
}

func observe(v float64) Observation {
	return Observation{CustomerID: "cust-1", Metric: usage.MetricDAU, Value: v, ObservedAt: monday}
}

func TestAnalyzer_Scenarios(t *testing.T) {
	analyzer := NewAnalyzer(anomaly.DefaultDetectionConfig())

	tests := []struct {
		name      string
		value     float64
		wantType  anomaly.Type
		wantSev   anomaly.Severity
		wantDev   float64
		wantZ     float64
		wantEmpty bool
	}{
		{name: "moderate drop is info", value: 60, wantType: anomaly.TypeDrop, wantSev: anomaly.SeverityInfo, wantDev: -40, wantZ: -2},
		{name: "large spike is info", value: 250, wantType: anomaly.TypeSpike, wantSev: anomaly.SeverityInfo, wantDev: 150, wantZ: 7.5},
		{name: "raised but inside fences", value: 140, wantEmpty: true},
		{name: "at the mean", value: 100, wantEmpty: true},
		{name: "drop at fifty percent is warning", value: 50, wantType: anomaly.TypeDrop, wantSev: anomaly.SeverityWarning, wantDev: -50, wantZ: -2.5},
		{name: "drop at seventy percent is critical", value: 30, wantType: anomaly.TypeDrop, wantSev: anomaly.SeverityCritical, wantDev: -70, wantZ: -3.5},
		{name: "total loss is critical", value: 0, wantType: anomaly.TypeDrop, wantSev: anomaly.SeverityCritical, wantDev: -100, wantZ: -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.Analyze(observe(tt.value), referenceBaseline())
			if tt.wantEmpty {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.AnomalyType)
			assert.Equal(t, tt.wantSev, got.Severity)
			assert.Equal(t, tt.wantDev, got.DeviationPercent)
			require.NotNil(t, got.ZScore)
			assert.Equal(t, tt.wantZ, *got.ZScore)
			assert.Equal(t, 100.0, got.BaselineValue)
			assert.Equal(t, tt.value, got.ActualValue)
			assert.NotEmpty(t, got.ID)
			assert.NotEmpty(t, got.PossibleCause)
			assert.Equal(t, 30, got.Metadata["sample_count"])
			assert.Equal(t, 20.0, got.Metadata["std_dev"])
			assert.Equal(t, 100.0, got.Metadata["median"])
		})
	}
}

func TestAnalyzer_DropSeverityMonotonic(t *testing.T) {
	analyzer := NewAnalyzer(anomaly.DefaultDetectionConfig())

	last := 0
	for v := 60.0; v >= 0; v -= 0.5 {
		got := analyzer.Analyze(observe(v), referenceBaseline())
		require.NotNil(t, got, "value %v", v)
		require.Equal(t, anomaly.TypeDrop, got.AnomalyType)

		rank := got.Severity.Rank()
		assert.GreaterOrEqual(t, rank, last, "severity regressed at value %v", v)
		last = rank
	}
	assert.Equal(t, anomaly.SeverityCritical.Rank(), last)
}

func TestAnalyzer_SpikeAlwaysInfo(t *testing.T) {
	analyzer := NewAnalyzer(anomaly.DefaultDetectionConfig())

	for v := 200.0; v <= 5000; v += 150 {
		got := analyzer.Analyze(observe(v), referenceBaseline())
		require.NotNil(t, got)
		assert.Equal(t, anomaly.TypeSpike, got.AnomalyType)
		assert.Equal(t, anomaly.SeverityInfo, got.Severity)
	}
}

func TestAnalyzer_PatternChange(t *testing.T) {
	analyzer := NewAnalyzer(anomaly.DefaultDetectionConfig())
	tight := &baseline.CustomerBaseline{Mean: 100, StdDev: 5, Median: 100, Q1: 98, Q3: 102, IQR: 4, SampleCount: 14}

	tests := []struct {
		name  string
		value float64
		want  bool
	}{
		{name: "above upper fence", value: 110, want: true},
		{name: "below lower fence", value: 90, want: true},
		{name: "on upper fence", value: 108, want: false},
		{name: "inside fences", value: 101, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.Analyze(observe(tt.value), tight)
			if !tt.want {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, anomaly.TypePatternChange, got.AnomalyType)
			assert.Equal(t, anomaly.SeverityWarning, got.Severity)
		})
	}
}

func TestAnalyzer_ZeroSpreadAndZeroMean(t *testing.T) {
	analyzer := NewAnalyzer(anomaly.DefaultDetectionConfig())

	flat := &baseline.CustomerBaseline{Mean: 50, Median: 50, Q1: 50, Q3: 50, SampleCount: 7}
	got := analyzer.Analyze(observe(10), flat)
	require.NotNil(t, got)
	assert.Equal(t, anomaly.TypePatternChange, got.AnomalyType, "z-score is zero without spread")
	assert.Equal(t, 0.0, *got.ZScore)

	zero := &baseline.CustomerBaseline{Mean: 0, StdDev: 0, SampleCount: 7}
	got = analyzer.Analyze(observe(5), zero)
	require.NotNil(t, got)
	assert.Equal(t, 0.0, got.DeviationPercent)
}

func TestAnalyzer_CustomThresholds(t *testing.T) {
	cfg := anomaly.DefaultDetectionConfig()
	cfg.DropThresholdPercent = 50
	analyzer := NewAnalyzer(cfg)

	got := analyzer.Analyze(observe(60), referenceBaseline())
	assert.Nil(t, got, "a 40%% drop is below a 50%% threshold and inside the fences")
}

func TestAnalyzer_SeasonalAdjustment(t *testing.T) {
	saturday := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	require.Equal(t, time.Saturday, saturday.Weekday())

	b := referenceBaseline()
	b.SeasonalFactors = map[string]float64{"saturday": 0.5, "monday": 1.2}
	obs := Observation{CustomerID: "cust-1", Metric: usage.MetricDAU, Value: 50, ObservedAt: saturday}

	plain := NewAnalyzer(anomaly.DefaultDetectionConfig()).Analyze(obs, b)
	require.NotNil(t, plain)
	assert.Equal(t, anomaly.TypeDrop, plain.AnomalyType)

	cfg := anomaly.DefaultDetectionConfig()
	cfg.SeasonalAdjustment = true
	assert.Nil(t, NewAnalyzer(cfg).Analyze(obs, b), "weekend dip matches the weekday pattern")
}
