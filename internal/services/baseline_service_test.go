package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/pratik-mahalle/usagepulse/internal/testutil"
)

func TestBaselineService_GetOrCalculate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		cached      *baseline.CustomerBaseline
		stored      *baseline.CustomerBaseline
		wantMean    float64
		wantUpserts int
	}{
		{
			name:        "cache hit avoids recomputation",
			cached:      &baseline.CustomerBaseline{CustomerID: "acme", MetricType: usage.MetricDAU, Mean: 42, CalculatedAt: now.Add(-time.Hour)},
			wantMean:    42,
			wantUpserts: 0,
		},
		{
			name:        "fresh stored baseline is reused",
			stored:      &baseline.CustomerBaseline{CustomerID: "acme", MetricType: usage.MetricDAU, Mean: 55, CalculatedAt: now.AddDate(0, 0, -2)},
			wantMean:    55,
			wantUpserts: 0,
		},
		{
			name:        "stale stored baseline is recomputed",
			stored:      &baseline.CustomerBaseline{CustomerID: "acme", MetricType: usage.MetricDAU, Mean: 55, CalculatedAt: now.AddDate(0, 0, -8)},
			wantMean:    100,
			wantUpserts: 1,
		},
		{
			name:        "stale cache entry falls through",
			cached:      &baseline.CustomerBaseline{CustomerID: "acme", MetricType: usage.MetricDAU, Mean: 42, CalculatedAt: now.AddDate(0, 0, -9)},
			wantMean:    100,
			wantUpserts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usageRepo := testutil.NewMockUsageRepository()
			seedDAU(usageRepo, "acme", steadyDAU(100)[1:])
			repo := testutil.NewMockBaselineRepository()
			cache := testutil.NewMockBaselineCache()
			if tt.cached != nil {
				require.NoError(t, cache.Set(context.Background(), tt.cached))
			}
			if tt.stored != nil {
				repo.Baselines["acme/dau"] = tt.stored
			}

			svc := NewBaselineService(repo, usageRepo, cache, testLogger())
			b, err := svc.GetOrCalculate(context.Background(), "acme", usage.MetricDAU, 30)
			require.NoError(t, err)

			assert.InDelta(t, tt.wantMean, b.Mean, 0.001)
			assert.Equal(t, tt.wantUpserts, repo.UpsertCount)

			cached, err := cache.Get(context.Background(), "acme", usage.MetricDAU)
			require.NoError(t, err)
			assert.Equal(t, b, cached)
		})
	}
}

func TestBaselineService_InsufficientData(t *testing.T) {
	usageRepo := testutil.NewMockUsageRepository()
	seedDAU(usageRepo, "acme", []float64{10, 12, 11, 13, 12, 11})
	repo := testutil.NewMockBaselineRepository()

	svc := NewBaselineService(repo, usageRepo, nil, testLogger())
	b, err := svc.GetOrCalculate(context.Background(), "acme", usage.MetricDAU, 30)

	assert.ErrorIs(t, err, baseline.ErrInsufficientData)
	assert.Nil(t, b)
	assert.Equal(t, 0, repo.UpsertCount)
}

func TestBaselineService_WindowExcludesOldHistory(t *testing.T) {
	usageRepo := testutil.NewMockUsageRepository()
	seedDAU(usageRepo, "acme", steadyDAU(100))
	repo := testutil.NewMockBaselineRepository()

	svc := NewBaselineService(repo, usageRepo, nil, testLogger())
	b, err := svc.Calculate(context.Background(), "acme", usage.MetricDAU, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, b.SampleCount)
}

func TestBaselineService_CacheFailuresAreTolerated(t *testing.T) {
	usageRepo := testutil.NewMockUsageRepository()
	seedDAU(usageRepo, "acme", steadyDAU(100))
	repo := testutil.NewMockBaselineRepository()
	cache := testutil.NewMockBaselineCache()
	cache.GetError = errors.New("redis down")
	cache.SetError = errors.New("redis down")

	svc := NewBaselineService(repo, usageRepo, cache, testLogger())
	b, err := svc.GetOrCalculate(context.Background(), "acme", usage.MetricDAU, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, b.SampleCount)
	assert.Equal(t, 1, repo.UpsertCount)
}

func TestBaselineService_StoreErrorPropagates(t *testing.T) {
	usageRepo := testutil.NewMockUsageRepository()
	seedDAU(usageRepo, "acme", steadyDAU(100))
	repo := testutil.NewMockBaselineRepository()
	repo.UpsertError = errors.New("read-only database")

	svc := NewBaselineService(repo, usageRepo, nil, testLogger())
	_, err := svc.GetOrCalculate(context.Background(), "acme", usage.MetricDAU, 30)
	assert.Error(t, err)
}
