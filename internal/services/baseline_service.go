package services

import (
	"context"
	"errors"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/detector"
	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/metrics"
)

// BaselineService implements baseline.Service
type BaselineService struct {
	repo      baseline.Repository
	usageRepo usage.Repository
	cache     baseline.Cache
	logger    *logger.Logger
	now       func() time.Time
}

// NewBaselineService creates a new baseline service. cache may be nil.
func NewBaselineService(repo baseline.Repository, usageRepo usage.Repository, cache baseline.Cache, log *logger.Logger) baseline.Service {
	return &BaselineService{
		repo:      repo,
		usageRepo: usageRepo,
		cache:     cache,
		logger:    log,
		now:       time.Now,
	}
}

// Calculate recomputes a customer's baseline for one metric from the trailing window and stores it.
// It returns baseline.ErrInsufficientData when the window holds too few recorded values.
func (s *BaselineService) Calculate(ctx context.Context, customerID string, metric usage.MetricType, windowDays int) (*baseline.CustomerBaseline, error) {
	if windowDays <= 0 {
		windowDays = baseline.DefaultWindowDays
	}
	now := s.now()

	history, err := s.usageRepo.GetHistory(ctx, customerID, now.AddDate(0, 0, -windowDays))
	if err != nil {
		return nil, err
	}

	b, err := detector.CalculateBaseline(customerID, metric, usage.Series(history, metric), now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, b); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store baseline")
		return nil, err
	}
	s.cacheSet(ctx, b)

	s.logger.WithFields(map[string]interface{}{
		"customer_id":  customerID,
		"metric_type":  metric,
		"mean":         b.Mean,
		"std_dev":      b.StdDev,
		"sample_count": b.SampleCount,
	}).Debug("Baseline calculated")

	return b, nil
}

// GetOrCalculate returns a fresh baseline from the cache or the store, recomputing it otherwise
func (s *BaselineService) GetOrCalculate(ctx context.Context, customerID string, metric usage.MetricType, windowDays int) (*baseline.CustomerBaseline, error) {
	now := s.now()

	if s.cache != nil {
		b, err := s.cache.Get(ctx, customerID, metric)
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"customer_id": customerID,
				"metric_type": metric,
			}).WithError(err).Warn("Baseline cache lookup failed")
		} else if b != nil && b.IsFresh(now) {
			metrics.RecordBaselineLookup("cache")
			return b, nil
		}
	}

	stored, err := s.repo.Get(ctx, customerID, metric)
	if err != nil {
		return nil, err
	}
	if stored != nil && stored.IsFresh(now) {
		metrics.RecordBaselineLookup("store")
		s.cacheSet(ctx, stored)
		return stored, nil
	}

	b, err := s.Calculate(ctx, customerID, metric, windowDays)
	if err != nil {
		if !errors.Is(err, baseline.ErrInsufficientData) {
			s.logger.WithFields(map[string]interface{}{
				"customer_id": customerID,
				"metric_type": metric,
			}).ErrorWithErr(err, "Failed to calculate baseline")
		}
		return nil, err
	}
	metrics.RecordBaselineLookup("computed")
	return b, nil
}

// List returns the stored baselines of a customer
func (s *BaselineService) List(ctx context.Context, customerID string) ([]*baseline.CustomerBaseline, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *BaselineService) cacheSet(ctx context.Context, b *baseline.CustomerBaseline) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, b); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"customer_id": b.CustomerID,
			"metric_type": b.MetricType,
		}).WithError(err).Warn("Failed to cache baseline")
	}
}
