package services

import (
	"context"
	"errors"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/detector"
	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
	apperrors "github.com/pratik-mahalle/usagepulse/internal/pkg/errors"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/metrics"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/validator"
	"github.com/pratik-mahalle/usagepulse/internal/report"
	"github.com/pratik-mahalle/usagepulse/internal/trigger"
)

// ScanOptions bounds portfolio scans
type ScanOptions struct {
	Concurrency     int           // customers scanned in parallel
	CustomerTimeout time.Duration // per-customer deadline
	StartRate       float64       // customer scans started per second, 0 for unlimited
}

// DefaultScanOptions returns the standard scan bounds
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Concurrency:     4,
		CustomerTimeout: 2 * time.Minute,
	}
}

// AnomalyServiceOption customizes an AnomalyService
type AnomalyServiceOption func(*AnomalyService)

// WithScanOptions overrides the portfolio scan bounds
func WithScanOptions(opts ScanOptions) AnomalyServiceOption {
	return func(s *AnomalyService) {
		if opts.Concurrency > 0 {
			s.scanOpts.Concurrency = opts.Concurrency
		}
		if opts.CustomerTimeout > 0 {
			s.scanOpts.CustomerTimeout = opts.CustomerTimeout
		}
		s.scanOpts.StartRate = opts.StartRate
	}
}

// WithDetectionConfig sets the thresholds used when a call passes no config
func WithDetectionConfig(cfg anomaly.DetectionConfig) AnomalyServiceOption {
	return func(s *AnomalyService) { s.defaults = cfg }
}

// WithArchiver archives every portfolio scan summary
func WithArchiver(a report.Archiver) AnomalyServiceOption {
	return func(s *AnomalyService) { s.archiver = a }
}

// AnomalyService implements anomaly.Service
type AnomalyService struct {
	customers customer.Repository
	usageRepo usage.Repository
	repo      anomaly.Repository
	baselines baseline.Service
	cooldown  *CooldownGate
	publisher trigger.Publisher
	archiver  report.Archiver
	validator *validator.Validator
	logger    *logger.Logger
	defaults  anomaly.DetectionConfig
	scanOpts  ScanOptions
	now       func() time.Time
}

// NewAnomalyService creates a new anomaly detection service
func NewAnomalyService(
	customers customer.Repository,
	usageRepo usage.Repository,
	repo anomaly.Repository,
	baselines baseline.Service,
	publisher trigger.Publisher,
	log *logger.Logger,
	opts ...AnomalyServiceOption,
) anomaly.Service {
	s := &AnomalyService{
		customers: customers,
		usageRepo: usageRepo,
		repo:      repo,
		baselines: baselines,
		cooldown:  NewCooldownGate(repo),
		publisher: publisher,
		validator: validator.New(),
		logger:    log,
		defaults:  anomaly.DefaultDetectionConfig(),
		scanOpts:  DefaultScanOptions(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AnomalyService) resolveConfig(cfg *anomaly.DetectionConfig) (anomaly.DetectionConfig, error) {
	resolved := s.defaults
	if cfg != nil {
		resolved = *cfg
	}
	if errs := s.validator.Validate(resolved); len(errs) > 0 {
		return resolved, apperrors.ValidationError("Invalid detection config", errs)
	}
	return resolved, nil
}

// DetectAnomaliesForCustomer runs the full detection pipeline for one customer.
// Missing customers and missing data produce a skipped result; store failures are returned.
func (s *AnomalyService) DetectAnomaliesForCustomer(ctx context.Context, customerID string, cfg *anomaly.DetectionConfig) (*anomaly.ScanResult, error) {
	dc, err := s.resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		s.logSkip(customerID, anomaly.SkipCustomerNotFound)
		return anomaly.Skip(customerID, anomaly.SkipCustomerNotFound), nil
	}

	return s.scanCustomer(ctx, c, dc)
}

func (s *AnomalyService) scanCustomer(ctx context.Context, c *customer.Customer, dc anomaly.DetectionConfig) (*anomaly.ScanResult, error) {
	inCooldown, err := s.cooldown.IsInCooldown(ctx, c.ID, dc.CooldownDays)
	if err != nil {
		return nil, err
	}
	if inCooldown {
		return s.skipped(c, anomaly.SkipInCooldown), nil
	}

	current, err := s.usageRepo.GetLatest(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return s.skipped(c, anomaly.SkipNoCurrentData), nil
	}

	analyzer := detector.NewAnalyzer(dc)
	found := []*anomaly.UsageAnomaly{}

	for _, metric := range usage.TrackedMetrics {
		b, err := s.baselines.GetOrCalculate(ctx, c.ID, metric, dc.BaselineWindowDays)
		if errors.Is(err, baseline.ErrInsufficientData) {
			s.logger.WithFields(map[string]interface{}{
				"customer_id": c.ID,
				"metric_type": metric,
			}).Debug("Not enough history for baseline")
			continue
		}
		if err != nil {
			return nil, err
		}

		value, ok := current.Value(metric)
		if !ok {
			continue
		}

		if a := analyzer.Analyze(detector.Observation{
			CustomerID: c.ID,
			Metric:     metric,
			Value:      value,
			ObservedAt: current.Timestamp,
		}, b); a != nil {
			found = append(found, a)
		}
	}

	abandoned, err := s.detectFeatureAbandonment(ctx, current, dc)
	if err != nil {
		return nil, err
	}
	found = append(found, abandoned...)

	if err := s.repo.CreateBatch(ctx, found); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"customer_id": c.ID,
			"anomalies":   len(found),
		}).ErrorWithErr(err, "Failed to store anomalies")
		return nil, err
	}

	for _, a := range found {
		metrics.RecordAnomaly(string(a.AnomalyType), string(a.Severity))
	}
	s.publish(ctx, c, found)

	if len(found) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"customer_id": c.ID,
			"anomalies":   len(found),
		}).Info("Usage anomalies detected")
	}

	return &anomaly.ScanResult{
		CustomerID:   c.ID,
		CustomerName: c.Name,
		Anomalies:    found,
	}, nil
}

// detectFeatureAbandonment compares the current snapshot's feature breakdown with the one before it.
// A snapshot without a breakdown is treated as unrecorded, not as zero usage.
func (s *AnomalyService) detectFeatureAbandonment(ctx context.Context, current *usage.Snapshot, dc anomaly.DetectionConfig) ([]*anomaly.UsageAnomaly, error) {
	if len(current.FeatureUsage) == 0 {
		return nil, nil
	}

	previous, err := s.usageRepo.GetPrevious(ctx, current.CustomerID, current.Timestamp)
	if err != nil {
		return nil, err
	}
	if previous == nil || len(previous.FeatureUsage) == 0 {
		return nil, nil
	}

	return detector.NewFeatureDetector(dc.FeatureDropThreshold).Detect(current.CustomerID, previous.FeatureUsage, current.FeatureUsage), nil
}

// publish emits a trigger event for every non-info anomaly. Failures are logged only.
func (s *AnomalyService) publish(ctx context.Context, c *customer.Customer, found []*anomaly.UsageAnomaly) {
	if s.publisher == nil {
		return
	}
	for _, a := range found {
		if a.Severity == anomaly.SeverityInfo {
			continue
		}
		if err := s.publisher.Publish(ctx, trigger.NewEvent(a, c, s.now())); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"customer_id": c.ID,
				"anomaly_id":  a.ID,
				"severity":    a.Severity,
			}).ErrorWithErr(err, "Failed to publish trigger event")
		}
	}
}

func (s *AnomalyService) skipped(c *customer.Customer, reason string) *anomaly.ScanResult {
	s.logSkip(c.ID, reason)
	r := anomaly.Skip(c.ID, reason)
	r.CustomerName = c.Name
	return r
}

func (s *AnomalyService) logSkip(customerID, reason string) {
	s.logger.WithFields(map[string]interface{}{
		"customer_id": customerID,
		"reason":      reason,
	}).Info("Customer scan skipped")
}

// GetAnomaliesForCustomer lists a customer's anomalies, newest first
func (s *AnomalyService) GetAnomaliesForCustomer(ctx context.Context, customerID string, filter anomaly.Filter) ([]*anomaly.UsageAnomaly, error) {
	if errs := s.validator.Validate(filter); len(errs) > 0 {
		return nil, apperrors.ValidationError("Invalid anomaly filter", errs)
	}
	if filter.Limit <= 0 {
		filter.Limit = anomaly.DefaultListLimit
	}
	return s.repo.ListByCustomer(ctx, customerID, filter)
}

// DismissAnomaly marks an anomaly dismissed by userID. A second dismissal keeps the first
// user and time. It returns nil when the anomaly does not exist.
func (s *AnomalyService) DismissAnomaly(ctx context.Context, anomalyID string, userID string) (*anomaly.UsageAnomaly, error) {
	if userID == "" {
		return nil, apperrors.BadRequest("user id is required")
	}

	a, err := s.repo.GetByID(ctx, anomalyID)
	if err != nil || a == nil {
		return nil, err
	}
	if a.IsDismissed() {
		return a, nil
	}

	changed, err := s.repo.Dismiss(ctx, anomalyID, userID, s.now())
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to dismiss anomaly")
		return nil, err
	}
	if changed {
		s.logger.WithFields(map[string]interface{}{
			"anomaly_id":  anomalyID,
			"customer_id": a.CustomerID,
			"user_id":     userID,
		}).Info("Anomaly dismissed")
	}

	return s.repo.GetByID(ctx, anomalyID)
}
