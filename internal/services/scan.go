package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/metrics"
)

const archiveTimeout = 30 * time.Second

// ScanAllCustomers scans every active and onboarding customer, largest ARR first.
// A failing customer is recorded as skipped and does not stop the scan. When ctx is
// cancelled, customers not yet started are recorded as cancelled, customers in flight
// run to completion, and the partial summary is returned together with ctx.Err().
func (s *AnomalyService) ScanAllCustomers(ctx context.Context, cfg *anomaly.DetectionConfig) (*anomaly.ScanSummary, error) {
	dc, err := s.resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	start := s.now()
	customers, err := s.customers.ListActive(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to list customers for scan")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"customers":   len(customers),
		"concurrency": s.scanOpts.Concurrency,
	}).Info("Starting usage anomaly scan")

	summary := anomaly.NewScanSummary(start)
	results := make([]*anomaly.ScanResult, len(customers))
	var mu sync.Mutex

	record := func(i int, r *anomaly.ScanResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		summary.Add(r)
		recordResultMetrics(r)
	}

	var limiter *rate.Limiter
	if s.scanOpts.StartRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.scanOpts.StartRate), 1)
	}

	// slots are acquired before a customer starts so cancellation is observed while waiting
	sem := semaphore.NewWeighted(int64(s.scanOpts.Concurrency))
	var g errgroup.Group

	for i, c := range customers {
		if err := sem.Acquire(ctx, 1); err != nil {
			record(i, s.skipped(c, anomaly.SkipCancelled))
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				sem.Release(1)
				record(i, s.skipped(c, anomaly.SkipCancelled))
				continue
			}
		}

		g.Go(func() error {
			defer sem.Release(1)
			record(i, s.scanOne(ctx, c, dc))
			return nil
		})
	}
	g.Wait()

	summary.Results = results
	summary.Duration = s.now().Sub(start)
	metrics.RecordScan(summary.Duration, s.now())

	s.logger.WithFields(map[string]interface{}{
		"customers_scanned":        summary.CustomersScanned,
		"customers_with_anomalies": summary.CustomersWithAnomalies,
		"customers_skipped":        summary.CustomersSkipped,
		"total_anomalies":          summary.TotalAnomalies,
		"duration_ms":              summary.Duration.Milliseconds(),
	}).Info("Usage anomaly scan completed")

	s.archive(ctx, summary)

	return summary, ctx.Err()
}

// scanOne scans a customer on a context detached from the scan's cancellation,
// bounded by the per-customer timeout
func (s *AnomalyService) scanOne(ctx context.Context, c *customer.Customer, dc anomaly.DetectionConfig) *anomaly.ScanResult {
	scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.scanOpts.CustomerTimeout)
	defer cancel()

	r, err := s.scanCustomer(scanCtx, c, dc)
	if err == nil {
		return r
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
		s.logger.WithFields(map[string]interface{}{
			"customer_id": c.ID,
			"timeout":     s.scanOpts.CustomerTimeout.String(),
		}).Warn("Customer scan timed out")
		r = anomaly.Skip(c.ID, anomaly.SkipTimedOut)
	} else {
		s.logger.WithFields(map[string]interface{}{
			"customer_id": c.ID,
		}).ErrorWithErr(err, "Customer scan failed")
		r = anomaly.Skip(c.ID, err.Error())
	}
	r.CustomerName = c.Name
	return r
}

func (s *AnomalyService) archive(ctx context.Context, summary *anomaly.ScanSummary) {
	if s.archiver == nil {
		return
	}
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	if err := s.archiver.Archive(archiveCtx, summary); err != nil {
		s.logger.ErrorWithErr(err, "Failed to archive scan summary")
	}
}

func recordResultMetrics(r *anomaly.ScanResult) {
	if !r.Skipped {
		metrics.RecordCustomerScanned(len(r.Anomalies) > 0)
		return
	}
	switch r.SkipReason {
	case anomaly.SkipCustomerNotFound, anomaly.SkipInCooldown, anomaly.SkipNoCurrentData,
		anomaly.SkipTimedOut, anomaly.SkipCancelled:
		metrics.RecordCustomerSkipped(r.SkipReason)
	default:
		metrics.RecordCustomerSkipped("error")
	}
}
