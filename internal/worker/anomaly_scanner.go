package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
)

// AnomalyScanner runs portfolio anomaly scans on a cron schedule
type AnomalyScanner struct {
	service    anomaly.Service
	schedule   string
	runOnStart bool
	running    atomic.Bool
	logger     *logger.Logger
}

// NewAnomalyScanner creates a new anomaly scanner worker.
// schedule is a standard five-field cron expression.
func NewAnomalyScanner(service anomaly.Service, schedule string, runOnStart bool, log *logger.Logger) *AnomalyScanner {
	return &AnomalyScanner{
		service:    service,
		schedule:   schedule,
		runOnStart: runOnStart,
		logger:     log.With("component", "anomaly_scanner"),
	}
}

// Start schedules scans and blocks until ctx is cancelled. It waits for any running
// scan, scheduled or initial, to return before exiting.
func (s *AnomalyScanner) Start(ctx context.Context) error {
	scheduler := cron.New(cron.WithChain(cron.Recover(cronLogger{s.logger})))
	if _, err := scheduler.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", s.schedule, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"schedule": s.schedule,
	}).Info("Starting anomaly scanner worker")

	var initial sync.WaitGroup
	if s.runOnStart {
		initial.Add(1)
		go func() {
			defer initial.Done()
			s.RunOnce(ctx)
		}()
	}
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	initial.Wait()
	s.logger.Info("Anomaly scanner worker stopped")
	return nil
}

// RunOnce performs one portfolio scan unless another is still running.
// It reports whether a scan was started.
func (s *AnomalyScanner) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous anomaly scan still running, skipping")
		return false
	}
	defer s.running.Store(false)

	summary, err := s.service.ScanAllCustomers(ctx, nil)
	if err != nil {
		s.logger.ErrorWithErr(err, "Scheduled anomaly scan did not complete")
	}
	if summary != nil {
		s.logger.WithFields(map[string]interface{}{
			"customers_scanned": summary.CustomersScanned,
			"customers_skipped": summary.CustomersSkipped,
			"total_anomalies":   summary.TotalAnomalies,
		}).Info("Scheduled anomaly scan finished")
	}
	return true
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(pairs(keysAndValues)).ErrorWithErr(err, msg)
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
