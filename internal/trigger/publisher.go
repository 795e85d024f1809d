package trigger

import (
	"context"
	"errors"

	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
)

// LogPublisher only logs events. Used when no trigger backend is configured.
type LogPublisher struct {
	logger *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.WithFields(map[string]interface{}{
		"event_id":     event.ID,
		"customer_id":  event.CustomerID,
		"anomaly_id":   event.Data.AnomalyID,
		"anomaly_type": event.Data.AnomalyType,
		"severity":     event.Data.Severity,
		"metric_type":  event.Data.MetricType,
	}).Info("Trigger event")
	return nil
}

// Multi publishes every event to all publishers.
// A failing publisher does not stop delivery to the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
