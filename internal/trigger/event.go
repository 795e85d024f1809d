// Package trigger delivers anomaly events to the downstream trigger system.
package trigger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/customer"
)

const (
	// EventTypeUsageMetricUpdated is the only event type the engine emits
	EventTypeUsageMetricUpdated = "usage_metric_updated"

	// EventSource identifies the engine as the origin of an event
	EventSource = "anomaly_detection"
)

// Event is the payload handed to the trigger system
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	CustomerID   string    `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Data         EventData `json:"data"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
}

// EventData describes the anomaly behind an event
type EventData struct {
	AnomalyID        string  `json:"anomalyId"`
	AnomalyType      string  `json:"anomalyType"`
	MetricType       string  `json:"metricType"`
	Severity         string  `json:"severity"`
	BaselineValue    float64 `json:"baselineValue"`
	ActualValue      float64 `json:"actualValue"`
	DeviationPercent float64 `json:"deviationPercent"`
	PossibleCause    *string `json:"possibleCause"`
	AffectedFeature  *string `json:"affectedFeature"`
}

// Publisher delivers events to a trigger backend
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewEvent builds the trigger event for a detected anomaly
func NewEvent(a *anomaly.UsageAnomaly, c *customer.Customer, now time.Time) Event {
	return Event{
		ID:           uuid.New().String(),
		Type:         EventTypeUsageMetricUpdated,
		CustomerID:   c.ID,
		CustomerName: c.Name,
		Data: EventData{
			AnomalyID:        a.ID,
			AnomalyType:      string(a.AnomalyType),
			MetricType:       string(a.MetricType),
			Severity:         string(a.Severity),
			BaselineValue:    a.BaselineValue,
			ActualValue:      a.ActualValue,
			DeviationPercent: a.DeviationPercent,
			PossibleCause:    nullable(a.PossibleCause),
			AffectedFeature:  nullable(a.AffectedFeature),
		},
		Timestamp: now.UTC(),
		Source:    EventSource,
	}
}

// nullable maps an empty string to a JSON null
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
