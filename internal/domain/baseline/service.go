package baseline

import (
	"context"

	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

// Service defines baseline computation and retrieval
type Service interface {
	// Calculate recomputes the baseline from windowDays of history and stores it
	Calculate(ctx context.Context, customerID string, metric usage.MetricType, windowDays int) (*CustomerBaseline, error)

	// GetOrCalculate returns a fresh stored baseline or recomputes it
	GetOrCalculate(ctx context.Context, customerID string, metric usage.MetricType, windowDays int) (*CustomerBaseline, error)

	// List returns the stored baselines of a customer
	List(ctx context.Context, customerID string) ([]*CustomerBaseline, error)
}
