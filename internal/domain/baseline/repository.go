package baseline

import (
	"context"

	"github.com/pratik-mahalle/usagepulse/internal/domain/usage"
)

// Repository defines durable storage for baselines
type Repository interface {
	// Get retrieves the baseline for a customer and metric, or nil if none is stored
	Get(ctx context.Context, customerID string, metric usage.MetricType) (*CustomerBaseline, error)

	// Upsert stores a baseline, replacing any previous one for the same key
	Upsert(ctx context.Context, b *CustomerBaseline) error

	// ListByCustomer retrieves every stored baseline of a customer
	ListByCustomer(ctx context.Context, customerID string) ([]*CustomerBaseline, error)
}

// Cache is an optional fast lookup in front of Repository
type Cache interface {
	Get(ctx context.Context, customerID string, metric usage.MetricType) (*CustomerBaseline, error)
	Set(ctx context.Context, b *CustomerBaseline) error
}
