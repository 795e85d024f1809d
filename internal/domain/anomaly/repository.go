package anomaly

import (
	"context"
	"time"
)

// Repository defines the interface for usage anomaly data access
type Repository interface {
	// CreateBatch persists all anomalies of one scan atomically
	CreateBatch(ctx context.Context, anomalies []*UsageAnomaly) error

	// GetByID retrieves an anomaly, or nil if it does not exist
	GetByID(ctx context.Context, id string) (*UsageAnomaly, error)

	// ListByCustomer retrieves anomalies of a customer, newest first
	ListByCustomer(ctx context.Context, customerID string, filter Filter) ([]*UsageAnomaly, error)

	// Dismiss marks an anomaly dismissed if it is not already; it reports whether a row changed
	Dismiss(ctx context.Context, id string, userID string, at time.Time) (bool, error)

	// ListActive returns non-dismissed anomalies of the given severities detected at or after since
	ListActive(ctx context.Context, customerID string, severities []Severity, since time.Time) ([]*UsageAnomaly, error)
}
