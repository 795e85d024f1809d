package usage

import (
	"context"
	"time"
)

// Repository provides read-only access to customer usage snapshots.
// Lookups return nil (or an empty slice) when there is no data; errors are
// reserved for store failures.
type Repository interface {
	// GetLatest returns the most recent snapshot for a customer
	GetLatest(ctx context.Context, customerID string) (*Snapshot, error)

	// GetPrevious returns the most recent snapshot strictly older than before
	GetPrevious(ctx context.Context, customerID string, before time.Time) (*Snapshot, error)

	// GetHistory returns snapshots taken at or after since, ascending by time
	GetHistory(ctx context.Context, customerID string, since time.Time) ([]Snapshot, error)
}

// Recorder stores usage snapshots produced by the ingestion pipeline
type Recorder interface {
	Record(ctx context.Context, s *Snapshot) error
}
