package customer

import "context"

// Repository defines the customer directory lookups used by the scanner
type Repository interface {
	// GetByID returns the customer or nil when it does not exist
	GetByID(ctx context.Context, id string) (*Customer, error)

	// ListActive returns active and onboarding customers ordered by ARR descending
	ListActive(ctx context.Context) ([]*Customer, error)
}

// Writer maintains the customer directory
type Writer interface {
	Upsert(ctx context.Context, c *Customer) error
}
