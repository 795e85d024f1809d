package anomaly

import "context"

// Service defines the anomaly detection operations exposed to callers
type Service interface {
	// DetectAnomaliesForCustomer scans one customer. A nil config uses the service defaults.
	DetectAnomaliesForCustomer(ctx context.Context, customerID string, cfg *DetectionConfig) (*ScanResult, error)

	// ScanAllCustomers scans every active customer and aggregates the results
	ScanAllCustomers(ctx context.Context, cfg *DetectionConfig) (*ScanSummary, error)

	// GetAnomaliesForCustomer lists a customer's anomalies
	GetAnomaliesForCustomer(ctx context.Context, customerID string, filter Filter) ([]*UsageAnomaly, error)

	// DismissAnomaly records a user dismissal; it returns nil when the anomaly does not exist
	DismissAnomaly(ctx context.Context, anomalyID string, userID string) (*UsageAnomaly, error)
}
