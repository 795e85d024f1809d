package customer

// Customer is the subset of the customer directory the engine needs
type Customer struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	ARR    *float64 `json:"arr,omitempty"`
	Status string   `json:"status"`
}

// Customer statuses
const (
	StatusActive     = "active"
	StatusOnboarding = "onboarding"
	StatusChurned    = "churned"
)

// IsScannable reports whether the customer takes part in portfolio scans
func (c *Customer) IsScannable() bool {
	return c.Status == StatusActive || c.Status == StatusOnboarding
}
